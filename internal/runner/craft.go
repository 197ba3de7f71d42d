package runner

import (
	"context"
	"fmt"

	"github.com/morrigan/wyrmhold/internal/world"
	"go.uber.org/zap"
)

// The three crafting focuses are structurally identical chains over
// different professions and stations.

func (r *Runner) doCrafting(ctx context.Context, t *tickState) error {
	return r.craftChain(ctx, t, professionSmithing, world.StationForge)
}

func (r *Runner) doAlchemy(ctx context.Context, t *tickState) error {
	return r.craftChain(ctx, t, professionAlchemy, world.StationAlchemyLab)
}

func (r *Runner) doCooking(ctx context.Context, t *tickState) error {
	return r.craftChain(ctx, t, professionCooking, world.StationCampfire)
}

// craftChain ensures the profession, walks to the station and attempts
// the station's recipes in catalog priority order, stopping at the first
// success. Missing materials skip silently to the next recipe; when
// nothing succeeds the agent goes gathering for materials instead of
// fighting.
func (r *Runner) craftChain(ctx context.Context, t *tickState, profession string, kind world.StationKind) error {
	if !knowsProfession(t.self, profession) {
		return r.learnProfessionStep(ctx, t, profession)
	}

	station := nearestStation(t.zone.Stations, kind, t.self.Pos)
	if station == nil {
		return r.delegate(ctx, t, FocusCombat)
	}

	if t.self.Pos.DistanceTo(station.Pos) > engagementRange {
		_, err := r.world.Move(ctx, t.token, t.self.ID, station.Pos)
		if err != nil {
			return fmt.Errorf("move toward %s: %w", kind, err)
		}
		return nil
	}

	recipes, err := r.world.Recipes(ctx, t.token, kind)
	if err != nil {
		r.logger.Warn("recipe catalog read failed",
			zap.String("wallet", r.wallet),
			zap.String("station", string(kind)),
			zap.Error(err))
		return r.delegate(ctx, t, FocusGathering)
	}

	for _, recipe := range recipes {
		res, err := r.world.Craft(ctx, t.token, t.self.ID, station.ID, recipe.ID)
		if err != nil {
			r.logger.Warn("craft attempt failed",
				zap.String("wallet", r.wallet),
				zap.String("recipe", recipe.ID),
				zap.Error(err))
			continue
		}
		if res.Accepted {
			r.record(ctx, RoleActivity, fmt.Sprintf("crafted %s at %s", recipe.Name, kind))
			return nil
		}
		// Rejections (missing materials and the like) skip to the next
		// recipe without noise.
	}

	return r.delegate(ctx, t, FocusGathering)
}

// doEnchanting applies an enchantment consumable to the equipped weapon
// at the nearest altar. Without the consumable it brews one (alchemy);
// without a weapon it gathers instead.
func (r *Runner) doEnchanting(ctx context.Context, t *tickState) error {
	enchantment := findConsumable(t.self.Inventory, world.ItemEnchantment)
	if enchantment == nil {
		return r.delegate(ctx, t, FocusAlchemy)
	}
	if !weaponEquipped(t.self) {
		return r.delegate(ctx, t, FocusGathering)
	}

	altar := nearestStation(t.zone.Stations, world.StationAltar, t.self.Pos)
	if altar == nil {
		return r.delegate(ctx, t, FocusCombat)
	}

	if t.self.Pos.DistanceTo(altar.Pos) > engagementRange {
		_, err := r.world.Move(ctx, t.token, t.self.ID, altar.Pos)
		if err != nil {
			return fmt.Errorf("move toward altar: %w", err)
		}
		return nil
	}

	res, err := r.world.Enchant(ctx, t.token, t.self.ID, altar.ID, enchantment.ID)
	if err != nil {
		return fmt.Errorf("enchant: %w", err)
	}
	if res.Accepted {
		r.record(ctx, RoleActivity, "enchanted weapon with "+enchantment.Name)
	}
	return nil
}
