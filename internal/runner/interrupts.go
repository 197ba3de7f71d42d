package runner

import (
	"context"
	"fmt"

	"github.com/morrigan/wyrmhold/internal/world"
	"go.uber.org/zap"
)

const (
	// shoppingGoldThreshold is the minimum balance before a weaponless
	// agent is redirected to shopping.
	shoppingGoldThreshold = 10

	// adaptEvery rate-limits self-adaptation to every 30th tick since
	// the last focus change.
	adaptEvery = 30

	// lowSupplyHPFraction is the HP level below which running out of
	// consumables redirects the agent to cooking.
	lowSupplyHPFraction = 0.70

	// overlevelMargin is how far above the zone requirement the agent
	// must be before it is steered to a harder zone.
	overlevelMargin = 5
)

// rallyPoint is the fixed safe position agents flee toward.
var rallyPoint = world.Position{X: 0, Y: 0}

// runInterrupts evaluates the safety and adaptation checks that take
// precedence over goal behavior. Returns true when an interrupt consumed
// the tick.
func (r *Runner) runInterrupts(ctx context.Context, t *tickState) bool {
	if r.checkVitals(ctx, t) {
		return true
	}
	if r.checkGear(ctx, t) {
		return true
	}
	return r.selfAdapt(ctx, t)
}

// checkVitals reacts to low HP. Below the strategy's react threshold the
// agent eats food, or failing that drinks a potion. Below the stricter
// flee threshold it additionally retreats toward the rally point, whether
// or not anything was consumed. Only a consumed item counts as the tick's
// action.
func (r *Runner) checkVitals(ctx context.Context, t *tickState) bool {
	if t.self.MaxHP <= 0 {
		return false
	}
	frac := float64(t.self.HP) / float64(t.self.MaxHP)
	strategy := t.cfg.Strategy

	consumed := false
	if frac < strategy.ReactThreshold() {
		item := findConsumable(t.self.Inventory, world.ItemFood)
		if item == nil {
			item = findConsumable(t.self.Inventory, world.ItemPotion)
		}
		if item != nil {
			res, err := r.world.Consume(ctx, t.token, t.self.ID, item.ID)
			if err != nil {
				r.logger.Warn("consume failed",
					zap.String("wallet", r.wallet),
					zap.Error(err))
			} else if res.Accepted {
				consumed = true
				r.record(ctx, RoleActivity, fmt.Sprintf("used %s at %d/%d HP",
					item.Name, t.self.HP, t.self.MaxHP))
			}
		}
	}

	if frac < strategy.FleeThreshold() {
		if _, err := r.world.Move(ctx, t.token, t.self.ID, rallyPoint); err != nil {
			r.logger.Warn("flee move failed",
				zap.String("wallet", r.wallet),
				zap.Error(err))
		} else {
			r.record(ctx, RoleActivity, fmt.Sprintf("fleeing to rally point at %d/%d HP",
				t.self.HP, t.self.MaxHP))
		}
	}

	return consumed
}

// checkGear repairs broken or badly worn equipment. Any repair attempt
// consumes the tick, whether or not a repair merchant was reachable.
func (r *Runner) checkGear(ctx context.Context, t *tickState) bool {
	damaged := false
	for _, slot := range t.self.Equipment {
		if slot.Item == nil {
			continue
		}
		if slot.Broken || (slot.MaxDurability > 0 &&
			float64(slot.Durability)/float64(slot.MaxDurability) < 0.20) {
			damaged = true
			break
		}
	}
	if !damaged {
		return false
	}

	merchant := nearestNPCWithService(t.zone, "repair", t.self.Pos)
	if merchant == nil {
		r.logger.Info("damaged gear but no repair merchant in zone",
			zap.String("wallet", r.wallet),
			zap.String("zone", t.zone.ID))
		return true
	}

	if t.self.Pos.DistanceTo(merchant.Pos) > engagementRange {
		if _, err := r.world.Move(ctx, t.token, t.self.ID, merchant.Pos); err != nil {
			r.logger.Warn("walk to repair merchant failed",
				zap.String("wallet", r.wallet),
				zap.Error(err))
		}
		return true
	}

	res, err := r.world.Repair(ctx, t.token, t.self.ID, merchant.ID)
	if err != nil {
		r.logger.Warn("repair failed",
			zap.String("wallet", r.wallet),
			zap.Error(err))
	} else if res.Accepted {
		r.record(ctx, RoleActivity, "repaired gear at "+merchant.Name)
	}
	return true
}

// selfAdapt periodically overrides the configured focus based on
// situational need. It never runs for idle agents, fires at most one
// override per invocation, and the override takes effect next tick via
// the mutated config.
func (r *Runner) selfAdapt(ctx context.Context, t *tickState) bool {
	if t.cfg.Focus == FocusIdle {
		return false
	}
	if r.focusTicks == 0 || r.focusTicks%adaptEvery != 0 {
		return false
	}

	// 1. Weaponless with money to spend: go shopping.
	if !weaponEquipped(t.self) && t.self.Gold >= shoppingGoldThreshold {
		return r.overrideFocus(ctx, t, FocusShopping, "no weapon equipped")
	}

	// 2. Out of consumables while hurt: go cook.
	noFood := findConsumable(t.self.Inventory, world.ItemFood) == nil
	noPotion := findConsumable(t.self.Inventory, world.ItemPotion) == nil
	hurt := t.self.MaxHP > 0 &&
		float64(t.self.HP)/float64(t.self.MaxHP) < lowSupplyHPFraction
	if noFood && noPotion && hurt {
		return r.overrideFocus(ctx, t, FocusCooking, "no consumables while hurt")
	}

	// 3. Overleveled for the zone: travel to the hardest zone the agent
	// now qualifies for.
	if t.self.Level >= t.zone.LevelRequirement+overlevelMargin {
		target := r.highestQualifyingZone(ctx, t)
		if target != "" && target != t.zone.ID {
			if err := r.store.SetTargetZone(ctx, r.wallet, target); err != nil {
				r.logger.Warn("target zone update failed",
					zap.String("wallet", r.wallet),
					zap.Error(err))
				return false
			}
			return r.overrideFocus(ctx, t, FocusTraveling,
				fmt.Sprintf("overleveled for %s, heading to %s", t.zone.ID, target))
		}
	}

	return false
}

// overrideFocus patches the external config so the new focus takes
// effect on the next tick, and treats the adaptation as this tick's
// action.
func (r *Runner) overrideFocus(ctx context.Context, t *tickState, f Focus, why string) bool {
	if err := r.store.SetFocus(ctx, r.wallet, f); err != nil {
		r.logger.Warn("focus override failed",
			zap.String("wallet", r.wallet),
			zap.Error(err))
		return false
	}
	r.logger.Info("focus self-adapted",
		zap.String("wallet", r.wallet),
		zap.String("from", string(t.cfg.Focus)),
		zap.String("to", string(f)),
		zap.String("why", why))
	r.record(ctx, RoleSystem, fmt.Sprintf("focus changed %s -> %s: %s", t.cfg.Focus, f, why))
	return true
}

// highestQualifyingZone returns the ID of the highest-requirement zone
// the agent's level meets, or "" when the catalog is unavailable.
func (r *Runner) highestQualifyingZone(ctx context.Context, t *tickState) string {
	zones, err := r.world.Zones(ctx, t.token)
	if err != nil {
		r.logger.Warn("zone catalog read failed",
			zap.String("wallet", r.wallet),
			zap.Error(err))
		return ""
	}
	best := ""
	bestReq := -1
	for _, z := range zones {
		if z.LevelRequirement <= t.self.Level && z.LevelRequirement > bestReq {
			best = z.ID
			bestReq = z.LevelRequirement
		}
	}
	return best
}

// findConsumable returns the first inventory item of the given kind, or
// nil. First match wins; callers order their preference themselves.
func findConsumable(items []world.Item, kind world.ItemKind) *world.Item {
	for i := range items {
		if items[i].Kind == kind {
			return &items[i]
		}
	}
	return nil
}

// weaponEquipped reports whether any equipped slot holds a weapon.
func weaponEquipped(p *world.PlayerState) bool {
	for _, slot := range p.Equipment {
		if slot.Item != nil && slot.Item.Kind == world.ItemWeapon {
			return true
		}
	}
	return false
}

// nearestNPCWithService returns the closest NPC offering the service, or
// nil when the zone has none.
func nearestNPCWithService(zone *world.ZoneState, service string, from world.Position) *world.NPC {
	var best *world.NPC
	bestDist := 0.0
	for i := range zone.NPCs {
		npc := &zone.NPCs[i]
		if !hasService(npc, service) {
			continue
		}
		d := from.DistanceTo(npc.Pos)
		if best == nil || d < bestDist {
			best = npc
			bestDist = d
		}
	}
	return best
}

func hasService(npc *world.NPC, service string) bool {
	for _, s := range npc.Services {
		if s == service {
			return true
		}
	}
	return false
}
