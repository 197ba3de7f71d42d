package runner

import (
	"context"
	"fmt"

	"github.com/morrigan/wyrmhold/internal/world"
	"go.uber.org/zap"
)

// doShopping fills empty equipment slots one purchase per tick, buying
// the cheapest affordable catalog item for the first unfilled slot and
// equipping it immediately. Fully geared or broke, the agent goes back
// to fighting.
func (r *Runner) doShopping(ctx context.Context, t *tickState) error {
	empty := emptySlots(t.self)
	if len(empty) == 0 {
		return r.delegate(ctx, t, FocusCombat)
	}

	merchant := nearestNPCWithService(t.zone, "shop", t.self.Pos)
	if merchant == nil {
		return r.delegate(ctx, t, FocusCombat)
	}

	if t.self.Pos.DistanceTo(merchant.Pos) > engagementRange {
		_, err := r.world.Move(ctx, t.token, t.self.ID, merchant.Pos)
		if err != nil {
			return fmt.Errorf("move toward merchant %s: %w", merchant.ID, err)
		}
		return nil
	}

	gold, err := r.world.Balance(ctx, t.token, t.self.ID)
	if err != nil {
		// Tolerate a missing balance read; the zone snapshot is close
		// enough for an affordability check.
		gold = t.self.Gold
	}

	catalog, err := r.world.ShopCatalog(ctx, t.token, merchant.ID)
	if err != nil {
		r.logger.Warn("shop catalog read failed",
			zap.String("wallet", r.wallet),
			zap.String("merchant", merchant.ID),
			zap.Error(err))
		return r.delegate(ctx, t, FocusCombat)
	}

	for _, slot := range empty {
		item := cheapestForSlot(catalog, slot, gold)
		if item == nil {
			continue
		}
		res, err := r.world.Buy(ctx, t.token, t.self.ID, merchant.ID, item.ID)
		if err != nil {
			return fmt.Errorf("buy %s: %w", item.ID, err)
		}
		if !res.Accepted {
			continue
		}
		if _, err := r.world.Equip(ctx, t.token, t.self.ID, item.ID); err != nil {
			r.logger.Warn("equip after purchase failed",
				zap.String("wallet", r.wallet),
				zap.String("item", item.ID),
				zap.Error(err))
		}
		r.record(ctx, RoleActivity, fmt.Sprintf("bought %s for %d gold", item.Name, item.Price))
		// One purchase per tick keeps the loop responsive to interrupts.
		return nil
	}

	return r.delegate(ctx, t, FocusCombat)
}

// emptySlots lists the equipment slot names with nothing equipped, in
// the world's slot order.
func emptySlots(p *world.PlayerState) []string {
	var empty []string
	for _, slot := range p.Equipment {
		if slot.Item == nil {
			empty = append(empty, slot.Slot)
		}
	}
	return empty
}

// cheapestForSlot picks the cheapest catalog item for a slot within
// budget, or nil.
func cheapestForSlot(catalog []world.Item, slot string, budget int) *world.Item {
	var best *world.Item
	for i := range catalog {
		item := &catalog[i]
		if item.Slot != slot || item.Price > budget {
			continue
		}
		if best == nil || item.Price < best.Price {
			best = item
		}
	}
	return best
}
