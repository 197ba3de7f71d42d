package runner

import (
	"context"
	"fmt"

	"github.com/morrigan/wyrmhold/internal/world"
)

// Direct action helpers for user-directed commands that bypass the focus
// dispatcher. Unlike tick behaviors they surface their failures, since a
// human is waiting on the answer.

// prepare authenticates and locates the entity outside the tick loop.
func (r *Runner) prepare(ctx context.Context) (*tickState, error) {
	cfg, err := r.store.AgentConfig(ctx, r.wallet)
	if err != nil {
		return nil, fmt.Errorf("read agent config: %w", err)
	}
	if !r.ensureAuthenticated(ctx, cfg) {
		return nil, fmt.Errorf("authentication failed for %s", r.wallet)
	}
	if !r.ensureEntityLocated(ctx, cfg) {
		return nil, fmt.Errorf("entity for %s not found in any zone", r.wallet)
	}
	self, zone, err := r.readSelf(ctx)
	if err != nil {
		return nil, fmt.Errorf("read entity state: %w", err)
	}
	return &tickState{cfg: cfg, self: self, zone: zone, token: r.token()}, nil
}

// BuyItem purchases a named item from the nearest merchant and equips it
// if it is gear.
func (r *Runner) BuyItem(ctx context.Context, itemID string) error {
	t, err := r.prepare(ctx)
	if err != nil {
		return err
	}
	merchant := nearestNPCWithService(t.zone, "shop", t.self.Pos)
	if merchant == nil {
		return fmt.Errorf("no merchant in zone %s", t.zone.ID)
	}
	res, err := r.world.Buy(ctx, t.token, t.self.ID, merchant.ID, itemID)
	if err != nil {
		return fmt.Errorf("buy %s: %w", itemID, err)
	}
	if !res.Accepted {
		return fmt.Errorf("purchase rejected: %s", res.Reason)
	}
	r.record(ctx, RoleActivity, "bought "+itemID+" on request")
	return nil
}

// EquipItem equips an inventory item.
func (r *Runner) EquipItem(ctx context.Context, itemID string) error {
	t, err := r.prepare(ctx)
	if err != nil {
		return err
	}
	res, err := r.world.Equip(ctx, t.token, t.self.ID, itemID)
	if err != nil {
		return fmt.Errorf("equip %s: %w", itemID, err)
	}
	if !res.Accepted {
		return fmt.Errorf("equip rejected: %s", res.Reason)
	}
	return nil
}

// RepairGear repairs all damaged slots at the nearest repair merchant.
func (r *Runner) RepairGear(ctx context.Context) error {
	t, err := r.prepare(ctx)
	if err != nil {
		return err
	}
	merchant := nearestNPCWithService(t.zone, "repair", t.self.Pos)
	if merchant == nil {
		return fmt.Errorf("no repair merchant in zone %s", t.zone.ID)
	}
	res, err := r.world.Repair(ctx, t.token, t.self.ID, merchant.ID)
	if err != nil {
		return fmt.Errorf("repair: %w", err)
	}
	if !res.Accepted {
		return fmt.Errorf("repair rejected: %s", res.Reason)
	}
	r.record(ctx, RoleActivity, "repaired gear on request")
	return nil
}

// LearnProfession learns a profession at a trainer in the current zone.
func (r *Runner) LearnProfession(ctx context.Context, profession string) error {
	t, err := r.prepare(ctx)
	if err != nil {
		return err
	}
	if knowsProfession(t.self, profession) {
		return nil
	}
	trainer := nearestNPCWithService(t.zone, "train:"+profession, t.self.Pos)
	if trainer == nil {
		return fmt.Errorf("no %s trainer in zone %s", profession, t.zone.ID)
	}
	res, err := r.world.LearnProfession(ctx, t.token, t.self.ID, profession)
	if err != nil {
		return fmt.Errorf("learn %s: %w", profession, err)
	}
	if !res.Accepted {
		return fmt.Errorf("training rejected: %s", res.Reason)
	}
	r.record(ctx, RoleActivity, "learned profession "+profession)
	return nil
}

// Snapshot returns the agent's current entity state for status queries.
func (r *Runner) Snapshot(ctx context.Context) (*world.PlayerState, error) {
	t, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	return t.self, nil
}
