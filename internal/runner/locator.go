package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ensureEntityLocated resolves which world entity, in which zone,
// represents this agent. The cached ref is only a hint: if the entity is
// not where the hint says, every zone is scanned, the corrected ref is
// persisted, and a zone transition is logged. Returns false only when
// the entity is found nowhere.
func (r *Runner) ensureEntityLocated(ctx context.Context, cfg *AgentConfig) bool {
	ref := r.entityRef()
	if !ref.Valid() {
		stored, err := r.store.EntityRef(ctx, r.wallet)
		if err != nil {
			r.logger.Warn("entity ref read failed",
				zap.String("wallet", r.wallet),
				zap.Error(err))
		} else {
			ref = stored
		}
	}

	if ref.Valid() {
		zone, err := r.world.ZoneState(ctx, r.token(), ref.ZoneID)
		if err == nil && zone.Player(ref.EntityID) != nil {
			r.setEntityRef(ref)
			return true
		}
		r.logger.Info("cached entity location stale, rescanning",
			zap.String("wallet", r.wallet),
			zap.String("zone", ref.ZoneID))
	}

	return r.rescan(ctx, cfg, ref)
}

// rescan walks every zone's state looking for an entity owned by the
// agent's custodial wallet.
func (r *Runner) rescan(ctx context.Context, cfg *AgentConfig, old EntityRef) bool {
	zones, err := r.world.WorldState(ctx, r.token())
	if err != nil {
		r.logger.Warn("world scan failed",
			zap.String("wallet", r.wallet),
			zap.Error(err))
		return false
	}

	for _, zone := range zones {
		for i := range zone.Players {
			p := &zone.Players[i]
			if p.Owner != cfg.CustodialWallet {
				continue
			}
			found := EntityRef{EntityID: p.ID, ZoneID: zone.ID}
			r.setEntityRef(found)
			if err := r.store.SetEntityRef(ctx, r.wallet, found); err != nil {
				r.logger.Warn("entity ref persist failed",
					zap.String("wallet", r.wallet),
					zap.Error(err))
			}
			if old.Valid() && old.ZoneID != zone.ID {
				r.record(ctx, RoleActivity,
					fmt.Sprintf("moved from zone %s to %s", old.ZoneID, zone.ID))
			}
			return true
		}
	}

	r.logger.Warn("entity not found in any zone",
		zap.String("wallet", r.wallet),
		zap.Int("zones_scanned", len(zones)))
	return false
}
