package runner

import (
	"context"
	"fmt"

	"github.com/morrigan/wyrmhold/internal/world"
	"go.uber.org/zap"
)

// doTraveling moves the agent toward the configured target zone, one hop
// per tick. A reached (or absent) target clears the override and reverts
// to questing. Direct neighbors are entered when the level gate allows;
// otherwise the hop minimizing the fixed linear zone-order distance to
// the target is taken. A level gate anywhere on the path falls back to
// combat to grind rather than blocking.
func (r *Runner) doTraveling(ctx context.Context, t *tickState) error {
	target := t.cfg.TargetZone
	if target == "" || target == t.zone.ID {
		if err := r.store.SetTargetZone(ctx, r.wallet, ""); err != nil {
			return fmt.Errorf("clear target zone: %w", err)
		}
		if err := r.store.SetFocus(ctx, r.wallet, FocusQuesting); err != nil {
			return fmt.Errorf("revert focus: %w", err)
		}
		if target != "" {
			r.record(ctx, RoleActivity, "arrived in zone "+target)
		}
		return nil
	}

	links, err := r.world.ZoneNeighbors(ctx, t.token, t.zone.ID)
	if err != nil {
		return fmt.Errorf("zone neighbors: %w", err)
	}

	hop := pickTravelHop(links, target, r.targetOrder(ctx, t, target))
	if hop == nil {
		r.logger.Info("no route toward target zone",
			zap.String("wallet", r.wallet),
			zap.String("from", t.zone.ID),
			zap.String("target", target))
		return r.delegate(ctx, t, FocusCombat)
	}

	if t.self.Level < hop.LevelRequirement {
		r.logger.Info("level gate on travel path, grinding instead",
			zap.String("wallet", r.wallet),
			zap.String("zone", hop.ZoneID),
			zap.Int("required", hop.LevelRequirement),
			zap.Int("level", t.self.Level))
		return r.delegate(ctx, t, FocusCombat)
	}

	res, err := r.world.Travel(ctx, t.token, t.self.ID, hop.ZoneID)
	if err != nil {
		return fmt.Errorf("travel to %s: %w", hop.ZoneID, err)
	}
	if res.Accepted {
		r.record(ctx, RoleActivity, fmt.Sprintf("traveling %s -> %s", t.zone.ID, hop.ZoneID))
	}
	return nil
}

// targetOrder resolves the target zone's position in the world's linear
// zone ordering, falling back to -1 when the catalog is unreadable.
func (r *Runner) targetOrder(ctx context.Context, t *tickState, target string) int {
	zones, err := r.world.Zones(ctx, t.token)
	if err != nil {
		r.logger.Warn("zone catalog read failed",
			zap.String("wallet", r.wallet),
			zap.Error(err))
		return -1
	}
	for _, z := range zones {
		if z.ID == target {
			return z.Order
		}
	}
	return -1
}

// pickTravelHop chooses the next zone: the target itself when adjacent,
// otherwise the neighbor closest to the target in zone order. The
// monotone order heuristic guarantees each hop moves strictly closer, so
// the route never oscillates.
func pickTravelHop(links []world.ZoneLink, target string, targetOrder int) *world.ZoneLink {
	for i := range links {
		if links[i].ZoneID == target {
			return &links[i]
		}
	}
	if targetOrder < 0 {
		return nil
	}
	var best *world.ZoneLink
	bestDist := 0
	for i := range links {
		d := links[i].Order - targetOrder
		if d < 0 {
			d = -d
		}
		if best == nil || d < bestDist {
			best = &links[i]
			bestDist = d
		}
	}
	return best
}
