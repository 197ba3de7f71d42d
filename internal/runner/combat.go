package runner

import (
	"context"
	"fmt"
	"sort"

	"github.com/morrigan/wyrmhold/internal/world"
	"go.uber.org/zap"
)

// doCombat picks a mob within the strategy's engagement cap and either
// closes distance or attacks.
func (r *Runner) doCombat(ctx context.Context, t *tickState) error {
	target := selectCombatTarget(t.zone.Mobs, t.self.Level, t.cfg.Strategy, t.self.Pos)
	if target == nil {
		r.logger.Debug("no eligible combat targets",
			zap.String("wallet", r.wallet),
			zap.String("zone", t.zone.ID))
		return nil
	}

	if t.self.Pos.DistanceTo(target.Pos) > engagementRange {
		_, err := r.world.Move(ctx, t.token, t.self.ID, target.Pos)
		if err != nil {
			return fmt.Errorf("move toward %s: %w", target.ID, err)
		}
		return nil
	}

	res, err := r.world.Attack(ctx, t.token, t.self.ID, target.ID)
	if err != nil {
		return fmt.Errorf("attack %s: %w", target.ID, err)
	}
	if res.Accepted {
		r.record(ctx, RoleActivity, fmt.Sprintf("attacking %s (level %d)",
			target.Name, target.Level))
	}
	return nil
}

// selectCombatTarget filters living mobs at or below the strategy's
// engagement cap. Aggressive agents pick the highest-level candidate
// (ties broken by distance); other strategies pick the nearest.
func selectCombatTarget(mobs []world.Mob, level int, strategy Strategy, from world.Position) *world.Mob {
	levelCap := level + strategy.EngageCapOffset()

	var eligible []*world.Mob
	for i := range mobs {
		if mobs[i].Alive && mobs[i].Level <= levelCap {
			eligible = append(eligible, &mobs[i])
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	if strategy == StrategyAggressive {
		sort.Slice(eligible, func(i, j int) bool {
			if eligible[i].Level != eligible[j].Level {
				return eligible[i].Level > eligible[j].Level
			}
			return from.DistanceTo(eligible[i].Pos) < from.DistanceTo(eligible[j].Pos)
		})
	} else {
		sort.Slice(eligible, func(i, j int) bool {
			return from.DistanceTo(eligible[i].Pos) < from.DistanceTo(eligible[j].Pos)
		})
	}
	return eligible[0]
}
