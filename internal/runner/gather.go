package runner

import (
	"context"
	"fmt"

	"github.com/morrigan/wyrmhold/internal/world"
	"go.uber.org/zap"
)

// Professions required to harvest each resource kind.
const (
	professionMining    = "mining"
	professionHerbalism = "herbalism"
	professionSmithing  = "smithing"
	professionAlchemy   = "alchemy"
	professionCooking   = "cooking"
)

func professionFor(kind world.ResourceKind) string {
	if kind == world.ResourceOre {
		return professionMining
	}
	return professionHerbalism
}

// doGathering harvests the nearest resource node, learning the matching
// profession first when needed. Falls back to combat when the zone has
// nothing to gather.
func (r *Runner) doGathering(ctx context.Context, t *tickState) error {
	node := nearestResource(t.zone.Resources, t.self.Pos)
	if node == nil {
		return r.delegate(ctx, t, FocusCombat)
	}

	if t.self.Pos.DistanceTo(node.Pos) > engagementRange {
		_, err := r.world.Move(ctx, t.token, t.self.ID, node.Pos)
		if err != nil {
			return fmt.Errorf("move toward node %s: %w", node.ID, err)
		}
		return nil
	}

	profession := professionFor(node.Kind)
	if !knowsProfession(t.self, profession) {
		return r.learnProfessionStep(ctx, t, profession)
	}

	res, err := r.world.Gather(ctx, t.token, t.self.ID, node.ID)
	if err != nil {
		return fmt.Errorf("gather %s: %w", node.ID, err)
	}
	if res.Accepted {
		r.record(ctx, RoleActivity, fmt.Sprintf("gathering %s", node.Kind))
	}
	return nil
}

// learnProfessionStep walks to a trainer and learns a profession. It is
// a sub-step of gathering/crafting and uses the rest of the tick.
func (r *Runner) learnProfessionStep(ctx context.Context, t *tickState, profession string) error {
	trainer := nearestNPCWithService(t.zone, "train:"+profession, t.self.Pos)
	if trainer == nil {
		r.logger.Info("no trainer for profession in zone",
			zap.String("wallet", r.wallet),
			zap.String("profession", profession),
			zap.String("zone", t.zone.ID))
		return nil
	}

	if t.self.Pos.DistanceTo(trainer.Pos) > engagementRange {
		_, err := r.world.Move(ctx, t.token, t.self.ID, trainer.Pos)
		if err != nil {
			return fmt.Errorf("move toward trainer %s: %w", trainer.ID, err)
		}
		return nil
	}

	res, err := r.world.LearnProfession(ctx, t.token, t.self.ID, profession)
	if err != nil {
		return fmt.Errorf("learn %s: %w", profession, err)
	}
	if res.Accepted {
		r.record(ctx, RoleActivity, "learned profession "+profession)
	}
	return nil
}

func knowsProfession(p *world.PlayerState, profession string) bool {
	for _, known := range p.Professions {
		if known == profession {
			return true
		}
	}
	return false
}

// nearestResource returns the closest non-depleted node, or nil.
func nearestResource(nodes []world.ResourceNode, from world.Position) *world.ResourceNode {
	var best *world.ResourceNode
	bestDist := 0.0
	for i := range nodes {
		if nodes[i].Depleted {
			continue
		}
		d := from.DistanceTo(nodes[i].Pos)
		if best == nil || d < bestDist {
			best = &nodes[i]
			bestDist = d
		}
	}
	return best
}

// nearestStation returns the closest station of a kind, or nil.
func nearestStation(stations []world.Station, kind world.StationKind, from world.Position) *world.Station {
	var best *world.Station
	bestDist := 0.0
	for i := range stations {
		if stations[i].Kind != kind {
			continue
		}
		d := from.DistanceTo(stations[i].Pos)
		if best == nil || d < bestDist {
			best = &stations[i]
			bestDist = d
		}
	}
	return best
}
