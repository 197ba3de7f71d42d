package runner

import (
	"context"
	"fmt"

	"github.com/morrigan/wyrmhold/internal/world"
	"go.uber.org/zap"
)

// engagementRange is how close the agent must be before it attacks,
// gathers, crafts or trades instead of walking.
const engagementRange = 2.5

// behaviorFunc is one focus routine, executed against the tick's state.
type behaviorFunc func(r *Runner, ctx context.Context, t *tickState) error

// behaviorTable maps every focus to its routine. Adding a Focus value
// without a row here fails the dispatch exhaustiveness test. Populated
// in init because the behaviors reach back into the table through
// delegate, which a package-level initializer cannot express.
var behaviorTable map[Focus]behaviorFunc

func init() {
	behaviorTable = map[Focus]behaviorFunc{
		FocusQuesting:   (*Runner).doQuesting,
		FocusCombat:     (*Runner).doCombat,
		FocusGathering:  (*Runner).doGathering,
		FocusCrafting:   (*Runner).doCrafting,
		FocusAlchemy:    (*Runner).doAlchemy,
		FocusCooking:    (*Runner).doCooking,
		FocusEnchanting: (*Runner).doEnchanting,
		FocusTrading:    (*Runner).doShopping,
		FocusShopping:   (*Runner).doShopping,
		FocusTraveling:  (*Runner).doTraveling,
		FocusIdle:       (*Runner).doIdle,
	}
}

// dispatch runs the behavior for the tick's configured focus.
func (r *Runner) dispatch(ctx context.Context, t *tickState) error {
	fn, ok := behaviorTable[t.cfg.Focus]
	if !ok {
		return fmt.Errorf("no behavior for focus %q", t.cfg.Focus)
	}
	return fn(r, ctx, t)
}

// delegate falls back to another behavior within the same tick, bounded
// so delegation chains cannot cycle.
func (r *Runner) delegate(ctx context.Context, t *tickState, f Focus) error {
	if t.depth >= maxFallbackDepth {
		r.logger.Debug("fallback chain exhausted",
			zap.String("wallet", r.wallet),
			zap.String("focus", string(f)))
		return nil
	}
	t.depth++
	return behaviorTable[f](r, ctx, t)
}

// doQuesting accepts the first available quest at the current location,
// then makes progress through combat. "Already accepted" counts as
// success.
func (r *Runner) doQuesting(ctx context.Context, t *tickState) error {
	quests, err := r.world.Quests(ctx, t.token, t.zone.ID)
	if err != nil {
		r.logger.Warn("quest discovery failed",
			zap.String("wallet", r.wallet),
			zap.Error(err))
		return r.delegate(ctx, t, FocusCombat)
	}
	if len(quests) == 0 {
		return r.delegate(ctx, t, FocusCombat)
	}

	quest := quests[0]
	if !quest.Accepted {
		res, err := r.world.AcceptQuest(ctx, t.token, t.self.ID, quest.ID)
		switch {
		case err != nil:
			r.logger.Warn("quest accept failed",
				zap.String("wallet", r.wallet),
				zap.String("quest", quest.ID),
				zap.Error(err))
		case res.Accepted || res.Reason == world.ReasonAlreadyAccepted:
			r.record(ctx, RoleActivity, "accepted quest "+quest.Name)
		}
	}
	return r.delegate(ctx, t, FocusCombat)
}

// doIdle is the explicit no-op behavior.
func (r *Runner) doIdle(context.Context, *tickState) error { return nil }
