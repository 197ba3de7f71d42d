package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/morrigan/wyrmhold/internal/wallet"
	"github.com/morrigan/wyrmhold/internal/world"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyRunning is returned by Start when the runner's loop is
	// already live.
	ErrAlreadyRunning = errors.New("runner already started")

	// ErrDisabled means the agent config has enabled=false.
	ErrDisabled = errors.New("agent disabled in config")
)

// transientError marks conditions that are retried with backoff once the
// loop is past its first successful tick.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transient(err error) error { return &transientError{err: err} }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Deps bundles the external collaborators a Runner needs.
type Deps struct {
	Store    ConfigStore
	World    World
	Signer   wallet.Signer
	Activity ActivitySink

	// TickInterval defaults to one second; Backoff to DefaultBackoff.
	TickInterval time.Duration
	Backoff      BackoffPolicy

	// Now is the clock used for token expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// identity is the per-agent auth state, owned by one runner.
type identity struct {
	custodial string
	token     string
	expiry    time.Time
}

// Runner is one agent's behavior scheduler: a resilient tick loop that
// authenticates, locates the agent's entity, runs safety interrupts and
// dispatches the configured focus behavior, forever.
type Runner struct {
	wallet   string
	store    ConfigStore
	world    World
	signer   wallet.Signer
	activity ActivitySink
	logger   *zap.Logger

	tickInterval time.Duration
	backoff      BackoffPolicy
	now          func() time.Time

	// mu guards identity and ref, which direct action helpers touch from
	// outside the loop goroutine.
	mu  sync.Mutex
	id  identity
	ref EntityRef

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once

	// loop-local state, mutated only by the tick goroutine
	lastFocus  Focus
	focusTicks int
	failStreak int
}

// New creates a runner for one owning wallet.
func New(walletAddr string, deps Deps, logger *zap.Logger) *Runner {
	if deps.TickInterval <= 0 {
		deps.TickInterval = time.Second
	}
	if deps.Backoff.Base <= 0 {
		deps.Backoff = DefaultBackoff
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Runner{
		wallet:       walletAddr,
		store:        deps.Store,
		world:        deps.World,
		signer:       deps.Signer,
		activity:     deps.Activity,
		logger:       logger,
		tickInterval: deps.TickInterval,
		backoff:      deps.Backoff,
		now:          deps.Now,
	}
}

// Wallet returns the owning wallet address.
func (r *Runner) Wallet() string { return r.wallet }

// Running reports whether the tick loop is live.
func (r *Runner) Running() bool { return r.running.Load() }

// Start spawns the tick loop. With waitForFirstTick it blocks until the
// first fully successful tick and returns its failure, if any; otherwise
// a first-tick failure is only logged and recorded as a system activity
// entry so operators can spot silently misconfigured agents.
func (r *Runner) Start(ctx context.Context, waitForFirstTick bool) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	r.stopCh = make(chan struct{})
	r.stopOnce = sync.Once{}
	r.lastFocus = ""
	r.focusTicks = 0
	r.failStreak = 0

	first := make(chan error, 1)
	go r.loop(ctx, first)

	if waitForFirstTick {
		return <-first
	}
	go func() {
		if err := <-first; err != nil {
			r.logger.Warn("first tick failed, runner stopped",
				zap.String("wallet", r.wallet),
				zap.Error(err))
			_ = r.activity.Record(context.Background(), r.wallet, RoleSystem,
				"first_tick_failed: "+err.Error())
		}
	}()
	return nil
}

// Stop requests a cooperative shutdown. The flag is observed at the top
// of the next iteration; in-flight calls finish naturally.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		if r.stopCh != nil {
			close(r.stopCh)
		}
	})
}

func (r *Runner) loop(ctx context.Context, first chan<- error) {
	defer r.running.Store(false)

	firstTick := true
	resolve := func(err error) {
		if firstTick {
			first <- err
			firstTick = false
		}
	}

	for {
		select {
		case <-ctx.Done():
			resolve(ctx.Err())
			return
		case <-r.stopCh:
			resolve(errors.New("stopped before first tick"))
			return
		default:
		}

		err := r.runTick(ctx, func() { resolve(nil) })
		switch {
		case err == nil:
			r.failStreak = 0
			if !r.sleep(ctx, r.tickInterval) {
				return
			}

		case errors.Is(err, ErrDisabled):
			// Fatal in both phases; only rejects the start contract when
			// it happens before the first successful tick.
			if firstTick {
				resolve(err)
			} else {
				r.logger.Info("agent disabled, stopping loop",
					zap.String("wallet", r.wallet))
				_ = r.activity.Record(ctx, r.wallet, RoleSystem, "agent disabled, runner stopped")
			}
			return

		case isTransient(err):
			if firstTick {
				resolve(err)
				return
			}
			r.failStreak++
			delay := r.backoff.Delay(r.failStreak)
			r.logger.Warn("transient tick failure, backing off",
				zap.String("wallet", r.wallet),
				zap.Int("streak", r.failStreak),
				zap.Duration("delay", delay),
				zap.Error(err))
			if !r.sleep(ctx, delay) {
				return
			}

		default:
			// Unexpected error caught at the loop boundary.
			if firstTick {
				resolve(err)
				return
			}
			r.logger.Error("unexpected tick error",
				zap.String("wallet", r.wallet),
				zap.Error(err))
			if !r.sleep(ctx, r.tickInterval) {
				return
			}
		}
	}
}

// tickState carries the state one tick works against. Behaviors receive
// it instead of re-reading the world mid-tick.
type tickState struct {
	cfg   *AgentConfig
	self  *world.PlayerState
	zone  *world.ZoneState
	token string
	depth int
}

// maxFallbackDepth bounds behavior delegation chains within one tick
// (e.g. enchanting -> alchemy -> gathering -> combat).
const maxFallbackDepth = 4

// runTick executes one full scheduler cycle: config, auth, locate, read,
// interrupts, focus dispatch. onReady fires after the first fully
// successful entity read, resolving the start contract.
func (r *Runner) runTick(ctx context.Context, onReady func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tick panic: %v", rec)
		}
	}()

	cfg, err := r.store.AgentConfig(ctx, r.wallet)
	if err != nil {
		return transient(fmt.Errorf("read agent config: %w", err))
	}
	if !cfg.Enabled {
		return ErrDisabled
	}

	if !r.ensureAuthenticated(ctx, cfg) {
		return transient(fmt.Errorf("authentication failed for %s", r.wallet))
	}
	if !r.ensureEntityLocated(ctx, cfg) {
		return transient(fmt.Errorf("entity for %s not found in any zone", r.wallet))
	}

	self, zone, err := r.readSelf(ctx)
	if err != nil {
		return transient(fmt.Errorf("read entity state: %w", err))
	}
	onReady()

	t := &tickState{cfg: cfg, self: self, zone: zone, token: r.token()}
	r.trackFocus(cfg.Focus)

	if r.runInterrupts(ctx, t) {
		return nil
	}

	if err := r.dispatch(ctx, t); err != nil {
		// Behavior failures never escalate to loop-level errors.
		r.logger.Warn("focus behavior failed",
			zap.String("wallet", r.wallet),
			zap.String("focus", string(cfg.Focus)),
			zap.Error(err))
	}
	return nil
}

// trackFocus counts ticks since the focus last changed, feeding the
// self-adaptation rate limiter.
func (r *Runner) trackFocus(f Focus) {
	if f != r.lastFocus {
		r.lastFocus = f
		r.focusTicks = 0
		return
	}
	r.focusTicks++
}

// readSelf reads the agent's entity from its cached zone. A failed read
// against the cached ref invalidates it, forcing a full re-scan before
// any further action.
func (r *Runner) readSelf(ctx context.Context) (*world.PlayerState, *world.ZoneState, error) {
	ref := r.entityRef()
	zone, err := r.world.ZoneState(ctx, r.token(), ref.ZoneID)
	if err != nil {
		r.setEntityRef(EntityRef{})
		return nil, nil, err
	}
	self := zone.Player(ref.EntityID)
	if self == nil {
		r.setEntityRef(EntityRef{})
		return nil, nil, fmt.Errorf("entity %s missing from zone %s", ref.EntityID, ref.ZoneID)
	}
	return self, zone, nil
}

// sleep waits for d, returning false if the runner was stopped or the
// context cancelled meanwhile.
func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-r.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}

func (r *Runner) token() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id.token
}

func (r *Runner) entityRef() EntityRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ref
}

func (r *Runner) setEntityRef(ref EntityRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ref = ref
}

// record appends an activity entry, logging instead of failing the tick
// when the sink is unavailable.
func (r *Runner) record(ctx context.Context, role, text string) {
	if err := r.activity.Record(ctx, r.wallet, role, text); err != nil {
		r.logger.Warn("activity record failed",
			zap.String("wallet", r.wallet),
			zap.Error(err))
	}
}
