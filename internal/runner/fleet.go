package runner

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Fleet owns all live runners and enforces that each owning wallet has
// at most one behavior scheduler at a time. Runners are independent
// loops; the fleet itself holds no cross-agent state beyond the map.
type Fleet struct {
	deps   Deps
	logger *zap.Logger

	mu      sync.Mutex
	runners map[string]*Runner
}

// NewFleet creates an empty fleet sharing one set of collaborators.
func NewFleet(deps Deps, logger *zap.Logger) *Fleet {
	return &Fleet{
		deps:    deps,
		logger:  logger,
		runners: make(map[string]*Runner),
	}
}

// Deploy starts a runner for a wallet. With waitForFirstTick the call
// blocks until the first successful tick and returns its failure.
func (f *Fleet) Deploy(ctx context.Context, wallet string, waitForFirstTick bool) error {
	f.mu.Lock()
	r, ok := f.runners[wallet]
	if ok && r.Running() {
		f.mu.Unlock()
		return fmt.Errorf("agent %s: %w", wallet, ErrAlreadyRunning)
	}
	r = New(wallet, f.deps, f.logger.With(zap.String("wallet", wallet)))
	f.runners[wallet] = r
	f.mu.Unlock()

	if err := r.Start(ctx, waitForFirstTick); err != nil {
		f.mu.Lock()
		if f.runners[wallet] == r {
			delete(f.runners, wallet)
		}
		f.mu.Unlock()
		return err
	}
	return nil
}

// Halt stops a wallet's runner. Halting an idle wallet is a no-op.
func (f *Fleet) Halt(wallet string) {
	f.mu.Lock()
	r := f.runners[wallet]
	delete(f.runners, wallet)
	f.mu.Unlock()
	if r != nil {
		r.Stop()
	}
}

// Get returns the wallet's live runner for direct actions, or nil. A
// runner whose loop has died (a detached deploy failing its first tick,
// or a disable observed mid-loop) is pruned here rather than lingering
// in the map.
func (f *Fleet) Get(wallet string) *Runner {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.runners[wallet]
	if r != nil && !r.Running() {
		delete(f.runners, wallet)
		return nil
	}
	return r
}

// Running reports whether a wallet's loop is live.
func (f *Fleet) Running(wallet string) bool {
	return f.Get(wallet) != nil
}

// Wallets lists wallets whose loop is live, dropping dead entries.
func (f *Fleet) Wallets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.runners))
	for w, r := range f.runners {
		if !r.Running() {
			delete(f.runners, w)
			continue
		}
		out = append(out, w)
	}
	return out
}

// StopAll halts every runner, for shutdown.
func (f *Fleet) StopAll() {
	f.mu.Lock()
	runners := make([]*Runner, 0, len(f.runners))
	for _, r := range f.runners {
		runners = append(runners, r)
	}
	f.runners = make(map[string]*Runner)
	f.mu.Unlock()
	for _, r := range runners {
		r.Stop()
	}
}
