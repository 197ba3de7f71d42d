package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/morrigan/wyrmhold/internal/world"
)

func TestStartRejectsDisabledAgent(t *testing.T) {
	cfg := baseConfig(FocusIdle, StrategyBalanced)
	cfg.Enabled = false
	h := newHarness(cfg, &fakeWorld{zone: testZone(testPlayer())})

	err := h.r.Start(context.Background(), true)
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("Start = %v, want ErrDisabled", err)
	}
	waitStopped(t, h.r)
}

func TestStartRejectsWhenEntityMissing(t *testing.T) {
	w := &fakeWorld{} // no zones: locate fails
	h := newHarness(baseConfig(FocusIdle, StrategyBalanced), w)

	err := h.r.Start(context.Background(), true)
	if err == nil {
		t.Fatal("Start must surface a first-tick locate failure")
	}
	waitStopped(t, h.r)
}

func TestStartResolvesOnFirstSuccessfulTick(t *testing.T) {
	h := newHarness(baseConfig(FocusIdle, StrategyBalanced), &fakeWorld{zone: testZone(testPlayer())})

	if err := h.r.Start(context.Background(), true); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !h.r.Running() {
		t.Fatal("runner should be live after a successful start")
	}
	h.r.Stop()
	waitStopped(t, h.r)
}

func TestStartDetachedRecordsFirstTickFailure(t *testing.T) {
	w := &fakeWorld{} // locate will fail
	h := newHarness(baseConfig(FocusIdle, StrategyBalanced), w)

	if err := h.r.Start(context.Background(), false); err != nil {
		t.Fatalf("detached Start must not surface the failure, got %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(h.sink.byRole(RoleSystem)) > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("detached first-tick failure was not recorded as a system entry")
}

func TestDoubleStartFails(t *testing.T) {
	h := newHarness(baseConfig(FocusIdle, StrategyBalanced), &fakeWorld{zone: testZone(testPlayer())})

	if err := h.r.Start(context.Background(), true); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		h.r.Stop()
		waitStopped(t, h.r)
	}()

	if err := h.r.Start(context.Background(), true); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start = %v, want ErrAlreadyRunning", err)
	}
}

func TestDisableStopsLoopAfterFirstTick(t *testing.T) {
	h := newHarness(baseConfig(FocusIdle, StrategyBalanced), &fakeWorld{zone: testZone(testPlayer())})

	if err := h.r.Start(context.Background(), true); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.store.mu.Lock()
	h.store.cfg.Enabled = false
	h.store.mu.Unlock()

	waitStopped(t, h.r)
}

func TestTransientErrorBacksOffAndRecovers(t *testing.T) {
	w := &fakeWorld{zone: testZone(testPlayer())}
	h := newHarness(baseConfig(FocusIdle, StrategyBalanced), w)

	if err := h.r.Start(context.Background(), true); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		h.r.Stop()
		waitStopped(t, h.r)
	}()

	// Break config reads: ticks turn transient, the loop stays alive.
	h.store.mu.Lock()
	h.store.cfgErr = errors.New("db gone")
	h.store.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	if !h.r.Running() {
		t.Fatal("transient failures must not kill the loop")
	}

	// Heal the store: the loop recovers on its own.
	h.store.mu.Lock()
	h.store.cfgErr = nil
	h.store.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	if !h.r.Running() {
		t.Fatal("loop should survive recovery")
	}
}

func TestTrackFocusResetsOnChange(t *testing.T) {
	h := newHarness(baseConfig(FocusIdle, StrategyBalanced), &fakeWorld{})

	h.r.trackFocus(FocusCombat)
	h.r.trackFocus(FocusCombat)
	h.r.trackFocus(FocusCombat)
	if h.r.focusTicks != 2 {
		t.Fatalf("focusTicks = %d, want 2", h.r.focusTicks)
	}
	h.r.trackFocus(FocusGathering)
	if h.r.focusTicks != 0 {
		t.Fatalf("focusTicks = %d, want reset to 0 on change", h.r.focusTicks)
	}
}

func TestTickRecoversFromPanic(t *testing.T) {
	ctx := context.Background()
	p := testPlayer()
	p.HP = 10
	w := &fakeWorld{zone: testZone(p)}
	w.onConsume = func(string) (*world.CommandResult, error) { panic("boom") }
	h := newHarness(baseConfig(FocusIdle, StrategyBalanced), w)

	err := h.tick(ctx)
	if err == nil {
		t.Fatal("a panicking tick must surface as an error")
	}
	if !strings.Contains(err.Error(), "tick panic") {
		t.Fatalf("err = %v, want a recovered panic", err)
	}
}

// waitStopped blocks until the runner's loop exits or the test times out.
func waitStopped(t *testing.T, r *Runner) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !r.Running() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("runner did not stop in time")
}
