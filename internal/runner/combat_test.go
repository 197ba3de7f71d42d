package runner

import (
	"context"
	"testing"

	"github.com/morrigan/wyrmhold/internal/world"
)

func threeMobs() []world.Mob {
	return []world.Mob{
		{ID: "rat", Name: "rat", Level: 8, Alive: true, Pos: world.Position{X: 1, Y: 0}},
		{ID: "wolf", Name: "wolf", Level: 12, Alive: true, Pos: world.Position{X: 5, Y: 0}},
		{ID: "troll", Name: "troll", Level: 16, Alive: true, Pos: world.Position{X: 2, Y: 0}},
	}
}

func TestSelectCombatTargetRespectsEngageCap(t *testing.T) {
	from := world.Position{}

	// Level 10 aggressive: cap 15, so the troll (16) is out and the wolf
	// (12) is the highest eligible.
	got := selectCombatTarget(threeMobs(), 10, StrategyAggressive, from)
	if got == nil || got.ID != "wolf" {
		t.Fatalf("aggressive pick = %v, want wolf", got)
	}

	// Balanced: cap 12, nearest eligible wins.
	got = selectCombatTarget(threeMobs(), 10, StrategyBalanced, from)
	if got == nil || got.ID != "rat" {
		t.Fatalf("balanced pick = %v, want rat", got)
	}

	// Defensive: cap 10, only the rat qualifies.
	got = selectCombatTarget(threeMobs(), 10, StrategyDefensive, from)
	if got == nil || got.ID != "rat" {
		t.Fatalf("defensive pick = %v, want rat", got)
	}
}

func TestSelectCombatTargetSkipsDead(t *testing.T) {
	mobs := threeMobs()
	mobs[0].Alive = false
	got := selectCombatTarget(mobs, 10, StrategyDefensive, world.Position{})
	if got != nil {
		t.Fatalf("got %s, want nil when every eligible mob is dead", got.ID)
	}
}

func TestSelectCombatTargetAggressiveTieBreaksByDistance(t *testing.T) {
	mobs := []world.Mob{
		{ID: "far", Level: 12, Alive: true, Pos: world.Position{X: 9, Y: 0}},
		{ID: "near", Level: 12, Alive: true, Pos: world.Position{X: 1, Y: 0}},
	}
	got := selectCombatTarget(mobs, 10, StrategyAggressive, world.Position{})
	if got == nil || got.ID != "near" {
		t.Fatalf("got %v, want near", got)
	}
}

func TestDoCombatMovesThenAttacks(t *testing.T) {
	ctx := context.Background()

	p := testPlayer()
	zone := testZone(p)
	zone.Mobs = []world.Mob{
		{ID: "wolf", Name: "wolf", Level: 9, Alive: true, Pos: world.Position{X: 10, Y: 0}},
	}
	w := &fakeWorld{zone: zone}
	h := newHarness(baseConfig(FocusCombat, StrategyBalanced), w)

	if err := h.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(w.callsTo("move:")) != 1 {
		t.Fatalf("expected a move toward the distant mob, calls: %v", w.calls)
	}
	if len(w.callsTo("attack:")) != 0 {
		t.Fatal("must not attack from out of range")
	}

	// Put the mob in range: the next tick attacks.
	zone.Mobs[0].Pos = world.Position{X: 1, Y: 0}
	w.zone = zone
	if err := h.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(w.callsTo("attack:wolf")) != 1 {
		t.Fatalf("expected one attack, calls: %v", w.calls)
	}
}

func TestDoCombatNoTargetIsQuietTick(t *testing.T) {
	ctx := context.Background()
	w := &fakeWorld{zone: testZone(testPlayer())}
	h := newHarness(baseConfig(FocusCombat, StrategyBalanced), w)

	if err := h.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(w.callsTo("attack:")) != 0 || len(w.callsTo("move:")) != 0 {
		t.Fatalf("empty zone should not act, calls: %v", w.calls)
	}
}
