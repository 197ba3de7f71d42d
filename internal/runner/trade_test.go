package runner

import (
	"context"
	"testing"

	"github.com/morrigan/wyrmhold/internal/world"
)

func shoppingZone(p world.PlayerState) *world.ZoneState {
	z := testZone(p)
	z.NPCs = []world.NPC{
		{ID: "merchant", Name: "merchant", Pos: world.Position{X: 1, Y: 0}, Services: []string{"shop"}},
	}
	return z
}

func TestShoppingBuysCheapestForFirstEmptySlot(t *testing.T) {
	ctx := context.Background()

	p := testPlayer()
	p.Equipment = append(p.Equipment, world.GearSlot{Slot: "chest"}) // empty
	w := &fakeWorld{
		zone:    shoppingZone(p),
		balance: 50,
		catalog: []world.Item{
			{ID: "plate", Slot: "chest", Price: 40, Kind: world.ItemArmor},
			{ID: "tunic", Slot: "chest", Price: 12, Kind: world.ItemArmor},
			{ID: "crown", Slot: "head", Price: 5, Kind: world.ItemArmor},
		},
	}
	h := newHarness(baseConfig(FocusShopping, StrategyBalanced), w)

	if err := h.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(w.callsTo("buy:tunic")) != 1 {
		t.Fatalf("expected to buy the cheapest chest item, calls: %v", w.calls)
	}
	if len(w.callsTo("equip:tunic")) != 1 {
		t.Fatal("purchased gear must be equipped immediately")
	}
	if len(w.callsTo("buy:")) != 1 {
		t.Fatal("one purchase per tick")
	}
}

func TestShoppingFullyGearedFallsBackToCombat(t *testing.T) {
	ctx := context.Background()

	p := testPlayer() // weapon slot filled, no empty slots
	zone := shoppingZone(p)
	zone.Mobs = []world.Mob{{ID: "rat", Level: 5, Alive: true, Pos: world.Position{X: 1}}}
	w := &fakeWorld{zone: zone, balance: 50}
	h := newHarness(baseConfig(FocusShopping, StrategyBalanced), w)

	if err := h.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(w.callsTo("buy:")) != 0 {
		t.Fatal("fully geared agents must not shop")
	}
	if len(w.callsTo("attack:rat")) != 1 {
		t.Fatalf("expected a combat fallback, calls: %v", w.calls)
	}
}

func TestShoppingNothingAffordableFallsBack(t *testing.T) {
	ctx := context.Background()

	p := testPlayer()
	p.Equipment = append(p.Equipment, world.GearSlot{Slot: "chest"})
	w := &fakeWorld{
		zone:    shoppingZone(p),
		balance: 3,
		catalog: []world.Item{
			{ID: "plate", Slot: "chest", Price: 40, Kind: world.ItemArmor},
		},
	}
	h := newHarness(baseConfig(FocusShopping, StrategyBalanced), w)

	if err := h.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(w.callsTo("buy:")) != 0 {
		t.Fatal("must not buy beyond the balance")
	}
}

func TestQuestingAcceptsFirstQuestThenFights(t *testing.T) {
	ctx := context.Background()

	p := testPlayer()
	zone := testZone(p)
	zone.Mobs = []world.Mob{{ID: "rat", Level: 5, Alive: true, Pos: world.Position{X: 1}}}
	w := &fakeWorld{
		zone: zone,
		quests: []world.Quest{
			{ID: "q1", Name: "Cull the rats"},
			{ID: "q2", Name: "Later"},
		},
	}
	h := newHarness(baseConfig(FocusQuesting, StrategyBalanced), w)

	if err := h.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(w.callsTo("accept_quest:q1")) != 1 {
		t.Fatalf("expected to accept the first quest, calls: %v", w.calls)
	}
	if len(w.callsTo("attack:rat")) != 1 {
		t.Fatalf("expected quest progress through combat, calls: %v", w.calls)
	}
}

func TestQuestingToleratesAlreadyAccepted(t *testing.T) {
	ctx := context.Background()

	p := testPlayer()
	w := &fakeWorld{
		zone:   testZone(p),
		quests: []world.Quest{{ID: "q1", Name: "Cull the rats"}},
	}
	w.onAcceptQuest = func(string) (*world.CommandResult, error) {
		return &world.CommandResult{Reason: world.ReasonAlreadyAccepted}, nil
	}
	h := newHarness(baseConfig(FocusQuesting, StrategyBalanced), w)

	if err := h.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	found := false
	for _, e := range h.sink.byRole(RoleActivity) {
		if e.Text == "accepted quest Cull the rats" {
			found = true
		}
	}
	if !found {
		t.Fatal("already_accepted must count as a successful accept")
	}
}

func TestGatheringHarvestsNearestNode(t *testing.T) {
	ctx := context.Background()

	p := testPlayer()
	p.Professions = []string{professionMining}
	zone := testZone(p)
	zone.Resources = []world.ResourceNode{
		{ID: "ore-far", Kind: world.ResourceOre, Pos: world.Position{X: 9, Y: 0}},
		{ID: "ore-near", Kind: world.ResourceOre, Pos: world.Position{X: 1, Y: 0}},
		{ID: "ore-dead", Kind: world.ResourceOre, Pos: world.Position{X: 0.5, Y: 0}, Depleted: true},
	}
	w := &fakeWorld{zone: zone}
	h := newHarness(baseConfig(FocusGathering, StrategyBalanced), w)

	if err := h.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(w.callsTo("gather:ore-near")) != 1 {
		t.Fatalf("expected to harvest the nearest live node, calls: %v", w.calls)
	}
}
