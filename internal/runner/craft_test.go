package runner

import (
	"context"
	"testing"

	"github.com/morrigan/wyrmhold/internal/world"
)

func smithingPlayer() world.PlayerState {
	p := testPlayer()
	p.Professions = []string{professionSmithing}
	return p
}

func forgeZone(p world.PlayerState) *world.ZoneState {
	z := testZone(p)
	z.Stations = []world.Station{
		{ID: "forge-1", Kind: world.StationForge, Pos: world.Position{X: 1, Y: 0}},
	}
	return z
}

func TestCraftingSkipsRejectedRecipes(t *testing.T) {
	ctx := context.Background()

	w := &fakeWorld{
		zone: forgeZone(smithingPlayer()),
		recipes: []world.Recipe{
			{ID: "greatsword", Station: world.StationForge},
			{ID: "dagger", Station: world.StationForge},
		},
	}
	w.onCraft = func(recipeID string) (*world.CommandResult, error) {
		if recipeID == "greatsword" {
			return &world.CommandResult{Reason: world.ReasonMissingMaterials}, nil
		}
		return accepted(), nil
	}
	h := newHarness(baseConfig(FocusCrafting, StrategyBalanced), w)

	if err := h.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	crafts := w.callsTo("craft:")
	if len(crafts) != 2 || crafts[0] != "craft:greatsword" || crafts[1] != "craft:dagger" {
		t.Fatalf("craft attempts = %v, want greatsword then dagger", crafts)
	}
	// The dagger succeeded: no gathering fallback.
	if len(w.callsTo("gather:")) != 0 || len(w.callsTo("move:")) != 0 {
		t.Fatalf("successful craft must end the tick, calls: %v", w.calls)
	}
}

func TestCraftingFallsBackToGatheringWhenNothingCrafts(t *testing.T) {
	ctx := context.Background()

	p := smithingPlayer()
	p.Professions = append(p.Professions, professionMining)
	zone := forgeZone(p)
	zone.Resources = []world.ResourceNode{
		{ID: "ore-1", Kind: world.ResourceOre, Pos: world.Position{X: 1, Y: 1}},
	}
	w := &fakeWorld{
		zone:    zone,
		recipes: []world.Recipe{{ID: "greatsword", Station: world.StationForge}},
	}
	w.onCraft = func(string) (*world.CommandResult, error) {
		return &world.CommandResult{Reason: world.ReasonMissingMaterials}, nil
	}
	h := newHarness(baseConfig(FocusCrafting, StrategyBalanced), w)

	if err := h.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(w.callsTo("gather:ore-1")) != 1 {
		t.Fatalf("expected a gathering fallback, calls: %v", w.calls)
	}
}

func TestCraftingLearnsProfessionFirst(t *testing.T) {
	ctx := context.Background()

	p := testPlayer() // knows nothing
	zone := forgeZone(p)
	zone.NPCs = []world.NPC{
		{ID: "master", Pos: world.Position{X: 1, Y: 0}, Services: []string{"train:smithing"}},
	}
	w := &fakeWorld{zone: zone}
	h := newHarness(baseConfig(FocusCrafting, StrategyBalanced), w)

	if err := h.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(w.callsTo("learn:smithing")) != 1 {
		t.Fatalf("expected a training step, calls: %v", w.calls)
	}
	if len(w.callsTo("craft:")) != 0 {
		t.Fatal("must not craft before knowing the profession")
	}
}

func TestEnchantingDelegationChain(t *testing.T) {
	ctx := context.Background()

	// No enchantment in inventory and alchemy unknown: enchanting
	// delegates to alchemy, which needs training; the zone has an
	// alchemy trainer in range, so the tick ends on a training step.
	p := testPlayer()
	zone := testZone(p)
	zone.Stations = []world.Station{
		{ID: "lab-1", Kind: world.StationAlchemyLab, Pos: world.Position{X: 1, Y: 0}},
	}
	zone.NPCs = []world.NPC{
		{ID: "brewer", Pos: world.Position{X: 1, Y: 0}, Services: []string{"train:alchemy"}},
	}
	w := &fakeWorld{zone: zone}
	h := newHarness(baseConfig(FocusEnchanting, StrategyBalanced), w)

	if err := h.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(w.callsTo("learn:alchemy")) != 1 {
		t.Fatalf("expected delegation into alchemy training, calls: %v", w.calls)
	}
}

func TestEnchantingAppliesAtAltar(t *testing.T) {
	ctx := context.Background()

	p := testPlayer()
	p.Inventory = append(p.Inventory,
		world.Item{ID: "rune-1", Name: "fire rune", Kind: world.ItemEnchantment})
	zone := testZone(p)
	zone.Stations = []world.Station{
		{ID: "altar-1", Kind: world.StationAltar, Pos: world.Position{X: 1, Y: 0}},
	}
	w := &fakeWorld{zone: zone}
	h := newHarness(baseConfig(FocusEnchanting, StrategyBalanced), w)

	if err := h.tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(w.callsTo("enchant:rune-1")) != 1 {
		t.Fatalf("expected an enchant, calls: %v", w.calls)
	}
}
