package runner

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"
	"time"

	"github.com/morrigan/wyrmhold/internal/world"
	"go.uber.org/zap"
)

// fakeStore is an in-memory ConfigStore.
type fakeStore struct {
	mu  sync.Mutex
	cfg AgentConfig
	ref EntityRef

	cfgErr error
}

func (s *fakeStore) AgentConfig(ctx context.Context, wallet string) (*AgentConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfgErr != nil {
		return nil, s.cfgErr
	}
	cfg := s.cfg
	return &cfg, nil
}

func (s *fakeStore) EntityRef(ctx context.Context, wallet string) (EntityRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ref, nil
}

func (s *fakeStore) SetEntityRef(ctx context.Context, wallet string, ref EntityRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ref = ref
	return nil
}

func (s *fakeStore) SetFocus(ctx context.Context, wallet string, focus Focus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Focus = focus
	return nil
}

func (s *fakeStore) SetTargetZone(ctx context.Context, wallet, zone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.TargetZone = zone
	return nil
}

func (s *fakeStore) snapshot() AgentConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// fakeSink collects activity entries.
type fakeSink struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (s *fakeSink) Record(ctx context.Context, wallet, role, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, ActivityEntry{Role: role, Text: text, Timestamp: time.Now()})
	return nil
}

func (s *fakeSink) byRole(role string) []ActivityEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ActivityEntry
	for _, e := range s.entries {
		if e.Role == role {
			out = append(out, e)
		}
	}
	return out
}

// fakeSigner hands out a fixed ed25519 key.
type fakeSigner struct {
	err   error
	calls int
}

func (s *fakeSigner) ExportKey(ctx context.Context, custodialWallet string) (ed25519.PrivateKey, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	seed := make([]byte, ed25519.SeedSize)
	copy(seed, custodialWallet)
	return ed25519.NewKeyFromSeed(seed), nil
}

// fakeWorld serves canned zone data and accepts every command unless a
// hook overrides the default.
type fakeWorld struct {
	mu    sync.Mutex
	calls []string

	zone    *world.ZoneState
	zones   []world.ZoneInfo
	links   []world.ZoneLink
	quests  []world.Quest
	recipes []world.Recipe
	catalog []world.Item
	balance int
	session world.Session

	// per-method hooks; nil means the default behavior
	onZoneState   func(zoneID string) (*world.ZoneState, error)
	onWorldState  func() ([]world.ZoneState, error)
	onConsume     func(itemID string) (*world.CommandResult, error)
	onCraft       func(recipeID string) (*world.CommandResult, error)
	onTravel      func(zoneID string) (*world.CommandResult, error)
	onBuy         func(itemID string) (*world.CommandResult, error)
	onSession     func() (*world.Session, error)
	onQuests      func() ([]world.Quest, error)
	onAcceptQuest func(questID string) (*world.CommandResult, error)
}

func accepted() *world.CommandResult { return &world.CommandResult{Accepted: true} }

func (w *fakeWorld) note(call string) {
	w.mu.Lock()
	w.calls = append(w.calls, call)
	w.mu.Unlock()
}

func (w *fakeWorld) callsTo(prefix string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for _, c := range w.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			out = append(out, c)
		}
	}
	return out
}

func (w *fakeWorld) AuthChallenge(ctx context.Context, address string) ([]byte, error) {
	w.note("auth_challenge")
	return []byte("challenge:" + address), nil
}

func (w *fakeWorld) CreateSession(ctx context.Context, address string, signature []byte) (*world.Session, error) {
	w.note("create_session")
	if w.onSession != nil {
		return w.onSession()
	}
	if w.session.Token != "" {
		s := w.session
		return &s, nil
	}
	return &world.Session{Token: "tok-" + address, ExpiresAt: time.Now().Add(23 * time.Hour)}, nil
}

func (w *fakeWorld) Zones(ctx context.Context, token string) ([]world.ZoneInfo, error) {
	w.note("zones")
	return w.zones, nil
}

func (w *fakeWorld) ZoneState(ctx context.Context, token, zoneID string) (*world.ZoneState, error) {
	w.note("zone_state:" + zoneID)
	if w.onZoneState != nil {
		return w.onZoneState(zoneID)
	}
	if w.zone == nil || w.zone.ID != zoneID {
		return nil, fmt.Errorf("zone %s not found", zoneID)
	}
	z := *w.zone
	return &z, nil
}

func (w *fakeWorld) WorldState(ctx context.Context, token string) ([]world.ZoneState, error) {
	w.note("world_state")
	if w.onWorldState != nil {
		return w.onWorldState()
	}
	if w.zone == nil {
		return nil, nil
	}
	return []world.ZoneState{*w.zone}, nil
}

func (w *fakeWorld) ZoneNeighbors(ctx context.Context, token, zoneID string) ([]world.ZoneLink, error) {
	w.note("zone_neighbors:" + zoneID)
	return w.links, nil
}

func (w *fakeWorld) Move(ctx context.Context, token, entityID string, to world.Position) (*world.CommandResult, error) {
	w.note(fmt.Sprintf("move:%.0f,%.0f", to.X, to.Y))
	return accepted(), nil
}

func (w *fakeWorld) Attack(ctx context.Context, token, entityID, targetID string) (*world.CommandResult, error) {
	w.note("attack:" + targetID)
	return accepted(), nil
}

func (w *fakeWorld) Travel(ctx context.Context, token, entityID, zoneID string) (*world.CommandResult, error) {
	w.note("travel:" + zoneID)
	if w.onTravel != nil {
		return w.onTravel(zoneID)
	}
	return accepted(), nil
}

func (w *fakeWorld) Quests(ctx context.Context, token, zoneID string) ([]world.Quest, error) {
	w.note("quests:" + zoneID)
	if w.onQuests != nil {
		return w.onQuests()
	}
	return w.quests, nil
}

func (w *fakeWorld) AcceptQuest(ctx context.Context, token, entityID, questID string) (*world.CommandResult, error) {
	w.note("accept_quest:" + questID)
	if w.onAcceptQuest != nil {
		return w.onAcceptQuest(questID)
	}
	return accepted(), nil
}

func (w *fakeWorld) LearnProfession(ctx context.Context, token, entityID, profession string) (*world.CommandResult, error) {
	w.note("learn:" + profession)
	return accepted(), nil
}

func (w *fakeWorld) Gather(ctx context.Context, token, entityID, nodeID string) (*world.CommandResult, error) {
	w.note("gather:" + nodeID)
	return accepted(), nil
}

func (w *fakeWorld) Recipes(ctx context.Context, token string, station world.StationKind) ([]world.Recipe, error) {
	w.note("recipes:" + string(station))
	return w.recipes, nil
}

func (w *fakeWorld) Craft(ctx context.Context, token, entityID, stationID, recipeID string) (*world.CommandResult, error) {
	w.note("craft:" + recipeID)
	if w.onCraft != nil {
		return w.onCraft(recipeID)
	}
	return accepted(), nil
}

func (w *fakeWorld) Consume(ctx context.Context, token, entityID, itemID string) (*world.CommandResult, error) {
	w.note("consume:" + itemID)
	if w.onConsume != nil {
		return w.onConsume(itemID)
	}
	return accepted(), nil
}

func (w *fakeWorld) Equip(ctx context.Context, token, entityID, itemID string) (*world.CommandResult, error) {
	w.note("equip:" + itemID)
	return accepted(), nil
}

func (w *fakeWorld) Repair(ctx context.Context, token, entityID, merchantID string) (*world.CommandResult, error) {
	w.note("repair:" + merchantID)
	return accepted(), nil
}

func (w *fakeWorld) ShopCatalog(ctx context.Context, token, merchantID string) ([]world.Item, error) {
	w.note("shop_catalog:" + merchantID)
	return w.catalog, nil
}

func (w *fakeWorld) Buy(ctx context.Context, token, entityID, merchantID, itemID string) (*world.CommandResult, error) {
	w.note("buy:" + itemID)
	if w.onBuy != nil {
		return w.onBuy(itemID)
	}
	return accepted(), nil
}

func (w *fakeWorld) Balance(ctx context.Context, token, entityID string) (int, error) {
	w.note("balance")
	return w.balance, nil
}

func (w *fakeWorld) Enchant(ctx context.Context, token, entityID, altarID, itemID string) (*world.CommandResult, error) {
	w.note("enchant:" + itemID)
	return accepted(), nil
}

var _ World = (*fakeWorld)(nil)
var _ ConfigStore = (*fakeStore)(nil)
var _ ActivitySink = (*fakeSink)(nil)

// testPlayer builds a healthy level-10 player standing at the origin.
func testPlayer() world.PlayerState {
	return world.PlayerState{
		ID:    "player-1",
		Name:  "Grimnir",
		Owner: "0xcustody",
		Level: 10,
		HP:    100,
		MaxHP: 100,
		Gold:  50,
		Equipment: []world.GearSlot{
			{Slot: "weapon", Item: &world.Item{ID: "sword-1", Kind: world.ItemWeapon},
				Durability: 80, MaxDurability: 100},
		},
		Inventory: []world.Item{
			{ID: "bread-1", Name: "bread", Kind: world.ItemFood},
			{ID: "potion-1", Name: "small potion", Kind: world.ItemPotion},
		},
	}
}

// testZone builds a zone containing the given player.
func testZone(p world.PlayerState) *world.ZoneState {
	return &world.ZoneState{
		ID:               "zone-1",
		Name:             "Mirefen",
		LevelRequirement: 8,
		Players:          []world.PlayerState{p},
	}
}

// testHarness wires a runner around fakes, ready to tick.
type testHarness struct {
	r     *Runner
	store *fakeStore
	world *fakeWorld
	sink  *fakeSink
}

func newHarness(cfg AgentConfig, w *fakeWorld) *testHarness {
	store := &fakeStore{
		cfg: cfg,
		ref: EntityRef{EntityID: "player-1", ZoneID: "zone-1"},
	}
	sink := &fakeSink{}
	r := New(cfg.Wallet, Deps{
		Store:        store,
		World:        w,
		Signer:       &fakeSigner{},
		Activity:     sink,
		TickInterval: time.Millisecond,
		Backoff:      BackoffPolicy{Base: time.Millisecond, Factor: 2, Max: 5 * time.Millisecond},
	}, zap.NewNop())
	return &testHarness{r: r, store: store, world: w, sink: sink}
}

func baseConfig(focus Focus, strategy Strategy) AgentConfig {
	return AgentConfig{
		Wallet:          "0xwallet",
		CustodialWallet: "0xcustody",
		Enabled:         true,
		Focus:           focus,
		Strategy:        strategy,
	}
}

// tick runs one scheduler cycle and fails the test on loop-level errors.
func (h *testHarness) tick(ctx context.Context) error {
	return h.r.runTick(ctx, func() {})
}
