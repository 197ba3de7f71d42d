package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/morrigan/wyrmhold/internal/wallet"
	"github.com/morrigan/wyrmhold/internal/world"
)

// Focus is the agent's current high-level goal.
type Focus string

const (
	FocusQuesting   Focus = "questing"
	FocusCombat     Focus = "combat"
	FocusGathering  Focus = "gathering"
	FocusCrafting   Focus = "crafting"
	FocusAlchemy    Focus = "alchemy"
	FocusCooking    Focus = "cooking"
	FocusEnchanting Focus = "enchanting"
	FocusTrading    Focus = "trading"
	FocusShopping   Focus = "shopping"
	FocusTraveling  Focus = "traveling"
	FocusIdle       Focus = "idle"
)

// AllFocuses lists every focus value. The dispatch table test asserts a
// behavior exists for each entry, so new values fail fast.
var AllFocuses = []Focus{
	FocusQuesting, FocusCombat, FocusGathering, FocusCrafting,
	FocusAlchemy, FocusCooking, FocusEnchanting, FocusTrading,
	FocusShopping, FocusTraveling, FocusIdle,
}

// ParseFocus validates a focus string.
func ParseFocus(s string) (Focus, error) {
	for _, f := range AllFocuses {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown focus %q", s)
}

// Strategy is the agent's risk posture. It is the single axis that
// parametrizes the numeric thresholds used by every behavior.
type Strategy string

const (
	StrategyAggressive Strategy = "aggressive"
	StrategyBalanced   Strategy = "balanced"
	StrategyDefensive  Strategy = "defensive"
)

// ParseStrategy validates a strategy string.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyAggressive, StrategyBalanced, StrategyDefensive:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// ReactThreshold is the HP fraction below which the agent tries to heal.
func (s Strategy) ReactThreshold() float64 {
	switch s {
	case StrategyAggressive:
		return 0.15
	case StrategyDefensive:
		return 0.40
	default:
		return 0.25
	}
}

// FleeThreshold is the HP fraction below which the agent retreats to the
// rally point. Always stricter than ReactThreshold.
func (s Strategy) FleeThreshold() float64 {
	switch s {
	case StrategyAggressive:
		return 0.05
	case StrategyDefensive:
		return 0.30
	default:
		return 0.15
	}
}

// EngageCapOffset is added to the agent's level to compute the highest
// mob level it will engage.
func (s Strategy) EngageCapOffset() int {
	switch s {
	case StrategyAggressive:
		return 5
	case StrategyBalanced:
		return 2
	default:
		return 0
	}
}

// AgentConfig is the externally owned per-agent configuration. It is
// re-read every tick and never cached across ticks: the loop keeps no
// persistent goal state of its own.
type AgentConfig struct {
	Wallet          string   `json:"wallet"`
	CustodialWallet string   `json:"custodial_wallet"`
	Enabled         bool     `json:"enabled"`
	Focus           Focus    `json:"focus"`
	Strategy        Strategy `json:"strategy"`
	TargetZone      string   `json:"target_zone,omitempty"`
}

// EntityRef is a weak reference into the world: a lookup hint, never an
// ownership relation. The world may move or remove the underlying entity
// at any time, so the ref must be revalidated before trust.
type EntityRef struct {
	EntityID string `json:"entity_id"`
	ZoneID   string `json:"zone_id"`
}

// Valid reports whether the ref points anywhere at all.
func (r EntityRef) Valid() bool { return r.EntityID != "" && r.ZoneID != "" }

// Activity log entry roles.
const (
	RoleDirective = "user-directive"
	RoleReply     = "agent-reply"
	RoleActivity  = "activity"
	RoleSystem    = "system"
)

// ActivityEntry is one append-only activity log record.
type ActivityEntry struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ConfigStore is the external agent config store boundary.
type ConfigStore interface {
	AgentConfig(ctx context.Context, wallet string) (*AgentConfig, error)
	EntityRef(ctx context.Context, wallet string) (EntityRef, error)
	SetEntityRef(ctx context.Context, wallet string, ref EntityRef) error
	SetFocus(ctx context.Context, wallet string, focus Focus) error
	SetTargetZone(ctx context.Context, wallet, zone string) error
}

// ActivitySink records what the agent did, for spectator visibility.
type ActivitySink interface {
	Record(ctx context.Context, wallet, role, text string) error
}

// World is the consumer-side view of the remote world API. Implemented
// by *world.Client; tests substitute fakes.
type World interface {
	AuthChallenge(ctx context.Context, address string) ([]byte, error)
	CreateSession(ctx context.Context, address string, signature []byte) (*world.Session, error)
	Zones(ctx context.Context, token string) ([]world.ZoneInfo, error)
	ZoneState(ctx context.Context, token, zoneID string) (*world.ZoneState, error)
	WorldState(ctx context.Context, token string) ([]world.ZoneState, error)
	ZoneNeighbors(ctx context.Context, token, zoneID string) ([]world.ZoneLink, error)
	Move(ctx context.Context, token, entityID string, to world.Position) (*world.CommandResult, error)
	Attack(ctx context.Context, token, entityID, targetID string) (*world.CommandResult, error)
	Travel(ctx context.Context, token, entityID, zoneID string) (*world.CommandResult, error)
	Quests(ctx context.Context, token, zoneID string) ([]world.Quest, error)
	AcceptQuest(ctx context.Context, token, entityID, questID string) (*world.CommandResult, error)
	LearnProfession(ctx context.Context, token, entityID, profession string) (*world.CommandResult, error)
	Gather(ctx context.Context, token, entityID, nodeID string) (*world.CommandResult, error)
	Recipes(ctx context.Context, token string, station world.StationKind) ([]world.Recipe, error)
	Craft(ctx context.Context, token, entityID, stationID, recipeID string) (*world.CommandResult, error)
	Consume(ctx context.Context, token, entityID, itemID string) (*world.CommandResult, error)
	Equip(ctx context.Context, token, entityID, itemID string) (*world.CommandResult, error)
	Repair(ctx context.Context, token, entityID, merchantID string) (*world.CommandResult, error)
	ShopCatalog(ctx context.Context, token, merchantID string) ([]world.Item, error)
	Buy(ctx context.Context, token, entityID, merchantID, itemID string) (*world.CommandResult, error)
	Balance(ctx context.Context, token, entityID string) (int, error)
	Enchant(ctx context.Context, token, entityID, altarID, itemID string) (*world.CommandResult, error)
}

var _ World = (*world.Client)(nil)
var _ wallet.Signer = (*wallet.CustodyClient)(nil)
