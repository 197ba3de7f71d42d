package world

import (
	"math"
	"time"
)

// Position is a coordinate inside a zone.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the euclidean distance to another position.
func (p Position) DistanceTo(o Position) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Session is a bearer session issued by the world after wallet-signature
// authentication.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ZoneInfo describes a zone in the world's zone catalog. Order is the
// world's fixed linear ordering of the zone chain.
type ZoneInfo struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	LevelRequirement int    `json:"level_requirement"`
	Order            int    `json:"order"`
}

// ZoneLink is one entry in a zone's adjacency list.
type ZoneLink struct {
	ZoneID           string `json:"zone_id"`
	LevelRequirement int    `json:"level_requirement"`
	Order            int    `json:"order"`
}

// ItemKind categorizes inventory and shop items.
type ItemKind string

const (
	ItemFood        ItemKind = "food"
	ItemPotion      ItemKind = "potion"
	ItemMaterial    ItemKind = "material"
	ItemWeapon      ItemKind = "weapon"
	ItemArmor       ItemKind = "armor"
	ItemEnchantment ItemKind = "enchantment"
)

// Item is an inventory or catalog item. Slot is only set for equippable
// kinds; Heal only for consumables; Price only in shop catalogs.
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Kind     ItemKind `json:"kind"`
	Slot     string   `json:"slot,omitempty"`
	Heal     int      `json:"heal,omitempty"`
	Price    int      `json:"price,omitempty"`
	Quantity int      `json:"quantity,omitempty"`
}

// GearSlot is one equipped slot. Item is nil when the slot is empty.
type GearSlot struct {
	Slot          string `json:"slot"`
	Item          *Item  `json:"item,omitempty"`
	Durability    int    `json:"durability"`
	MaxDurability int    `json:"max_durability"`
	Broken        bool   `json:"broken"`
}

// PlayerState is the world's view of a player entity. Owner is the
// custodial wallet address the entity belongs to.
type PlayerState struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Owner       string     `json:"owner"`
	Level       int        `json:"level"`
	HP          int        `json:"hp"`
	MaxHP       int        `json:"max_hp"`
	Gold        int        `json:"gold"`
	Pos         Position   `json:"pos"`
	Inventory   []Item     `json:"inventory,omitempty"`
	Equipment   []GearSlot `json:"equipment,omitempty"`
	Professions []string   `json:"professions,omitempty"`
}

// Mob is a hostile entity.
type Mob struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Level int      `json:"level"`
	HP    int      `json:"hp"`
	MaxHP int      `json:"max_hp"`
	Boss  bool     `json:"boss,omitempty"`
	Alive bool     `json:"alive"`
	Pos   Position `json:"pos"`
}

// NPC is a friendly entity offering services. Known service strings:
// "repair", "shop", and "train:<profession>".
type NPC struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Pos      Position `json:"pos"`
	Services []string `json:"services,omitempty"`
}

// ResourceKind is the type of a gatherable node.
type ResourceKind string

const (
	ResourceOre    ResourceKind = "ore"
	ResourceFlower ResourceKind = "flower"
)

// ResourceNode is a gatherable resource in a zone.
type ResourceNode struct {
	ID       string       `json:"id"`
	Kind     ResourceKind `json:"kind"`
	Pos      Position     `json:"pos"`
	Depleted bool         `json:"depleted,omitempty"`
}

// StationKind is the type of a crafting station.
type StationKind string

const (
	StationForge      StationKind = "forge"
	StationAlchemyLab StationKind = "alchemy_lab"
	StationCampfire   StationKind = "campfire"
	StationAltar      StationKind = "altar"
)

// Station is a fixed crafting installation in a zone.
type Station struct {
	ID   string      `json:"id"`
	Kind StationKind `json:"kind"`
	Pos  Position    `json:"pos"`
}

// ZoneState is one zone's live entity map.
type ZoneState struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	LevelRequirement int            `json:"level_requirement"`
	Players          []PlayerState  `json:"players,omitempty"`
	Mobs             []Mob          `json:"mobs,omitempty"`
	NPCs             []NPC          `json:"npcs,omitempty"`
	Resources        []ResourceNode `json:"resources,omitempty"`
	Stations         []Station      `json:"stations,omitempty"`
}

// Player looks up a player entity by ID. Returns nil if absent.
func (z *ZoneState) Player(id string) *PlayerState {
	for i := range z.Players {
		if z.Players[i].ID == id {
			return &z.Players[i]
		}
	}
	return nil
}

// Quest is a quest offered at the player's current location.
type Quest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Accepted bool   `json:"accepted,omitempty"`
}

// Recipe is one entry in a station's recipe catalog. The catalog is
// returned in the world's fixed priority order.
type Recipe struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Station StationKind `json:"station"`
	Output  string      `json:"output,omitempty"`
}

// CommandResult is the world's verdict on an issued command. Rejections
// carry a machine-readable reason ("missing_materials", "out_of_range",
// "target_dead", "cannot_afford", "already_accepted", ...).
type CommandResult struct {
	ActionID string `json:"action_id,omitempty"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// Rejection reasons the runner reacts to by name.
const (
	ReasonMissingMaterials = "missing_materials"
	ReasonAlreadyAccepted  = "already_accepted"
	ReasonCannotAfford     = "cannot_afford"
)
