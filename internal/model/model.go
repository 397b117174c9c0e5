package model

import (
	"time"
)

// Guild is a single isolated game instance. Every other entity carries its id.
type Guild struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	CurrentTurn     int       `json:"current_turn"`
	MaxMovementStat int       `json:"max_movement_stat"`
	CreatedAt       time.Time `json:"created_at"`
}

// Character is a player-controlled persona. A character may be a member of
// many factions but represents exactly one at a time.
type Character struct {
	ID                        int64     `json:"id"`
	Identifier                string    `json:"identifier"`
	UserID                    *string   `json:"user_id,omitempty"`
	RepresentedFactionID      *int64    `json:"represented_faction_id,omitempty"`
	RepresentationChangedTurn *int      `json:"representation_changed_turn,omitempty"`
	VictoryPoints             int       `json:"victory_points"`
	Production                Resources `json:"production"`
	GuildID                   int64     `json:"guild_id"`
}

// Faction is a player organization. The leader must also be a member.
type Faction struct {
	ID                     int64     `json:"id"`
	FactionID              string    `json:"faction_id"`
	Name                   string    `json:"name"`
	LeaderCharacterID      *int64    `json:"leader_character_id,omitempty"`
	Nation                 *string   `json:"nation,omitempty"`
	CreatedTurn            int       `json:"created_turn"`
	StartingTerritoryCount int       `json:"starting_territory_count"`
	Spending               Resources `json:"spending"`
	HasDeclaredWar         bool      `json:"has_declared_war"`
	GuildID                int64     `json:"guild_id"`
}

// FactionMember records a character's membership in a faction.
type FactionMember struct {
	FactionID   int64 `json:"faction_id"`
	CharacterID int64 `json:"character_id"`
	JoinedTurn  int   `json:"joined_turn"`
	GuildID     int64 `json:"guild_id"`
}

// Faction permission types. The leader implicitly holds all of them.
const (
	PermissionCommand   = "COMMAND"
	PermissionFinancial = "FINANCIAL"
)

// FactionPermission grants a member a named permission within a faction.
type FactionPermission struct {
	FactionID      int64  `json:"faction_id"`
	CharacterID    int64  `json:"character_id"`
	PermissionType string `json:"permission_type"`
	GuildID        int64  `json:"guild_id"`
}

// Alliance statuses. The pair is stored with FactionAID < FactionBID.
const (
	AlliancePendingA = "PENDING_FACTION_A"
	AlliancePendingB = "PENDING_FACTION_B"
	AllianceActive   = "ACTIVE"
)

// Alliance is a two-step pact between two factions.
type Alliance struct {
	ID                   int64      `json:"id"`
	FactionAID           int64      `json:"faction_a_id"`
	FactionBID           int64      `json:"faction_b_id"`
	Status               string     `json:"status"`
	InitiatedByFactionID int64      `json:"initiated_by_faction_id"`
	CreatedAt            time.Time  `json:"created_at"`
	ActivatedAt          *time.Time `json:"activated_at,omitempty"`
	GuildID              int64      `json:"guild_id"`
}

// War sides.
const (
	WarSideA = "SIDE_A"
	WarSideB = "SIDE_B"
)

// War is a declared conflict between two coalitions of factions.
type War struct {
	ID           int64  `json:"id"`
	WarID        string `json:"war_id"`
	Objective    string `json:"objective"`
	DeclaredTurn int    `json:"declared_turn"`
	GuildID      int64  `json:"guild_id"`
}

// WarParticipant binds a faction to one side of a war.
type WarParticipant struct {
	WarID              int64  `json:"war_id"`
	FactionID          int64  `json:"faction_id"`
	Side               string `json:"side"`
	JoinedTurn         int    `json:"joined_turn"`
	IsOriginalDeclarer bool   `json:"is_original_declarer"`
	GuildID            int64  `json:"guild_id"`
}

// Territory is a map region. Controller is a character, a faction, or nobody.
type Territory struct {
	ID             int64     `json:"id"`
	TerritoryID    string    `json:"territory_id"`
	Name           string    `json:"name"`
	TerrainType    string    `json:"terrain_type"`
	Production     Resources `json:"production"`
	VictoryPoints  int       `json:"victory_points"`
	Controller     Owner     `json:"controller"`
	OriginalNation *string   `json:"original_nation,omitempty"`
	GuildID        int64     `json:"guild_id"`
}

// IsWater reports whether land units cannot stand here.
func (t *Territory) IsWater() bool {
	return t.TerrainType == "water" || t.TerrainType == "ocean" || t.TerrainType == "sea"
}

// TerritoryAdjacency is an unordered pair, stored canonically with A < B.
type TerritoryAdjacency struct {
	TerritoryAID int64 `json:"territory_a_id"`
	TerritoryBID int64 `json:"territory_b_id"`
	GuildID      int64 `json:"guild_id"`
}

// TerrainCost maps a terrain type to its movement cost in ticks.
type TerrainCost struct {
	TerrainType string `json:"terrain_type"`
	Cost        int    `json:"cost"`
	GuildID     int64  `json:"guild_id"`
}

// UnitType is the immutable template a unit is mobilized from.
type UnitType struct {
	ID              int64     `json:"id"`
	TypeID          string    `json:"type_id"`
	Name            string    `json:"name"`
	Nation          *string   `json:"nation,omitempty"`
	Movement        int       `json:"movement"`
	OrganizationMax int       `json:"organization_max"`
	Attack          int       `json:"attack"`
	Defense         int       `json:"defense"`
	SiegeAttack     int       `json:"siege_attack"`
	SiegeDefense    int       `json:"siege_defense"`
	Cost            Resources `json:"cost"`
	Upkeep          Resources `json:"upkeep"`
	IsNaval         bool      `json:"is_naval"`
	Capacity        int       `json:"capacity"`
	GuildID         int64     `json:"guild_id"`
}

// Unit statuses.
const (
	UnitActive    = "ACTIVE"
	UnitDisbanded = "DISBANDED"
)

// Unit is a mobilized military unit.
type Unit struct {
	ID                 int64  `json:"id"`
	UnitID             string `json:"unit_id"`
	UnitTypeID         int64  `json:"unit_type_id"`
	Owner              Owner  `json:"owner"`
	CommanderID        *int64 `json:"commander_character_id,omitempty"`
	FactionID          *int64 `json:"faction_id,omitempty"`
	CurrentTerritoryID *int64 `json:"current_territory_id,omitempty"`
	Organization       int    `json:"organization"`
	MaxOrganization    int    `json:"max_organization"`
	Status             string `json:"status"`
	IsNaval            bool   `json:"is_naval"`
	GuildID            int64  `json:"guild_id"`
}

// NavalUnitPosition is one row of a naval unit's ordered territory sequence.
type NavalUnitPosition struct {
	UnitID        int64 `json:"unit_id"`
	TerritoryID   int64 `json:"territory_id"`
	PositionIndex int   `json:"position_index"`
	GuildID       int64 `json:"guild_id"`
}

// Building statuses.
const (
	BuildingActive    = "ACTIVE"
	BuildingDestroyed = "DESTROYED"
)

// Building is a constructed structure in a territory. Durability may dip to
// zero or below between Upkeep and Organization; Organization destroys it.
type Building struct {
	ID             int64     `json:"id"`
	BuildingID     string    `json:"building_id"`
	BuildingTypeID int64     `json:"building_type_id"`
	TerritoryID    *int64    `json:"territory_id,omitempty"`
	Durability     int       `json:"durability"`
	Status         string    `json:"status"`
	Upkeep         Resources `json:"upkeep"`
	GuildID        int64     `json:"guild_id"`
}

// BuildingType is the template a building is constructed from.
type BuildingType struct {
	ID      int64     `json:"id"`
	TypeID  string    `json:"type_id"`
	Name    string    `json:"name"`
	Cost    Resources `json:"cost"`
	Upkeep  Resources `json:"upkeep"`
	GuildID int64     `json:"guild_id"`
}

// VictoryPointAssignment is the standing association created by an
// ASSIGN_VICTORY_POINTS order: the character's points count toward the
// target faction at read time.
type VictoryPointAssignment struct {
	CharacterID     int64 `json:"character_id"`
	TargetFactionID int64 `json:"target_faction_id"`
	GuildID         int64 `json:"guild_id"`
}

// ScheduledTask is a queued background task (the Hawky queue). Claimed
// atomically with a skip-locked select and deleted on claim.
type ScheduledTask struct {
	ID            int64     `json:"id"`
	TaskID        string    `json:"task_id"`
	Task          string    `json:"task"`
	Parameter     *string   `json:"parameter,omitempty"`
	ScheduledTime time.Time `json:"scheduled_time"`
	RecipientID   *string   `json:"recipient_id,omitempty"`
	SenderID      *string   `json:"sender_id,omitempty"`
	GuildID       int64     `json:"guild_id"`
}

// SpiritNexus is stored and served but consumed by no phase.
type SpiritNexus struct {
	ID          int64  `json:"id"`
	NexusID     string `json:"nexus_id"`
	TerritoryID *int64 `json:"territory_id,omitempty"`
	GuildID     int64  `json:"guild_id"`
}
