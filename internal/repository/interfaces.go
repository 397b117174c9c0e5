package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/arvenwood/campaign/engine/internal/model"
	"github.com/arvenwood/campaign/engine/pkg/wargame"
)

// ErrTurnConflict is returned by AdvanceTurn (and SaveResolution) when the
// guild's turn counter no longer matches the turn the resolution started
// from. The caller must roll back and retry from a fresh snapshot.
var ErrTurnConflict = errors.New("guild turn already advanced")

// GuildRepository defines guild data operations.
type GuildRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Guild, error)
	List(ctx context.Context) ([]model.Guild, error)
	AdvanceTurn(ctx context.Context, guildID int64, fromTurn int) error
}

// CharacterRepository defines character and character balance operations.
type CharacterRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Character, error)
	ListByGuild(ctx context.Context, guildID int64) ([]model.Character, error)
	FindResources(ctx context.Context, guildID, characterID int64) (*model.Resources, error)
	SaveResources(ctx context.Context, guildID, characterID int64, r model.Resources) error
}

// FactionRepository defines faction, membership, alliance and war operations.
type FactionRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Faction, error)
	ListByGuild(ctx context.Context, guildID int64) ([]model.Faction, error)
	ListMembers(ctx context.Context, guildID int64) ([]model.FactionMember, error)
	ListPermissions(ctx context.Context, guildID int64) ([]model.FactionPermission, error)
	ListAlliances(ctx context.Context, guildID int64) ([]model.Alliance, error)
	ListWars(ctx context.Context, guildID int64) ([]model.War, error)
	ListWarParticipants(ctx context.Context, guildID int64) ([]model.WarParticipant, error)
	FindResources(ctx context.Context, guildID, factionID int64) (*model.Resources, error)
	SaveResources(ctx context.Context, guildID, factionID int64, r model.Resources) error
}

// TerritoryRepository defines map data operations.
type TerritoryRepository interface {
	ListByGuild(ctx context.Context, guildID int64) ([]model.Territory, error)
	ListAdjacency(ctx context.Context, guildID int64) ([]model.TerritoryAdjacency, error)
	ListTerrainCosts(ctx context.Context, guildID int64) ([]model.TerrainCost, error)
	UpdateController(ctx context.Context, guildID, territoryID int64, controller model.Owner) error
}

// UnitRepository defines unit, unit type and naval position operations.
type UnitRepository interface {
	ListByGuild(ctx context.Context, guildID int64) ([]model.Unit, error)
	ListTypes(ctx context.Context, guildID int64) ([]model.UnitType, error)
	ListNavalPositions(ctx context.Context, guildID int64) ([]model.NavalUnitPosition, error)
	SetNavalPositions(ctx context.Context, guildID, unitID int64, territoryIDs []int64) error
}

// BuildingRepository defines building and building type operations.
type BuildingRepository interface {
	ListByGuild(ctx context.Context, guildID int64) ([]model.Building, error)
	ListTypes(ctx context.Context, guildID int64) ([]model.BuildingType, error)
}

// OrderRepository defines order queue operations.
type OrderRepository interface {
	Insert(ctx context.Context, o *model.Order) (*model.Order, error)
	FindByID(ctx context.Context, id int64) (*model.Order, error)
	ListEligible(ctx context.Context, guildID int64) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string, result json.RawMessage, updatedTurn int) error
}

// TurnLogRepository defines the append-only turn event log.
type TurnLogRepository interface {
	AppendEvents(ctx context.Context, events []wargame.Event) error
	ListByTurn(ctx context.Context, guildID int64, turn int) ([]model.TurnEvent, error)
}

// TaskRepository defines the scheduled task queue. ClaimNext atomically
// claims and deletes the earliest due task; it returns (nil, nil) when
// nothing is due.
type TaskRepository interface {
	Schedule(ctx context.Context, t *model.ScheduledTask) error
	ListPending(ctx context.Context) ([]model.ScheduledTask, error)
	ClaimNext(ctx context.Context) (*model.ScheduledTask, error)
}

// HerbRepository defines the herbalism catalog reads.
type HerbRepository interface {
	ListIngredients(ctx context.Context) ([]model.Ingredient, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	ListSubsetRecipes(ctx context.Context) ([]model.SubsetRecipe, error)
	ListConstraintRecipes(ctx context.Context) ([]model.ConstraintRecipe, error)
	ListFailedBlends(ctx context.Context) ([]model.FailedBlend, error)
}

// SpiritNexusRepository defines spirit nexus CRUD. Stored and served only;
// no phase reads it.
type SpiritNexusRepository interface {
	Create(ctx context.Context, guildID int64, nexusID string, territoryID *int64) (*model.SpiritNexus, error)
	FindByID(ctx context.Context, id int64) (*model.SpiritNexus, error)
	ListByGuild(ctx context.Context, guildID int64) ([]model.SpiritNexus, error)
	Update(ctx context.Context, n *model.SpiritNexus) error
	Delete(ctx context.Context, id int64) error
}

// WorldStore loads a guild snapshot and persists a completed resolution.
// LoadWorld reads every per-guild row in one transaction; SaveResolution
// writes the mutated snapshot, the event batch and the order updates, and
// advances the turn counter, all in one transaction. A SaveResolution that
// hits a stale turn counter returns ErrTurnConflict and writes nothing.
type WorldStore interface {
	LoadWorld(ctx context.Context, guildID int64) (*wargame.World, error)
	SaveResolution(ctx context.Context, w *wargame.World, events []wargame.Event) error
}

// TimerCache defines guild turn-deadline timers (Redis).
type TimerCache interface {
	SetTurnDeadline(ctx context.Context, guildID int64, deadline time.Time) error
	ClearTurnDeadline(ctx context.Context, guildID int64) error
	TurnDeadline(ctx context.Context, guildID int64) (time.Time, bool, error)
}
