package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// BuildingRepo handles building and building type operations.
type BuildingRepo struct {
	db *sql.DB
}

// NewBuildingRepo creates a BuildingRepo.
func NewBuildingRepo(db *sql.DB) *BuildingRepo {
	return &BuildingRepo{db: db}
}

// ListByGuild returns all buildings in a guild ordered by id.
func (r *BuildingRepo) ListByGuild(ctx context.Context, guildID int64) ([]model.Building, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, building_id, building_type_id, territory_id, durability, status,
		        upkeep_ore, upkeep_lumber, upkeep_coal, upkeep_rations, upkeep_cloth, upkeep_platinum,
		        guild_id
		 FROM buildings WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	defer rows.Close()

	var buildings []model.Building
	for rows.Next() {
		var b model.Building
		if err := rows.Scan(&b.ID, &b.BuildingID, &b.BuildingTypeID, &b.TerritoryID,
			&b.Durability, &b.Status,
			&b.Upkeep.Ore, &b.Upkeep.Lumber, &b.Upkeep.Coal,
			&b.Upkeep.Rations, &b.Upkeep.Cloth, &b.Upkeep.Platinum,
			&b.GuildID); err != nil {
			return nil, fmt.Errorf("scan building: %w", err)
		}
		buildings = append(buildings, b)
	}
	return buildings, rows.Err()
}

// ListTypes returns all building types in a guild ordered by id.
func (r *BuildingRepo) ListTypes(ctx context.Context, guildID int64) ([]model.BuildingType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type_id, name,
		        cost_ore, cost_lumber, cost_coal, cost_rations, cost_cloth, cost_platinum,
		        upkeep_ore, upkeep_lumber, upkeep_coal, upkeep_rations, upkeep_cloth, upkeep_platinum,
		        guild_id
		 FROM building_types WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list building types: %w", err)
	}
	defer rows.Close()

	var types []model.BuildingType
	for rows.Next() {
		var t model.BuildingType
		if err := rows.Scan(&t.ID, &t.TypeID, &t.Name,
			&t.Cost.Ore, &t.Cost.Lumber, &t.Cost.Coal, &t.Cost.Rations, &t.Cost.Cloth, &t.Cost.Platinum,
			&t.Upkeep.Ore, &t.Upkeep.Lumber, &t.Upkeep.Coal, &t.Upkeep.Rations, &t.Upkeep.Cloth, &t.Upkeep.Platinum,
			&t.GuildID); err != nil {
			return nil, fmt.Errorf("scan building type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}
