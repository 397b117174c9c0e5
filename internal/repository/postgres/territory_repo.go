package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// TerritoryRepo handles map data operations.
type TerritoryRepo struct {
	db *sql.DB
}

// NewTerritoryRepo creates a TerritoryRepo.
func NewTerritoryRepo(db *sql.DB) *TerritoryRepo {
	return &TerritoryRepo{db: db}
}

const territoryColumns = `id, territory_id, name, terrain_type,
	production_ore, production_lumber, production_coal,
	production_rations, production_cloth, production_platinum,
	victory_points, controller_character_id, controller_faction_id,
	original_nation, guild_id`

func scanTerritory(row interface{ Scan(...any) error }) (*model.Territory, error) {
	var t model.Territory
	var charID, factionID *int64
	err := row.Scan(&t.ID, &t.TerritoryID, &t.Name, &t.TerrainType,
		&t.Production.Ore, &t.Production.Lumber, &t.Production.Coal,
		&t.Production.Rations, &t.Production.Cloth, &t.Production.Platinum,
		&t.VictoryPoints, &charID, &factionID, &t.OriginalNation, &t.GuildID)
	if err != nil {
		return nil, err
	}
	t.Controller = model.OwnerFromColumns(charID, factionID)
	return &t, nil
}

// ListByGuild returns all territories in a guild ordered by id.
func (r *TerritoryRepo) ListByGuild(ctx context.Context, guildID int64) ([]model.Territory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+territoryColumns+` FROM territories WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list territories: %w", err)
	}
	defer rows.Close()

	var territories []model.Territory
	for rows.Next() {
		t, err := scanTerritory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan territory: %w", err)
		}
		territories = append(territories, *t)
	}
	return territories, rows.Err()
}

// ListAdjacency returns the adjacency pairs of a guild's map. Pairs are
// stored canonically with territory_a_id < territory_b_id.
func (r *TerritoryRepo) ListAdjacency(ctx context.Context, guildID int64) ([]model.TerritoryAdjacency, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT territory_a_id, territory_b_id, guild_id
		 FROM territory_adjacency WHERE guild_id = $1 ORDER BY territory_a_id, territory_b_id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list adjacency: %w", err)
	}
	defer rows.Close()

	var adj []model.TerritoryAdjacency
	for rows.Next() {
		var a model.TerritoryAdjacency
		if err := rows.Scan(&a.TerritoryAID, &a.TerritoryBID, &a.GuildID); err != nil {
			return nil, fmt.Errorf("scan adjacency: %w", err)
		}
		adj = append(adj, a)
	}
	return adj, rows.Err()
}

// ListTerrainCosts returns the per-terrain movement cost rule table.
func (r *TerritoryRepo) ListTerrainCosts(ctx context.Context, guildID int64) ([]model.TerrainCost, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT terrain_type, cost, guild_id
		 FROM terrain_costs WHERE guild_id = $1 ORDER BY terrain_type`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list terrain costs: %w", err)
	}
	defer rows.Close()

	var costs []model.TerrainCost
	for rows.Next() {
		var c model.TerrainCost
		if err := rows.Scan(&c.TerrainType, &c.Cost, &c.GuildID); err != nil {
			return nil, fmt.Errorf("scan terrain cost: %w", err)
		}
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

// UpdateController sets a territory's controller.
func (r *TerritoryRepo) UpdateController(ctx context.Context, guildID, territoryID int64, controller model.Owner) error {
	charID, factionID := controller.Columns()
	_, err := r.db.ExecContext(ctx,
		`UPDATE territories SET controller_character_id = $1, controller_faction_id = $2
		 WHERE guild_id = $3 AND id = $4`,
		charID, factionID, guildID, territoryID)
	if err != nil {
		return fmt.Errorf("update territory controller: %w", err)
	}
	return nil
}
