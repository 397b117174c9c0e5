package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// UnitRepo handles unit, unit type and naval position operations.
type UnitRepo struct {
	db *sql.DB
}

// NewUnitRepo creates a UnitRepo.
func NewUnitRepo(db *sql.DB) *UnitRepo {
	return &UnitRepo{db: db}
}

const unitColumns = `id, unit_id, unit_type_id, owner_character_id, owner_faction_id,
	commander_character_id, faction_id, current_territory_id,
	organization, max_organization, status, is_naval, guild_id`

func scanUnit(row interface{ Scan(...any) error }) (*model.Unit, error) {
	var u model.Unit
	var charID, factionID *int64
	err := row.Scan(&u.ID, &u.UnitID, &u.UnitTypeID, &charID, &factionID,
		&u.CommanderID, &u.FactionID, &u.CurrentTerritoryID,
		&u.Organization, &u.MaxOrganization, &u.Status, &u.IsNaval, &u.GuildID)
	if err != nil {
		return nil, err
	}
	u.Owner = model.OwnerFromColumns(charID, factionID)
	return &u, nil
}

// ListByGuild returns all units in a guild ordered by id.
func (r *UnitRepo) ListByGuild(ctx context.Context, guildID int64) ([]model.Unit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+unitColumns+` FROM units WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var units []model.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, *u)
	}
	return units, rows.Err()
}

// ListTypes returns all unit types in a guild ordered by id.
func (r *UnitRepo) ListTypes(ctx context.Context, guildID int64) ([]model.UnitType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type_id, name, nation, movement, organization_max,
		        attack, defense, siege_attack, siege_defense,
		        cost_ore, cost_lumber, cost_coal, cost_rations, cost_cloth, cost_platinum,
		        upkeep_ore, upkeep_lumber, upkeep_coal, upkeep_rations, upkeep_cloth, upkeep_platinum,
		        is_naval, capacity, guild_id
		 FROM unit_types WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list unit types: %w", err)
	}
	defer rows.Close()

	var types []model.UnitType
	for rows.Next() {
		var t model.UnitType
		if err := rows.Scan(&t.ID, &t.TypeID, &t.Name, &t.Nation, &t.Movement, &t.OrganizationMax,
			&t.Attack, &t.Defense, &t.SiegeAttack, &t.SiegeDefense,
			&t.Cost.Ore, &t.Cost.Lumber, &t.Cost.Coal, &t.Cost.Rations, &t.Cost.Cloth, &t.Cost.Platinum,
			&t.Upkeep.Ore, &t.Upkeep.Lumber, &t.Upkeep.Coal, &t.Upkeep.Rations, &t.Upkeep.Cloth, &t.Upkeep.Platinum,
			&t.IsNaval, &t.Capacity, &t.GuildID); err != nil {
			return nil, fmt.Errorf("scan unit type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// ListNavalPositions returns every naval unit's ordered position rows.
func (r *UnitRepo) ListNavalPositions(ctx context.Context, guildID int64) ([]model.NavalUnitPosition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT unit_id, territory_id, position_index, guild_id
		 FROM naval_unit_positions WHERE guild_id = $1 ORDER BY unit_id, position_index`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list naval positions: %w", err)
	}
	defer rows.Close()

	var positions []model.NavalUnitPosition
	for rows.Next() {
		var p model.NavalUnitPosition
		if err := rows.Scan(&p.UnitID, &p.TerritoryID, &p.PositionIndex, &p.GuildID); err != nil {
			return nil, fmt.Errorf("scan naval position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// SetNavalPositions replaces a naval unit's position sequence atomically.
func (r *UnitRepo) SetNavalPositions(ctx context.Context, guildID, unitID int64, territoryIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin naval positions: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM naval_unit_positions WHERE guild_id = $1 AND unit_id = $2`,
		guildID, unitID); err != nil {
		return fmt.Errorf("clear naval positions: %w", err)
	}
	for i, tid := range territoryIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO naval_unit_positions (unit_id, territory_id, position_index, guild_id)
			 VALUES ($1, $2, $3, $4)`,
			unitID, tid, i, guildID); err != nil {
			return fmt.Errorf("insert naval position: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit naval positions: %w", err)
	}
	return nil
}
