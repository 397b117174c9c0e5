package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// CharacterRepo handles character and character balance operations.
type CharacterRepo struct {
	db *sql.DB
}

// NewCharacterRepo creates a CharacterRepo.
func NewCharacterRepo(db *sql.DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

const characterColumns = `id, identifier, user_id, represented_faction_id,
	representation_changed_turn, victory_points,
	production_ore, production_lumber, production_coal,
	production_rations, production_cloth, production_platinum, guild_id`

func scanCharacter(row interface{ Scan(...any) error }) (*model.Character, error) {
	var c model.Character
	err := row.Scan(&c.ID, &c.Identifier, &c.UserID, &c.RepresentedFactionID,
		&c.RepresentationChangedTurn, &c.VictoryPoints,
		&c.Production.Ore, &c.Production.Lumber, &c.Production.Coal,
		&c.Production.Rations, &c.Production.Cloth, &c.Production.Platinum, &c.GuildID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByID returns a character by id, or nil when absent.
func (r *CharacterRepo) FindByID(ctx context.Context, id int64) (*model.Character, error) {
	c, err := scanCharacter(r.db.QueryRowContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find character: %w", err)
	}
	return c, nil
}

// ListByGuild returns all characters in a guild ordered by id.
func (r *CharacterRepo) ListByGuild(ctx context.Context, guildID int64) ([]model.Character, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var chars []model.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		chars = append(chars, *c)
	}
	return chars, rows.Err()
}

// FindResources returns a character's balance, zero when no row exists.
func (r *CharacterRepo) FindResources(ctx context.Context, guildID, characterID int64) (*model.Resources, error) {
	var res model.Resources
	err := r.db.QueryRowContext(ctx,
		`SELECT ore, lumber, coal, rations, cloth, platinum
		 FROM character_resources WHERE guild_id = $1 AND character_id = $2`,
		guildID, characterID,
	).Scan(&res.Ore, &res.Lumber, &res.Coal, &res.Rations, &res.Cloth, &res.Platinum)
	if err == sql.ErrNoRows {
		return &model.Resources{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find character resources: %w", err)
	}
	return &res, nil
}

// SaveResources upserts a character's balance.
func (r *CharacterRepo) SaveResources(ctx context.Context, guildID, characterID int64, res model.Resources) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO character_resources (guild_id, character_id, ore, lumber, coal, rations, cloth, platinum)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (guild_id, character_id) DO UPDATE SET
		   ore = EXCLUDED.ore, lumber = EXCLUDED.lumber, coal = EXCLUDED.coal,
		   rations = EXCLUDED.rations, cloth = EXCLUDED.cloth, platinum = EXCLUDED.platinum`,
		guildID, characterID, res.Ore, res.Lumber, res.Coal, res.Rations, res.Cloth, res.Platinum)
	if err != nil {
		return fmt.Errorf("save character resources: %w", err)
	}
	return nil
}
