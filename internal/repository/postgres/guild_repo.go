package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arvenwood/campaign/engine/internal/model"
	"github.com/arvenwood/campaign/engine/internal/repository"
)

// GuildRepo handles guild database operations.
type GuildRepo struct {
	db *sql.DB
}

// NewGuildRepo creates a GuildRepo.
func NewGuildRepo(db *sql.DB) *GuildRepo {
	return &GuildRepo{db: db}
}

// FindByID returns a guild by id, or nil when absent.
func (r *GuildRepo) FindByID(ctx context.Context, id int64) (*model.Guild, error) {
	var g model.Guild
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, current_turn, max_movement_stat, created_at
		 FROM guilds WHERE id = $1`, id,
	).Scan(&g.ID, &g.Name, &g.CurrentTurn, &g.MaxMovementStat, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find guild: %w", err)
	}
	return &g, nil
}

// List returns all guilds ordered by id.
func (r *GuildRepo) List(ctx context.Context) ([]model.Guild, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, current_turn, max_movement_stat, created_at
		 FROM guilds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list guilds: %w", err)
	}
	defer rows.Close()

	var guilds []model.Guild
	for rows.Next() {
		var g model.Guild
		if err := rows.Scan(&g.ID, &g.Name, &g.CurrentTurn, &g.MaxMovementStat, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan guild: %w", err)
		}
		guilds = append(guilds, g)
	}
	return guilds, rows.Err()
}

// AdvanceTurn moves the guild's turn counter from fromTurn to fromTurn+1.
// The counter is the compare-and-set guard against double resolution.
func (r *GuildRepo) AdvanceTurn(ctx context.Context, guildID int64, fromTurn int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE guilds SET current_turn = current_turn + 1
		 WHERE id = $1 AND current_turn = $2`, guildID, fromTurn)
	if err != nil {
		return fmt.Errorf("advance turn: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance turn rows: %w", err)
	}
	if n == 0 {
		return repository.ErrTurnConflict
	}
	return nil
}
