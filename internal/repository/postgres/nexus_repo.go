package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// SpiritNexusRepo handles spirit nexus rows. Plain CRUD; the engine never
// reads them.
type SpiritNexusRepo struct {
	db *sql.DB
}

// NewSpiritNexusRepo creates a SpiritNexusRepo.
func NewSpiritNexusRepo(db *sql.DB) *SpiritNexusRepo {
	return &SpiritNexusRepo{db: db}
}

// Create inserts a nexus.
func (r *SpiritNexusRepo) Create(ctx context.Context, guildID int64, nexusID string, territoryID *int64) (*model.SpiritNexus, error) {
	n := model.SpiritNexus{NexusID: nexusID, TerritoryID: territoryID, GuildID: guildID}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO spirit_nexuses (nexus_id, territory_id, guild_id)
		 VALUES ($1, $2, $3) RETURNING id`,
		nexusID, territoryID, guildID,
	).Scan(&n.ID)
	if err != nil {
		return nil, fmt.Errorf("create spirit nexus: %w", err)
	}
	return &n, nil
}

// FindByID returns a nexus by id, or nil when absent.
func (r *SpiritNexusRepo) FindByID(ctx context.Context, id int64) (*model.SpiritNexus, error) {
	var n model.SpiritNexus
	err := r.db.QueryRowContext(ctx,
		`SELECT id, nexus_id, territory_id, guild_id FROM spirit_nexuses WHERE id = $1`, id,
	).Scan(&n.ID, &n.NexusID, &n.TerritoryID, &n.GuildID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find spirit nexus: %w", err)
	}
	return &n, nil
}

// ListByGuild returns all nexuses in a guild ordered by id.
func (r *SpiritNexusRepo) ListByGuild(ctx context.Context, guildID int64) ([]model.SpiritNexus, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, nexus_id, territory_id, guild_id
		 FROM spirit_nexuses WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list spirit nexuses: %w", err)
	}
	defer rows.Close()

	var nexuses []model.SpiritNexus
	for rows.Next() {
		var n model.SpiritNexus
		if err := rows.Scan(&n.ID, &n.NexusID, &n.TerritoryID, &n.GuildID); err != nil {
			return nil, fmt.Errorf("scan spirit nexus: %w", err)
		}
		nexuses = append(nexuses, n)
	}
	return nexuses, rows.Err()
}

// Update rewrites a nexus row.
func (r *SpiritNexusRepo) Update(ctx context.Context, n *model.SpiritNexus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE spirit_nexuses SET nexus_id = $1, territory_id = $2 WHERE id = $3`,
		n.NexusID, n.TerritoryID, n.ID)
	if err != nil {
		return fmt.Errorf("update spirit nexus: %w", err)
	}
	return nil
}

// Delete removes a nexus.
func (r *SpiritNexusRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM spirit_nexuses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete spirit nexus: %w", err)
	}
	return nil
}
