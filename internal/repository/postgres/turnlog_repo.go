package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/arvenwood/campaign/engine/internal/model"
	"github.com/arvenwood/campaign/engine/pkg/wargame"
)

// TurnLogRepo handles the append-only turn event log.
type TurnLogRepo struct {
	db *sql.DB
}

// NewTurnLogRepo creates a TurnLogRepo.
func NewTurnLogRepo(db *sql.DB) *TurnLogRepo {
	return &TurnLogRepo{db: db}
}

// AppendEvents inserts a batch of events in one transaction.
func (r *TurnLogRepo) AppendEvents(ctx context.Context, events []wargame.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append events: %w", err)
	}
	defer tx.Rollback()

	if err := appendEventsTx(ctx, tx, events); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append events: %w", err)
	}
	return nil
}

// appendEventsTx inserts events inside a caller-owned transaction. Shared
// with the world store so a resolution writes its log in the same tx.
func appendEventsTx(ctx context.Context, tx *sql.Tx, events []wargame.Event) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO turn_events (turn_number, phase, event_type, entity_type, entity_id, event_data, guild_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return fmt.Errorf("prepare event insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			ev.Turn, ev.Phase, ev.EventType, ev.EntityType, ev.EntityID, payload, ev.GuildID); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return nil
}

// ListByTurn returns a turn's events in insertion order.
func (r *TurnLogRepo) ListByTurn(ctx context.Context, guildID int64, turn int) ([]model.TurnEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, turn_number, phase, event_type, entity_type, entity_id, event_data, guild_id
		 FROM turn_events WHERE guild_id = $1 AND turn_number = $2 ORDER BY id`, guildID, turn)
	if err != nil {
		return nil, fmt.Errorf("list turn events: %w", err)
	}
	defer rows.Close()

	var events []model.TurnEvent
	for rows.Next() {
		var ev model.TurnEvent
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.Turn, &ev.Phase, &ev.EventType,
			&ev.EntityType, &ev.EntityID, &payload, &ev.GuildID); err != nil {
			return nil, fmt.Errorf("scan turn event: %w", err)
		}
		ev.Payload = json.RawMessage(payload)
		events = append(events, ev)
	}
	return events, rows.Err()
}
