package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// OrderRepo handles order queue operations.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo creates an OrderRepo.
func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

const orderColumns = `id, order_type, status, submitted_at, character_id,
	submitting_faction_id, order_data, result_data, turn_submitted,
	updated_at, updated_turn, guild_id`

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var o model.Order
	var orderData, resultData []byte
	err := row.Scan(&o.ID, &o.OrderType, &o.Status, &o.SubmittedAt, &o.CharacterID,
		&o.SubmittingFactionID, &orderData, &resultData, &o.TurnSubmitted,
		&o.UpdatedAt, &o.UpdatedTurn, &o.GuildID)
	if err != nil {
		return nil, err
	}
	o.OrderData = json.RawMessage(orderData)
	o.ResultData = json.RawMessage(resultData)
	return &o, nil
}

// Insert stores a new order and returns it with its assigned id.
func (r *OrderRepo) Insert(ctx context.Context, o *model.Order) (*model.Order, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO orders (order_type, status, submitted_at, character_id,
		   submitting_faction_id, order_data, turn_submitted, updated_at, updated_turn, guild_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $3, $7, $8)
		 RETURNING id`,
		o.OrderType, o.Status, o.SubmittedAt, o.CharacterID,
		o.SubmittingFactionID, []byte(o.OrderData), o.TurnSubmitted, o.GuildID,
	).Scan(&o.ID)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

// FindByID returns an order by id, or nil when absent.
func (r *OrderRepo) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return o, nil
}

// ListEligible returns the guild's PENDING and ONGOING orders ordered by
// (submitted_at, id). Phase and priority ordering happens in the engine.
func (r *OrderRepo) ListEligible(ctx context.Context, guildID int64) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE guild_id = $1 AND status IN ('PENDING', 'ONGOING')
		 ORDER BY submitted_at, id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list eligible orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// UpdateStatus transitions an order and stores its result payload.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id int64, status string, result json.RawMessage, updatedTurn int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, result_data = $2, updated_at = now(), updated_turn = $3
		 WHERE id = $4`,
		status, []byte(result), updatedTurn, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}
