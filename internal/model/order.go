package model

import (
	"encoding/json"
	"time"
)

// Order statuses. PENDING and ONGOING are eligible for execution;
// SUCCESS, FAILED and CANCELLED are terminal.
const (
	OrderPending   = "PENDING"
	OrderOngoing   = "ONGOING"
	OrderSuccess   = "SUCCESS"
	OrderFailed    = "FAILED"
	OrderCancelled = "CANCELLED"
)

// Order is a queued player intent. OrderData is opaque to the queue and
// typed by the handler for its order_type; ResultData is set on completion.
type Order struct {
	ID                  int64           `json:"id"`
	OrderType           string          `json:"order_type"`
	Status              string          `json:"status"`
	SubmittedAt         time.Time       `json:"submitted_at"`
	CharacterID         *int64          `json:"character_id,omitempty"`
	SubmittingFactionID *int64          `json:"submitting_faction_id,omitempty"`
	OrderData           json.RawMessage `json:"order_data"`
	ResultData          json.RawMessage `json:"result_data,omitempty"`
	TurnSubmitted       int             `json:"turn_submitted"`
	UpdatedAt           time.Time       `json:"updated_at"`
	UpdatedTurn         int             `json:"updated_turn"`
	GuildID             int64           `json:"guild_id"`
}

// IsTerminal reports whether the order can no longer execute.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderSuccess, OrderFailed, OrderCancelled:
		return true
	}
	return false
}

// TurnEvent is one append-only row of the per-turn log. Payload always
// carries affected_character_ids for per-recipient report filtering.
type TurnEvent struct {
	ID         int64           `json:"id"`
	Turn       int             `json:"turn_number"`
	Phase      string          `json:"phase"`
	EventType  string          `json:"event_type"`
	EntityType string          `json:"entity_type"`
	EntityID   int64           `json:"entity_id"`
	Payload    json.RawMessage `json:"event_data"`
	GuildID    int64           `json:"guild_id"`
}
