package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/arvenwood/campaign/engine/internal/model"
	"github.com/arvenwood/campaign/engine/internal/repository"
	"github.com/arvenwood/campaign/engine/pkg/wargame"
)

// OrderService errors surfaced to callers.
var (
	ErrUnknownOrderType    = errors.New("unknown order type")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNotCancellable = errors.New("order is not cancellable")
)

// OrderService validates and stores player orders. Execution happens only
// during resolution; submission just stamps and queues.
type OrderService struct {
	orders repository.OrderRepository
	guilds repository.GuildRepository
}

// NewOrderService creates an OrderService.
func NewOrderService(orders repository.OrderRepository, guilds repository.GuildRepository) *OrderService {
	return &OrderService{orders: orders, guilds: guilds}
}

// SubmitRequest carries one order submission.
type SubmitRequest struct {
	GuildID             int64
	OrderType           string
	CharacterID         *int64
	SubmittingFactionID *int64
	OrderData           json.RawMessage
}

// Submit validates the order type, stamps the submission turn and queues
// the order. Standing order types enter as ONGOING; everything else as
// PENDING.
func (s *OrderService) Submit(ctx context.Context, req SubmitRequest) (*model.Order, error) {
	phase, ok := wargame.PhaseForOrderType(req.OrderType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrderType, req.OrderType)
	}

	guild, err := s.guilds.FindByID(ctx, req.GuildID)
	if err != nil {
		return nil, fmt.Errorf("find guild: %w", err)
	}
	if guild == nil {
		return nil, ErrGuildNotFound
	}

	data, err := s.normalizeOrderData(req.OrderType, req.OrderData)
	if err != nil {
		return nil, err
	}

	o := &model.Order{
		OrderType:           req.OrderType,
		Status:              initialStatus(req.OrderType, data),
		SubmittedAt:         time.Now().UTC(),
		CharacterID:         req.CharacterID,
		SubmittingFactionID: req.SubmittingFactionID,
		OrderData:           data,
		TurnSubmitted:       guild.CurrentTurn,
		GuildID:             req.GuildID,
	}
	if _, err := s.orders.Insert(ctx, o); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	log.Info().Int64("guildId", req.GuildID).Int64("orderId", o.ID).
		Str("orderType", o.OrderType).Str("phase", phase).
		Int("priority", wargame.PriorityForOrderType(o.OrderType)).
		Str("status", o.Status).Msg("Order submitted")
	return o, nil
}

// normalizeOrderData fills server-generated fields the player may omit.
// DECLARE_WAR without a war id gets a generated one so the engine stays
// free of random identifiers.
func (s *OrderService) normalizeOrderData(orderType string, raw json.RawMessage) (json.RawMessage, error) {
	if orderType != wargame.OrderDeclareWar {
		return raw, nil
	}
	var data wargame.DeclareWarData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode declare war data: %w", err)
		}
	}
	if data.WarID != "" {
		return raw, nil
	}
	data.WarID = uuid.NewString()
	out, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode declare war data: %w", err)
	}
	return out, nil
}

// initialStatus picks the queue status for a new order. ONGOING marks
// standing orders that survive across turns until completed or cancelled.
func initialStatus(orderType string, data json.RawMessage) string {
	switch orderType {
	case wargame.OrderAssignVP:
		return model.OrderOngoing
	case wargame.OrderResourceTransfer:
		var t struct {
			Recurring      bool `json:"recurring"`
			TurnsRemaining *int `json:"turns_remaining"`
		}
		if len(data) > 0 && json.Unmarshal(data, &t) == nil {
			if t.Recurring || t.TurnsRemaining != nil {
				return model.OrderOngoing
			}
		}
	}
	return model.OrderPending
}

// Cancel marks an order CANCELLED. Only orders the resolver has not
// finished yet can be cancelled.
func (s *OrderService) Cancel(ctx context.Context, orderID int64) error {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("find order: %w", err)
	}
	if o == nil {
		return ErrOrderNotFound
	}
	if o.IsTerminal() {
		return ErrOrderNotCancellable
	}

	guild, err := s.guilds.FindByID(ctx, o.GuildID)
	if err != nil {
		return fmt.Errorf("find guild: %w", err)
	}
	turn := o.TurnSubmitted
	if guild != nil {
		turn = guild.CurrentTurn
	}

	result, _ := json.Marshal(map[string]any{"cancelled_by": "player"})
	if err := s.orders.UpdateStatus(ctx, orderID, model.OrderCancelled, result, turn); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	log.Info().Int64("orderId", orderID).Str("orderType", o.OrderType).Msg("Order cancelled")
	return nil
}
