package wargame

import (
	"github.com/rs/zerolog/log"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// runResourceTransfer handles CANCEL_TRANSFER orders first, then one-time
// (PENDING) transfers, then recurring (ONGOING) transfers.
func (e *Engine) runResourceTransfer(w *World) []Event {
	var cancels, oneTime, recurring []*model.Order
	for _, o := range w.OrdersForPhase(PhaseResourceTransfer) {
		switch o.OrderType {
		case OrderCancelTransfer:
			cancels = append(cancels, o)
		case OrderResourceTransfer:
			if o.Status == model.OrderOngoing {
				recurring = append(recurring, o)
			} else {
				oneTime = append(oneTime, o)
			}
		}
	}

	var events []Event
	for _, o := range cancels {
		events = append(events, e.cancelTransfer(w, o)...)
	}
	for _, o := range oneTime {
		events = append(events, e.executeTransfer(w, o)...)
	}
	for _, o := range recurring {
		events = append(events, e.executeTransfer(w, o)...)
	}
	return events
}

func (e *Engine) cancelTransfer(w *World, o *model.Order) []Event {
	var data CancelTransferData
	if err := decodeOrderData(o, &data); err != nil {
		return []Event{w.orderFailedEvent(PhaseResourceTransfer, o, "Invalid order data")}
	}
	var target *model.Order
	for _, t := range w.Orders {
		if t.ID == data.TransferOrderID {
			target = t
			break
		}
	}
	if target == nil || target.OrderType != OrderResourceTransfer {
		return []Event{w.orderFailedEvent(PhaseResourceTransfer, o, "Transfer not found")}
	}
	if target.IsTerminal() {
		return []Event{w.orderFailedEvent(PhaseResourceTransfer, o, "Transfer already completed")}
	}

	w.finishOrder(target, model.OrderCancelled, map[string]any{"cancelled_by_order_id": o.ID})
	w.succeedOrder(o, map[string]any{"transfer_order_id": target.ID})

	affected := append(orderRecipients(o), orderRecipients(target)...)
	return []Event{w.event(PhaseResourceTransfer, EventTransferCancelled, EntityOrder, target.ID,
		payload(affected, map[string]any{
			"transfer_order_id": target.ID,
			"order_id":          o.ID,
		}))}
}

// executeTransfer runs one tick of a transfer: full, partial or failed.
// Balances never go below zero; a failed transfer mutates nothing.
func (e *Engine) executeTransfer(w *World, o *model.Order) []Event {
	// A cancel processed earlier this phase already finished the order.
	if o.IsTerminal() {
		return nil
	}

	var data TransferData
	if err := decodeOrderData(o, &data); err != nil || len(data.Resources) == 0 {
		return []Event{w.orderFailedEvent(PhaseResourceTransfer, o, "Invalid order data")}
	}

	isOngoing := o.Status == model.OrderOngoing
	from, to := data.From.Owner(), data.To.Owner()
	affected := append(w.ControllerCharacters(from), w.ControllerCharacters(to)...)
	affected = append(affected, orderRecipients(o)...)

	fail := func(reason string) []Event {
		w.failOrder(o, reason)
		return []Event{w.event(PhaseResourceTransfer, EventResourceTransferFailed, EntityOrder, o.ID,
			payload(affected, map[string]any{
				"order_id":            o.ID,
				"reason":              reason,
				"requested_resources": data.Resources,
				"is_ongoing":          isOngoing,
			}))}
	}
	if from.IsNone() || !w.OwnerExists(from) {
		return fail("Sender no longer exists")
	}
	if to.IsNone() || !w.OwnerExists(to) {
		return fail("Recipient no longer exists")
	}
	if from == to {
		return fail("Sender and recipient are the same")
	}

	requested := model.ResourcesFromMap(data.Resources)
	sender := w.ResourcesFor(from)
	receiver := w.ResourcesFor(to)

	var transferred model.Resources
	full := true
	for _, kind := range model.ResourceKinds {
		want := requested.Get(kind)
		if want <= 0 {
			continue
		}
		give := want
		if have := sender.Get(kind); have < want {
			give = have
			full = false
		}
		transferred.Set(kind, give)
		sender.Set(kind, sender.Get(kind)-give)
		receiver.Set(kind, receiver.Get(kind)+give)
	}

	// Term bookkeeping. A bounded recurring transfer completes on its
	// final tick; an unbounded one runs until cancelled.
	termCompleted := false
	var turnsLeft *int
	if isOngoing && data.TurnsRemaining != nil {
		n := *data.TurnsRemaining - 1
		if n <= 0 {
			n = 0
			termCompleted = true
		}
		turnsLeft = &n
		data.TurnsRemaining = &n
	}

	result := map[string]any{
		"requested_resources":   requested.ToMap(),
		"transferred_resources": transferred.ToMap(),
	}
	switch {
	case !isOngoing:
		w.succeedOrder(o, result)
	case termCompleted:
		w.finishOrder(o, model.OrderSuccess, result)
	default:
		o.Status = model.OrderOngoing
		if raw, err := marshalOrderData(data); err == nil {
			o.OrderData = raw
		} else {
			log.Error().Err(err).Int64("orderId", o.ID).Msg("Failed to persist transfer term")
		}
		o.UpdatedAt = w.Now
		o.UpdatedTurn = w.ResolvingTurn()
	}

	eventType := EventResourceTransferOK
	if !full {
		eventType = EventResourceTransferPartial
	}
	eventData := map[string]any{
		"order_id":              o.ID,
		"from":                  from.String(),
		"to":                    to.String(),
		"requested_resources":   requested.ToMap(),
		"transferred_resources": transferred.ToMap(),
		"is_ongoing":            isOngoing,
		"term_completed":        termCompleted,
	}
	if turnsLeft != nil {
		eventData["turns_remaining"] = *turnsLeft
	}
	return []Event{w.event(PhaseResourceTransfer, eventType, EntityOrder, o.ID, payload(affected, eventData))}
}
