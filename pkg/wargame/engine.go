package wargame

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// Engine resolves turns against a World snapshot. The combat arithmetic is
// pluggable; everything else is fixed.
type Engine struct {
	Combat CombatRule
}

// NewEngine creates an Engine with the default combat rule.
func NewEngine() *Engine {
	return &Engine{Combat: DefaultCombatRule{}}
}

// ResolveTurn executes the nine phases in their fixed order against the
// world and returns the full event stream. The world is mutated in place;
// the caller owns persistence and the turn-counter advance. A returned
// error means a programmer-level fault: the caller must roll back and
// leave the turn counter untouched.
func (e *Engine) ResolveTurn(w *World) ([]Event, error) {
	if w.Guild == nil {
		return nil, fmt.Errorf("resolve turn: world has no guild")
	}
	w.Index()
	turn := w.ResolvingTurn()

	log.Info().Int64("guildId", w.Guild.ID).Int("turn", turn).Msg("Resolving turn")

	var events []Event
	for _, phase := range PhaseSequence {
		phaseEvents := e.runPhase(w, phase)
		events = append(events, phaseEvents...)
		log.Debug().Int64("guildId", w.Guild.ID).Str("phase", phase).
			Int("events", len(phaseEvents)).Msg("Phase complete")
	}

	// Eligible orders whose type maps to no phase never execute.
	for _, o := range w.unknownOrders() {
		w.failOrder(o, "No handler")
		events = append(events, Event{
			Turn: turn, Phase: PhaseConstruction, EventType: EventOrderFailed,
			EntityType: EntityOrder, EntityID: o.ID,
			Payload: payload(orderRecipients(o), map[string]any{
				"order_id": o.ID, "error": "No handler",
			}),
			GuildID: w.Guild.ID,
		})
	}

	log.Info().Int64("guildId", w.Guild.ID).Int("turn", turn).
		Int("events", len(events)).Msg("Turn resolved")
	return events, nil
}

func (e *Engine) runPhase(w *World, phase string) []Event {
	switch phase {
	case PhaseBeginning:
		return e.runBeginning(w)
	case PhaseMovement:
		return e.runMovement(w)
	case PhaseCombat:
		return e.runCombat(w)
	case PhaseResourceCollection:
		return e.runResourceCollection(w)
	case PhaseResourceTransfer:
		return e.runResourceTransfer(w)
	case PhaseEncirclement:
		return e.runEncirclement(w)
	case PhaseUpkeep:
		return e.runUpkeep(w)
	case PhaseOrganization:
		return e.runOrganization(w)
	case PhaseConstruction:
		return e.runConstruction(w)
	}
	return nil
}

// event is a small helper that stamps the common fields.
func (w *World) event(phase, eventType, entityType string, entityID int64, data map[string]any) Event {
	return Event{
		Turn:       w.ResolvingTurn(),
		Phase:      phase,
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    data,
		GuildID:    w.Guild.ID,
	}
}

// orderFailedEvent fails the order and emits the ORDER_FAILED event in one step.
func (w *World) orderFailedEvent(phase string, o *model.Order, reason string) Event {
	w.failOrder(o, reason)
	return w.event(phase, EventOrderFailed, EntityOrder, o.ID, payload(orderRecipients(o), map[string]any{
		"order_id": o.ID,
		"error":    reason,
	}))
}

// orderRecipients returns the submitting character, if any.
func orderRecipients(o *model.Order) []int64 {
	if o.CharacterID != nil {
		return []int64{*o.CharacterID}
	}
	return nil
}
