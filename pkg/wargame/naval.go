package wargame

import (
	"github.com/rs/zerolog/log"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// runNavalMovement resolves naval_transit, naval_patrol and naval_wait
// before the land tick loop starts. Naval transports are deferred to the
// tick loop so boarding and carried movement interleave with land stacks.
func (e *Engine) runNavalMovement(w *World, naval []*MovementState) []Event {
	var events []Event
	for _, s := range naval {
		switch s.action {
		case ActionNavalWait:
			s.order.Status = model.OrderOngoing
			s.persistProgress(w)
		case ActionNavalTransit, ActionNavalPatrol:
			events = append(events, e.advanceNaval(w, s)...)
		case ActionNavalTransport:
			// Handled tick by tick alongside land movement.
		}
	}
	return events
}

// advanceNaval walks a naval stack up to its movement allowance and
// rewrites the unit's ordered position sequence.
func (e *Engine) advanceNaval(w *World, s *MovementState) []Event {
	var events []Event
	steps := s.totalMP
	budget := steps
	for !s.atEnd() && budget > 0 {
		next := s.path[s.index+1]
		cost := w.TerrainCost(next)
		if cost > budget {
			break
		}
		budget -= cost
		s.index++
		s.moveStack(next)
	}

	// A naval unit occupies the ordered sequence of territories it moved
	// through this turn.
	visited := append([]int64(nil), s.path[:s.index+1]...)
	for _, u := range s.stack {
		w.NavalPositions[u.ID] = visited
	}

	switch {
	case s.action == ActionNavalPatrol:
		s.order.Status = model.OrderOngoing
		s.persistProgress(w)
	case s.atEnd():
		w.succeedOrder(s.order, map[string]any{"territory_id": s.currentTerritory()})
		events = append(events, w.event(PhaseMovement, EventTransitComplete, EntityUnit, s.primary.ID,
			payload(w.UnitRecipients(s.primary), map[string]any{
				"unit_id":      s.primary.UnitID,
				"territory_id": s.currentTerritory(),
				"order_id":     s.order.ID,
			})))
	default:
		s.order.Status = model.OrderOngoing
		s.persistProgress(w)
		events = append(events, w.event(PhaseMovement, EventTransitProgress, EntityUnit, s.primary.ID,
			payload(w.UnitRecipients(s.primary), map[string]any{
				"unit_id":        s.primary.UnitID,
				"territory_id":   s.currentTerritory(),
				"remaining_path": s.remainingPath(),
				"order_id":       s.order.ID,
			})))
	}
	return events
}

// carrierCapacity returns how many land units a transport can still take.
func (w *World) carrierCapacity(carrier *MovementState) int {
	ut := w.UnitTypeOf(carrier.primary)
	if ut == nil {
		return 0
	}
	used := 0
	for _, c := range carrier.carried {
		used += len(c.stack)
	}
	return ut.Capacity - used
}

// preTickDisembark lands any previously transported stack whose carrier no
// longer lines up with its next planned step.
func (e *Engine) preTickDisembark(w *World, land, carriers []*MovementState) []Event {
	var events []Event
	for _, s := range land {
		if s.status != stateTransported || s.transportedBy == nil {
			continue
		}
		var carrier *MovementState
		for _, c := range carriers {
			if c.primary.ID == *s.transportedBy {
				carrier = c
				break
			}
		}
		if carrier != nil {
			// Re-attach: the carrier still lines up when its position
			// touches the stack's next planned step.
			s.carrier = carrier
			carrier.carried = append(carrier.carried, s)
			s.moveStack(carrier.currentTerritory())
			for _, u := range s.stack {
				w.transported[u.ID] = true
			}
			if !s.atEnd() {
				next := s.path[s.index+1]
				pos := carrier.currentTerritory()
				if pos == next || w.IsAdjacent(pos, next) {
					continue
				}
			}
		}
		events = append(events, e.disembark(w, s, 0)...)
	}
	return events
}

// disembark places a transported stack on the nearest planned land step
// adjacent to its current water position and detaches it from its carrier.
func (e *Engine) disembark(w *World, s *MovementState, tick int) []Event {
	here := s.currentTerritory()
	landing := -1
	for i := s.index; i < len(s.path); i++ {
		t := w.Territories[s.path[i]]
		if t == nil || t.IsWater() {
			continue
		}
		if s.path[i] == here || w.IsAdjacent(here, s.path[i]) {
			landing = i
			break
		}
	}
	if landing < 0 {
		// Nowhere to land; stay aboard.
		log.Warn().Int64("unitId", s.primary.ID).Int64("territoryId", here).
			Msg("Transported unit has no adjacent land step to disembark to")
		return nil
	}

	s.index = landing
	s.moveStack(s.path[landing])
	s.status = stateMoving
	s.transportedBy = nil
	if s.carrier != nil {
		kept := s.carrier.carried[:0]
		for _, c := range s.carrier.carried {
			if c != s {
				kept = append(kept, c)
			}
		}
		s.carrier.carried = kept
		s.carrier = nil
	}
	for _, u := range s.stack {
		delete(w.transported, u.ID)
	}
	return []Event{w.event(PhaseMovement, EventUnitDisembarked, EntityUnit, s.primary.ID,
		payload(w.UnitRecipients(s.primary), map[string]any{
			"unit_id":      s.primary.UnitID,
			"territory_id": s.path[landing],
			"tick":         tick,
		}))}
}

// preTickBoarding attaches land stacks whose next step crosses water to a
// transport with spare capacity waiting on that sea tile.
func (e *Engine) preTickBoarding(w *World, land, carriers []*MovementState) []Event {
	var events []Event
	for _, s := range land {
		if s.status != stateMoving && s.status != stateWaitingTransport {
			continue
		}
		if s.atEnd() {
			continue
		}
		next := s.path[s.index+1]
		if !w.Territories[next].IsWater() {
			continue
		}
		boarded := false
		for _, carrier := range carriers {
			if carrier.currentTerritory() != next {
				continue
			}
			if w.carrierCapacity(carrier) < len(s.stack) {
				continue
			}
			carrierID := carrier.primary.ID
			s.transportedBy = &carrierID
			s.carrier = carrier
			s.status = stateTransported
			carrier.carried = append(carrier.carried, s)
			s.index++
			s.moveStack(next)
			for _, u := range s.stack {
				w.transported[u.ID] = true
			}
			events = append(events, w.event(PhaseMovement, EventUnitBoarded, EntityUnit, s.primary.ID,
				payload(w.UnitRecipients(s.primary), map[string]any{
					"unit_id":      s.primary.UnitID,
					"carrier_id":   carrier.primary.UnitID,
					"territory_id": next,
				})))
			boarded = true
			break
		}
		if !boarded {
			s.status = stateWaitingTransport
		}
	}
	return events
}

// transportTick moves carriers one step along their own path and drags
// their passengers with them, disembarking any passenger whose next land
// step comes within reach.
func (e *Engine) transportTick(w *World, carriers []*MovementState, tick int) []Event {
	var events []Event
	for _, carrier := range carriers {
		if tick > carrier.totalMP || carrier.atEnd() {
			continue
		}
		if carrier.cooldown > 0 {
			carrier.cooldown--
			continue
		}
		next := carrier.path[carrier.index+1]
		cost := w.TerrainCost(next)
		if cost > tick {
			continue
		}
		carrier.index++
		carrier.moveStack(next)
		carrier.cooldown = cost - 1
		for _, u := range carrier.stack {
			w.NavalPositions[u.ID] = []int64{next}
		}

		for _, passenger := range append([]*MovementState(nil), carrier.carried...) {
			passenger.moveStack(next)
			// Track the passenger's own path while it overlaps the carrier's.
			if !passenger.atEnd() && passenger.path[passenger.index+1] == next {
				passenger.index++
			}
			if !passenger.atEnd() {
				step := passenger.path[passenger.index+1]
				t := w.Territories[step]
				if t != nil && !t.IsWater() && (step == next || w.IsAdjacent(next, step)) {
					events = append(events, e.disembark(w, passenger, tick)...)
				}
			}
		}
	}
	return events
}
