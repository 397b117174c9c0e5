package wargame

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// movementStatus tracks a movement state through the tick loop.
type movementStatus int

const (
	stateMoving movementStatus = iota
	stateStoppedEngaged
	stateTransported
	stateWaitingTransport
	stateDone
)

// MovementState is the working record for one UNIT order during the
// movement phase: the stack, the planned path and the progress cursor.
type MovementState struct {
	order   *model.Order
	data    MovementData
	primary *model.Unit
	stack   []*model.Unit
	path    []int64
	index   int
	totalMP int
	status  movementStatus
	action  string

	// transportedBy is the carrier unit id while embarked; persisted in
	// order_data across turns for in-flight transits.
	transportedBy *int64
	carrier       *MovementState
	carried       []*MovementState

	// cooldown skips ticks while a multi-cost terrain step completes.
	cooldown int

	blocked bool
}

// currentTerritory returns the stack's position along the planned path.
func (s *MovementState) currentTerritory() int64 {
	return s.path[s.index]
}

// atEnd reports whether the planned path is exhausted.
func (s *MovementState) atEnd() bool {
	return s.index >= len(s.path)-1
}

// remainingPath returns the unwalked portion of the path, starting at the
// current territory.
func (s *MovementState) remainingPath() []int64 {
	return append([]int64(nil), s.path[s.index:]...)
}

// rawObservation is one sighting before deduplication.
type rawObservation struct {
	recipientID    int64
	observedUnitID int64
	territoryID    int64
	tick           int
}

// runMovement executes the land/naval movement tick loop.
func (e *Engine) runMovement(w *World) []Event {
	var events []Event

	land, naval, setupEvents := e.setupMovement(w)
	events = append(events, setupEvents...)

	// Naval transit, patrol and wait resolve before any land tick.
	events = append(events, e.runNavalMovement(w, naval)...)

	// Carriers (naval_transport) participate in the tick loop below.
	var carriers []*MovementState
	for _, s := range naval {
		if s.action == ActionNavalTransport && s.status == stateMoving {
			carriers = append(carriers, s)
		}
	}

	events = append(events, e.preTickDisembark(w, land, carriers)...)
	events = append(events, e.preTickBoarding(w, land, carriers)...)

	// A stack that starts the turn sharing ground with a hostile cannot move.
	events = append(events, e.engagementCheck(w, land, -1)...)

	maxMP := 0
	for _, s := range land {
		if s.totalMP > maxMP {
			maxMP = s.totalMP
		}
	}
	for _, s := range carriers {
		if s.totalMP > maxMP {
			maxMP = s.totalMP
		}
	}
	if w.Guild.MaxMovementStat > 0 && maxMP > w.Guild.MaxMovementStat {
		maxMP = w.Guild.MaxMovementStat
	}

	var observations []rawObservation

	for tick := maxMP; tick >= 1; tick-- {
		events = append(events, e.patrolSweep(w, land, tick)...)
		events = append(events, e.transportTick(w, carriers, tick)...)
		events = append(events, e.landTick(w, land, tick)...)
		events = append(events, e.engagementCheck(w, land, tick)...)
		observations = append(observations, e.observe(w, tick)...)
	}

	// One extra sweep after the loop catches end-of-path contacts.
	events = append(events, e.engagementCheck(w, land, 0)...)
	observations = append(observations, e.observe(w, 0)...)

	events = append(events, e.dedupObservations(w, observations)...)
	events = append(events, e.finalizeMovement(w, land, carriers)...)
	return events
}

// setupMovement loads, validates and splits the phase's UNIT orders.
func (e *Engine) setupMovement(w *World) (land, naval []*MovementState, events []Event) {
	for _, o := range w.OrdersForPhase(PhaseMovement) {
		if o.OrderType != OrderUnit {
			events = append(events, w.orderFailedEvent(PhaseMovement, o, "No handler"))
			continue
		}
		s, reason := e.buildState(w, o)
		if s == nil {
			events = append(events, w.orderFailedEvent(PhaseMovement, o, reason))
			continue
		}
		if isNavalAction(s.action) {
			naval = append(naval, s)
		} else {
			land = append(land, s)
		}
	}
	sortStates(land)
	sortStates(naval)
	return land, naval, events
}

func isNavalAction(action string) bool {
	switch action {
	case ActionNavalTransport, ActionNavalTransit, ActionNavalPatrol, ActionNavalWait:
		return true
	}
	return false
}

// sortStates orders states by (-totalMP, order id): faster stacks first,
// older orders first on ties.
func sortStates(states []*MovementState) {
	sort.Slice(states, func(i, j int) bool {
		if states[i].totalMP != states[j].totalMP {
			return states[i].totalMP > states[j].totalMP
		}
		return states[i].order.ID < states[j].order.ID
	})
}

// buildState validates one UNIT order and builds its MovementState.
// Returns nil and a reason when the order is invalid.
func (e *Engine) buildState(w *World, o *model.Order) (*MovementState, string) {
	var data MovementData
	if err := decodeOrderData(o, &data); err != nil {
		return nil, "invalid order data"
	}
	unit := w.Units[data.UnitID]
	if unit == nil {
		return nil, "unit not found"
	}
	if unit.Status == model.UnitDisbanded {
		return nil, "unit is disbanded"
	}
	if unit.CurrentTerritoryID == nil {
		return nil, "unit has no position"
	}
	switch data.Action {
	case ActionTransit, ActionPatrol, ActionNavalTransport, ActionNavalTransit, ActionNavalPatrol, ActionNavalWait:
	default:
		return nil, fmt.Sprintf("unknown action %q", data.Action)
	}
	if isNavalAction(data.Action) != unit.IsNaval {
		return nil, "action does not match unit domain"
	}

	path := data.Path
	if len(path) == 0 {
		path = []int64{*unit.CurrentTerritoryID}
	}
	if path[0] != *unit.CurrentTerritoryID {
		return nil, "path does not start at the unit's territory"
	}
	for i, tid := range path {
		if w.Territories[tid] == nil {
			return nil, fmt.Sprintf("unknown territory %d in path", tid)
		}
		if i > 0 && !w.IsAdjacent(path[i-1], tid) {
			return nil, fmt.Sprintf("territories %d and %d are not adjacent", path[i-1], tid)
		}
	}

	stack := []*model.Unit{unit}
	for _, sid := range data.StackUnitIDs {
		su := w.Units[sid]
		if su == nil || su.Status == model.UnitDisbanded {
			return nil, fmt.Sprintf("stacked unit %d not found", sid)
		}
		if su.CurrentTerritoryID == nil || *su.CurrentTerritoryID != *unit.CurrentTerritoryID {
			return nil, fmt.Sprintf("stacked unit %d is not co-located", sid)
		}
		if su.IsNaval != unit.IsNaval {
			return nil, fmt.Sprintf("stacked unit %d is in the wrong domain", sid)
		}
		stack = append(stack, su)
	}

	// A stack moves at the minimum movement of its members.
	totalMP := 0
	for i, su := range stack {
		ut := w.UnitTypeOf(su)
		if ut == nil {
			return nil, fmt.Sprintf("unit %d has no type", su.ID)
		}
		if i == 0 || ut.Movement < totalMP {
			totalMP = ut.Movement
		}
	}

	s := &MovementState{
		order:         o,
		data:          data,
		primary:       unit,
		stack:         stack,
		path:          path,
		totalMP:       totalMP,
		action:        data.Action,
		transportedBy: data.TransportedBy,
	}
	if s.transportedBy != nil {
		s.status = stateTransported
	}
	return s, ""
}

// moveStack places every unit of a state's stack in a territory.
func (s *MovementState) moveStack(territoryID int64) {
	for _, u := range s.stack {
		tid := territoryID
		u.CurrentTerritoryID = &tid
	}
}

// landTick advances eligible land stacks one step.
func (e *Engine) landTick(w *World, land []*MovementState, tick int) []Event {
	var events []Event
	for _, s := range land {
		if s.status != stateMoving || s.atEnd() {
			continue
		}
		if tick > s.totalMP {
			continue
		}
		if s.cooldown > 0 {
			s.cooldown--
			continue
		}
		next := s.path[s.index+1]
		nextT := w.Territories[next]
		if nextT.IsWater() && s.transportedBy == nil {
			// Water crossing needs a carrier; wait where we stand.
			s.status = stateWaitingTransport
			continue
		}

		// A destination held by an already-pinned engagement cannot be
		// entered until combat resolves it.
		if w.territoryHasEngagement(next) {
			continue
		}

		cost := w.TerrainCost(next)
		if cost > tick {
			// The step cannot complete within the remaining ticks.
			continue
		}

		s.index++
		s.moveStack(next)
		s.cooldown = cost - 1

		// Stepping onto a hostile stack stops the move immediately.
		if blockers := w.hostileUnitsAt(next, s.primary); len(blockers) > 0 {
			s.status = stateStoppedEngaged
			s.blocked = true
			w.contested[next] = true
			w.engaged[s.primary.ID] = true
			for _, u := range s.stack {
				w.engaged[u.ID] = true
			}
			for _, b := range blockers {
				w.engaged[b.ID] = true
			}
			events = append(events, w.event(PhaseMovement, EventMovementBlocked, EntityUnit, s.primary.ID,
				payload(w.UnitRecipients(s.primary), map[string]any{
					"unit_id":      s.primary.UnitID,
					"territory_id": next,
					"terrain_cost": cost,
					"tick":         tick,
					"order_id":     s.order.ID,
				})))
		}
	}
	return events
}

// hostileUnitsAt returns the non-transported hostile units sharing a
// territory with the given unit.
func (w *World) hostileUnitsAt(territoryID int64, u *model.Unit) []*model.Unit {
	var out []*model.Unit
	for _, other := range w.ActiveUnitsInTerritory(territoryID) {
		if other.ID == u.ID || other.IsNaval {
			continue
		}
		if w.transported[other.ID] {
			continue
		}
		if w.Hostile(u, other) {
			out = append(out, other)
		}
	}
	return out
}

// territoryHasEngagement reports whether a territory holds units already
// pinned by an engagement this turn.
func (w *World) territoryHasEngagement(territoryID int64) bool {
	for _, u := range w.ActiveUnitsInTerritory(territoryID) {
		if w.engaged[u.ID] {
			return true
		}
	}
	return false
}

// engagementCheck pins any moving land stack that shares ground with a
// hostile. tick < 0 marks the pre-loop check, 0 the post-loop sweep.
func (e *Engine) engagementCheck(w *World, land []*MovementState, tick int) []Event {
	var events []Event
	for _, s := range land {
		if s.status != stateMoving && s.status != stateWaitingTransport {
			continue
		}
		here := s.currentTerritory()
		blockers := w.hostileUnitsAt(here, s.primary)
		if len(blockers) == 0 {
			continue
		}
		s.status = stateStoppedEngaged
		w.contested[here] = true
		for _, u := range s.stack {
			w.engaged[u.ID] = true
		}
		for _, b := range blockers {
			w.engaged[b.ID] = true
		}
		events = append(events, w.event(PhaseMovement, EventUnitEngaged, EntityUnit, s.primary.ID,
			payload(w.UnitRecipients(s.primary), map[string]any{
				"unit_id":      s.primary.UnitID,
				"territory_id": here,
				"tick":         tick,
			})))
	}
	return events
}

// patrolSweep lets patrol stacks engage hostiles in their own or any
// adjacent territory.
func (e *Engine) patrolSweep(w *World, land []*MovementState, tick int) []Event {
	var events []Event
	for _, s := range land {
		if s.action != ActionPatrol {
			continue
		}
		if s.status != stateMoving && s.status != stateStoppedEngaged {
			continue
		}
		here := s.currentTerritory()
		zone := append([]int64{here}, w.Neighbors(here)...)
		for _, tid := range zone {
			for _, hostile := range w.hostileUnitsAt(tid, s.primary) {
				if w.engaged[hostile.ID] && w.engaged[s.primary.ID] {
					continue
				}
				w.engaged[hostile.ID] = true
				w.engaged[s.primary.ID] = true
				for _, u := range s.stack {
					w.engaged[u.ID] = true
				}
				w.contested[tid] = true
				if s.status == stateMoving {
					s.status = stateStoppedEngaged
				}
				log.Debug().Int64("patrolUnit", s.primary.ID).Int64("hostileUnit", hostile.ID).
					Int("tick", tick).Msg("Patrol engagement")
				events = append(events, w.event(PhaseMovement, EventUnitEngaged, EntityUnit, hostile.ID,
					payload(append(w.UnitRecipients(s.primary), w.UnitRecipients(hostile)...), map[string]any{
						"unit_id":        hostile.UnitID,
						"patrol_unit_id": s.primary.UnitID,
						"territory_id":   tid,
						"tick":           tick,
					})))
			}
		}
	}
	return events
}

// observe records sightings: every unit sees every other unit in its own
// or an adjacent territory.
func (e *Engine) observe(w *World, tick int) []rawObservation {
	var obs []rawObservation
	for _, observer := range w.ActiveUnits() {
		if observer.CurrentTerritoryID == nil || w.transported[observer.ID] {
			continue
		}
		here := *observer.CurrentTerritoryID
		zone := append([]int64{here}, w.Neighbors(here)...)
		recipients := dedupeIDs(w.UnitRecipients(observer))
		for _, tid := range zone {
			for _, observed := range w.ActiveUnitsInTerritory(tid) {
				if observed.ID == observer.ID || w.transported[observed.ID] {
					continue
				}
				for _, rid := range recipients {
					obs = append(obs, rawObservation{
						recipientID:    rid,
						observedUnitID: observed.ID,
						territoryID:    tid,
						tick:           tick,
					})
				}
			}
		}
	}
	return obs
}

// dedupObservations collapses raw sightings to one UNIT_OBSERVED event per
// (recipient, observed unit), keeping the highest tick.
func (e *Engine) dedupObservations(w *World, obs []rawObservation) []Event {
	type key struct {
		recipient int64
		observed  int64
	}
	best := make(map[key]rawObservation)
	for _, o := range obs {
		k := key{o.recipientID, o.observedUnitID}
		if cur, ok := best[k]; !ok || o.tick > cur.tick {
			best[k] = o
		}
	}

	keys := make([]key, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].recipient != keys[j].recipient {
			return keys[i].recipient < keys[j].recipient
		}
		return keys[i].observed < keys[j].observed
	})

	events := make([]Event, 0, len(keys))
	for _, k := range keys {
		o := best[k]
		observed := w.Units[o.observedUnitID]
		events = append(events, w.event(PhaseMovement, EventUnitObserved, EntityUnit, o.observedUnitID,
			payload([]int64{o.recipientID}, map[string]any{
				"observed_unit_id": observed.UnitID,
				"territory_id":     o.territoryID,
				"tick":             o.tick,
			})))
	}
	return events
}

// finalizeMovement emits completion/progress/blocked events and
// transitions the orders.
func (e *Engine) finalizeMovement(w *World, land, carriers []*MovementState) []Event {
	var events []Event
	all := append(append([]*MovementState(nil), land...), carriers...)
	sort.Slice(all, func(i, j int) bool { return all[i].order.ID < all[j].order.ID })

	for _, s := range all {
		switch {
		case s.action == ActionPatrol || s.action == ActionNavalPatrol:
			// Standing orders keep patrolling next turn.
			s.order.Status = model.OrderOngoing
			s.persistProgress(w)
		case s.status == stateStoppedEngaged:
			if !s.blocked {
				events = append(events, w.event(PhaseMovement, EventMovementBlocked, EntityUnit, s.primary.ID,
					payload(w.UnitRecipients(s.primary), map[string]any{
						"unit_id":      s.primary.UnitID,
						"territory_id": s.currentTerritory(),
						"order_id":     s.order.ID,
					})))
			}
			s.order.Status = model.OrderOngoing
			s.persistProgress(w)
		case s.atEnd() && len(s.carried) == 0:
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
	}
	return events
}

// persistProgress writes the remaining path and transport linkage back
// into order_data so an ONGOING transit resumes next turn.
func (s *MovementState) persistProgress(w *World) {
	s.data.Path = s.remainingPath()
	s.data.TransportedBy = s.transportedBy
	raw, err := marshalOrderData(s.data)
	if err != nil {
		log.Warn().Err(err).Int64("orderId", s.order.ID).Msg("Failed to persist movement progress")
		return
	}
	s.order.OrderData = raw
	s.order.UpdatedAt = w.Now
	s.order.UpdatedTurn = w.ResolvingTurn()
}
