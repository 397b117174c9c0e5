package wargame

import (
	"github.com/arvenwood/campaign/engine/internal/model"
)

// runEncirclement flags every ACTIVE land unit that cannot reach friendly
// or allied territory over a supply-safe path. The encircled set carries
// forward into Upkeep.
func (e *Engine) runEncirclement(w *World) []Event {
	var events []Event
	for _, u := range w.ActiveUnits() {
		if u.IsNaval || u.CurrentTerritoryID == nil || w.transported[u.ID] {
			continue
		}
		home := w.HomeFaction(u)
		if home == 0 {
			// No faction, no supply lines to cut.
			continue
		}
		if w.hasSupplyPath(*u.CurrentTerritoryID, home) {
			continue
		}
		w.Encircled[u.ID] = true
		events = append(events, w.event(PhaseEncirclement, EventUnitEncircled, EntityUnit, u.ID,
			payload(w.UnitRecipients(u), map[string]any{
				"unit_id":      u.UnitID,
				"territory_id": *u.CurrentTerritoryID,
				"faction_id":   home,
			})))
	}
	return events
}

// hasSupplyPath walks the adjacency graph from start, through non-water
// territories that are uncontrolled or controlled by the home faction or
// an ally, looking for any territory the home faction or an ally directly
// controls. Hostile-controlled territories block the walk.
func (w *World) hasSupplyPath(start, home int64) bool {
	friendly := func(t *model.Territory) bool {
		if !t.Controller.IsFaction() {
			return false
		}
		return t.Controller.ID == home || w.Allied(t.Controller.ID, home)
	}
	passable := func(t *model.Territory) bool {
		if t.IsWater() {
			return false
		}
		if t.Controller.IsNone() {
			return true
		}
		return friendly(t)
	}

	if t := w.Territories[start]; t != nil && friendly(t) {
		return true
	}

	visited := map[int64]bool{start: true}
	queue := []int64{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range w.Neighbors(cur) {
			if visited[n] {
				continue
			}
			visited[n] = true
			t := w.Territories[n]
			if t == nil {
				continue
			}
			if friendly(t) {
				return true
			}
			if passable(t) {
				queue = append(queue, n)
			}
		}
	}
	return false
}
