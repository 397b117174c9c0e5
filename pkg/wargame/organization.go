package wargame

import (
	"github.com/arvenwood/campaign/engine/internal/model"
)

// runOrganization disbands broken units, destroys collapsed buildings and
// recovers organization for units resting on friendly ground.
func (e *Engine) runOrganization(w *World) []Event {
	var events []Event

	for _, u := range w.ActiveUnits() {
		if u.Organization > 0 {
			continue
		}
		u.Status = model.UnitDisbanded
		events = append(events, w.event(PhaseOrganization, EventUnitDisbanded, EntityUnit, u.ID,
			payload(w.UnitRecipients(u), map[string]any{
				"unit_id":            u.UnitID,
				"final_organization": u.Organization,
				"owner_name":         w.OwnerName(u.Owner),
			})))
	}

	for _, bid := range sortedIDs(w.Buildings) {
		b := w.Buildings[bid]
		if b.Status != model.BuildingActive || b.Durability > 0 {
			continue
		}
		b.Status = model.BuildingDestroyed
		var affected []int64
		if b.TerritoryID != nil {
			if t := w.Territories[*b.TerritoryID]; t != nil {
				affected = w.ControllerCharacters(t.Controller)
			}
		}
		events = append(events, w.event(PhaseOrganization, EventBuildingDestroyed, EntityBuilding, b.ID,
			payload(affected, map[string]any{
				"building_id":      b.BuildingID,
				"final_durability": b.Durability,
			})))
	}

	for _, u := range w.ActiveUnits() {
		if u.Organization >= u.MaxOrganization || u.CurrentTerritoryID == nil {
			continue
		}
		if !w.friendlyGround(*u.CurrentTerritoryID, w.HomeFaction(u)) {
			continue
		}
		u.Organization++
		events = append(events, w.event(PhaseOrganization, EventOrgRecovery, EntityUnit, u.ID,
			payload(w.UnitRecipients(u), map[string]any{
				"unit_id":          u.UnitID,
				"new_organization": u.Organization,
			})))
	}

	return events
}

// friendlyGround reports whether a territory is controlled by the given
// faction or by one of its member characters.
func (w *World) friendlyGround(territoryID, factionID int64) bool {
	if factionID == 0 {
		return false
	}
	t := w.Territories[territoryID]
	if t == nil {
		return false
	}
	switch t.Controller.Kind {
	case model.OwnerFaction:
		return t.Controller.ID == factionID
	case model.OwnerCharacter:
		return w.IsMember(factionID, t.Controller.ID)
	}
	return false
}
