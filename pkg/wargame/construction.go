package wargame

import (
	"fmt"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// New buildings start at full durability.
const initialBuildingDurability = 10

// runConstruction processes MOBILIZATION and CONSTRUCTION orders strictly
// FIFO. Cost deduction is all-or-nothing per order.
func (e *Engine) runConstruction(w *World) []Event {
	var events []Event
	for _, o := range w.OrdersForPhase(PhaseConstruction) {
		switch o.OrderType {
		case OrderMobilization:
			events = append(events, e.mobilize(w, o)...)
		case OrderConstruction:
			events = append(events, e.construct(w, o)...)
		}
	}
	return events
}

// payerFor resolves and authorizes the paying pool of a construction-phase
// order: the acting character itself, or a faction the character can spend
// for (COMMAND or FINANCIAL).
func (w *World) payerFor(o *model.Order, forFactionID *int64) (model.Owner, string) {
	if o.CharacterID == nil {
		return model.NoOwner(), "Order has no acting character"
	}
	actor := *o.CharacterID
	if w.Characters[actor] == nil {
		return model.NoOwner(), "Acting character no longer exists"
	}
	if forFactionID == nil {
		return model.CharacterOwner(actor), ""
	}
	fid := *forFactionID
	if w.Factions[fid] == nil {
		return model.NoOwner(), "Faction no longer exists"
	}
	if !w.HasPermission(fid, actor, model.PermissionCommand) &&
		!w.HasPermission(fid, actor, model.PermissionFinancial) {
		return model.NoOwner(), "Missing faction permission"
	}
	return model.FactionOwner(fid), ""
}

// payCost deducts the full cost or nothing, reporting whether it was paid.
func payCost(pool *model.Resources, cost model.Resources) bool {
	for _, kind := range model.ResourceKinds {
		if pool.Get(kind) < cost.Get(kind) {
			return false
		}
	}
	for _, kind := range model.ResourceKinds {
		pool.Set(kind, pool.Get(kind)-cost.Get(kind))
	}
	return true
}

func (e *Engine) mobilize(w *World, o *model.Order) []Event {
	failed := func(reason string) []Event {
		w.failOrder(o, reason)
		return []Event{w.event(PhaseConstruction, EventMobilizationFailed, EntityOrder, o.ID,
			payload(orderRecipients(o), map[string]any{
				"order_id": o.ID,
				"error":    reason,
			}))}
	}

	var data MobilizationData
	if err := decodeOrderData(o, &data); err != nil {
		return failed("Invalid order data")
	}
	ut := w.UnitTypes[data.UnitTypeID]
	if ut == nil {
		return failed("Unknown unit type")
	}
	t := w.Territories[data.TerritoryID]
	if t == nil {
		return failed("Unknown territory")
	}
	if t.IsWater() != ut.IsNaval {
		return failed("Unit type cannot deploy on that terrain")
	}
	if data.CommanderCharacterID != nil && w.Characters[*data.CommanderCharacterID] == nil {
		return failed("Unknown commander")
	}

	payer, reason := w.payerFor(o, data.ForFactionID)
	if reason != "" {
		return failed(reason)
	}
	if !payCost(w.ResourcesFor(payer), ut.Cost) {
		return failed("Insufficient resources")
	}

	id := w.allocUnitID()
	unitID := data.UnitID
	if unitID == "" {
		unitID = fmt.Sprintf("unit-%d", id)
	}
	tid := data.TerritoryID
	u := &model.Unit{
		ID:                 id,
		UnitID:             unitID,
		UnitTypeID:         ut.ID,
		Owner:              payer,
		CommanderID:        data.CommanderCharacterID,
		FactionID:          data.ForFactionID,
		CurrentTerritoryID: &tid,
		Organization:       ut.OrganizationMax,
		MaxOrganization:    ut.OrganizationMax,
		Status:             model.UnitActive,
		IsNaval:            ut.IsNaval,
		GuildID:            w.Guild.ID,
	}
	w.Units[id] = u
	if u.IsNaval {
		w.NavalPositions[id] = []int64{tid}
	}

	w.succeedOrder(o, map[string]any{"unit_id": unitID, "cost": ut.Cost.ToMap()})
	return []Event{w.event(PhaseConstruction, EventUnitMobilized, EntityUnit, id,
		payload(append(w.UnitRecipients(u), orderRecipients(o)...), map[string]any{
			"unit_id":      unitID,
			"unit_type":    ut.TypeID,
			"territory_id": tid,
			"cost":         ut.Cost.ToMap(),
			"order_id":     o.ID,
		}))}
}

func (e *Engine) construct(w *World, o *model.Order) []Event {
	failed := func(reason string) []Event {
		w.failOrder(o, reason)
		return []Event{w.event(PhaseConstruction, EventConstructionFailed, EntityOrder, o.ID,
			payload(orderRecipients(o), map[string]any{
				"order_id": o.ID,
				"error":    reason,
			}))}
	}

	var data ConstructionData
	if err := decodeOrderData(o, &data); err != nil {
		return failed("Invalid order data")
	}
	bt := w.BuildingTypes[data.BuildingTypeID]
	if bt == nil {
		return failed("Unknown building type")
	}
	t := w.Territories[data.TerritoryID]
	if t == nil {
		return failed("Unknown territory")
	}
	if t.IsWater() {
		return failed("Cannot build on water")
	}

	payer, reason := w.payerFor(o, data.ForFactionID)
	if reason != "" {
		return failed(reason)
	}
	if !payCost(w.ResourcesFor(payer), bt.Cost) {
		return failed("Insufficient resources")
	}

	id := w.allocBuildingID()
	buildingID := data.BuildingID
	if buildingID == "" {
		buildingID = fmt.Sprintf("building-%d", id)
	}
	tid := data.TerritoryID
	b := &model.Building{
		ID:             id,
		BuildingID:     buildingID,
		BuildingTypeID: bt.ID,
		TerritoryID:    &tid,
		Durability:     initialBuildingDurability,
		Status:         model.BuildingActive,
		Upkeep:         bt.Upkeep,
		GuildID:        w.Guild.ID,
	}
	w.Buildings[id] = b

	w.succeedOrder(o, map[string]any{"building_id": buildingID, "cost": bt.Cost.ToMap()})
	return []Event{w.event(PhaseConstruction, EventBuildingConstructed, EntityBuilding, id,
		payload(orderRecipients(o), map[string]any{
			"building_id":   buildingID,
			"building_type": bt.TypeID,
			"territory_id":  tid,
			"cost":          bt.Cost.ToMap(),
			"order_id":      o.ID,
		}))}
}
