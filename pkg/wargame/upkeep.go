package wargame

import (
	"sort"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// runUpkeep deducts faction spending, building upkeep and unit upkeep, in
// that order. Balances never go negative; shortfalls convert into
// durability and organization penalties instead.
func (e *Engine) runUpkeep(w *World) []Event {
	var events []Event
	events = append(events, e.factionSpending(w)...)
	events = append(events, e.buildingUpkeep(w)...)
	events = append(events, e.unitUpkeep(w)...)
	return events
}

func (e *Engine) factionSpending(w *World) []Event {
	var events []Event
	for _, fid := range sortedIDs(w.Factions) {
		f := w.Factions[fid]
		if f.Spending.IsZero() {
			continue
		}
		pool := w.ResourcesFor(model.FactionOwner(fid))
		spent, shortfall := deduct(pool, f.Spending)
		affected := w.PermissionHolders(fid, model.PermissionFinancial)
		if len(shortfall) == 0 {
			events = append(events, w.event(PhaseUpkeep, EventFactionSpending, EntityFaction, fid,
				payload(affected, map[string]any{
					"faction_id":    fid,
					"amounts_spent": spent.ToMap(),
				})))
		} else {
			events = append(events, w.event(PhaseUpkeep, EventFactionSpendingPartial, EntityFaction, fid,
				payload(affected, map[string]any{
					"faction_id":    fid,
					"amounts_spent": spent.ToMap(),
					"shortfall":     shortfallMap(f.Spending, spent),
				})))
		}
	}
	return events
}

// deduct takes min(needed, available) per resource from pool and returns
// what was paid plus the list of resource kinds that came up short.
func deduct(pool *model.Resources, needed model.Resources) (model.Resources, []string) {
	var paid model.Resources
	var short []string
	for _, kind := range model.ResourceKinds {
		want := needed.Get(kind)
		if want <= 0 {
			continue
		}
		have := pool.Get(kind)
		give := want
		if have < want {
			give = have
			short = append(short, kind)
		}
		paid.Set(kind, give)
		pool.Set(kind, have-give)
	}
	return paid, short
}

// shortfallMap reports, per kind, how much of the needed amount went unpaid.
func shortfallMap(needed, paid model.Resources) map[string]int {
	out := make(map[string]int)
	for _, kind := range model.ResourceKinds {
		if d := needed.Get(kind) - paid.Get(kind); d > 0 {
			out[kind] = d
		}
	}
	return out
}

// upkeepKindCount counts the distinct resource kinds a bundle demands.
func upkeepKindCount(r model.Resources) int {
	n := 0
	for _, kind := range model.ResourceKinds {
		if r.Get(kind) > 0 {
			n++
		}
	}
	return n
}

func (e *Engine) buildingUpkeep(w *World) []Event {
	var buildings []*model.Building
	for _, b := range w.Buildings {
		if b.Status == model.BuildingActive && !b.Upkeep.IsZero() {
			buildings = append(buildings, b)
		}
	}
	sort.Slice(buildings, func(i, j int) bool {
		if buildings[i].Durability != buildings[j].Durability {
			return buildings[i].Durability < buildings[j].Durability
		}
		ti, tj := territoryKey(buildings[i]), territoryKey(buildings[j])
		if ti != tj {
			return ti < tj
		}
		return buildings[i].ID < buildings[j].ID
	})

	var events []Event
	for _, b := range buildings {
		var controller model.Owner
		if b.TerritoryID != nil {
			if t := w.Territories[*b.TerritoryID]; t != nil {
				controller = t.Controller
			}
		}

		var paid model.Resources
		var short []string
		if controller.IsNone() || !w.OwnerExists(controller) {
			// Nobody to pay: every demanded kind is a deficit.
			for _, kind := range model.ResourceKinds {
				if b.Upkeep.Get(kind) > 0 {
					short = append(short, kind)
				}
			}
		} else {
			paid, short = deduct(w.ResourcesFor(controller), b.Upkeep)
		}

		affected := w.ControllerCharacters(controller)
		if len(short) == 0 {
			events = append(events, w.event(PhaseUpkeep, EventBuildingUpkeepPaid, EntityBuilding, b.ID,
				payload(affected, map[string]any{
					"building_id":    b.BuildingID,
					"resources_paid": paid.ToMap(),
				})))
			continue
		}
		b.Durability -= len(short)
		events = append(events, w.event(PhaseUpkeep, EventBuildingUpkeepDeficit, EntityBuilding, b.ID,
			payload(affected, map[string]any{
				"building_id":        b.BuildingID,
				"resources_paid":     paid.ToMap(),
				"deficit_types":      short,
				"durability_penalty": len(short),
				"new_durability":     b.Durability,
			})))
	}
	return events
}

func territoryKey(b *model.Building) int64 {
	if b.TerritoryID == nil {
		return -1
	}
	return *b.TerritoryID
}

func (e *Engine) unitUpkeep(w *World) []Event {
	groups := make(map[model.Owner][]*model.Unit)
	for _, u := range w.ActiveUnits() {
		groups[u.Owner] = append(groups[u.Owner], u)
	}
	owners := make([]model.Owner, 0, len(groups))
	for o := range groups {
		owners = append(owners, o)
	}
	sort.Slice(owners, func(i, j int) bool {
		if owners[i].Kind != owners[j].Kind {
			return owners[i].Kind < owners[j].Kind
		}
		return owners[i].ID < owners[j].ID
	})

	var events []Event
	for _, owner := range owners {
		events = append(events, e.ownerUnitUpkeep(w, owner, groups[owner])...)
	}
	return events
}

// ownerUnitUpkeep runs upkeep for one owner's units, unit id ascending,
// then emits the per-owner summary and total-deficit events.
func (e *Engine) ownerUnitUpkeep(w *World, owner model.Owner, units []*model.Unit) []Event {
	isFaction := owner.IsFaction()
	encircledType := EventUpkeepEncircled
	deficitType := EventUpkeepDeficit
	summaryType := EventUpkeepSummary
	totalType := EventUpkeepTotalDeficit
	if isFaction {
		encircledType = EventFactionUpkeepEncircled
		deficitType = EventFactionUpkeepDeficit
		summaryType = EventFactionUpkeepSummary
		totalType = EventFactionUpkeepTotalDeficit
	}

	var events []Event
	var totalPaid model.Resources
	totalShort := make(map[string]int)
	var paidUnits []string
	anyDeficit := false

	for _, u := range units {
		ut := w.UnitTypeOf(u)
		if ut == nil || ut.Upkeep.IsZero() {
			continue
		}
		affected := w.UnitRecipients(u)

		if w.Encircled[u.ID] {
			// Cut off from supply: nothing is spent, the full kind count
			// lands on organization.
			penalty := upkeepKindCount(ut.Upkeep)
			u.Organization -= penalty
			anyDeficit = true
			events = append(events, w.event(PhaseUpkeep, encircledType, EntityUnit, u.ID,
				payload(affected, map[string]any{
					"unit_id":               u.UnitID,
					"organization_penalty":  penalty,
					"resource_types_needed": upkeepKinds(ut.Upkeep),
					"new_organization":      u.Organization,
				})))
			continue
		}

		paid, short := deduct(w.ResourcesFor(owner), ut.Upkeep)
		totalPaid.Add(paid)
		if len(short) == 0 {
			paidUnits = append(paidUnits, u.UnitID)
			continue
		}
		anyDeficit = true
		for kind, d := range shortfallMap(ut.Upkeep, paid) {
			totalShort[kind] += d
		}
		u.Organization -= len(short)
		events = append(events, w.event(PhaseUpkeep, deficitType, EntityUnit, u.ID,
			payload(affected, map[string]any{
				"unit_id":              u.UnitID,
				"resources_paid":       paid.ToMap(),
				"deficit_types":        short,
				"organization_penalty": len(short),
				"new_organization":     u.Organization,
			})))
	}

	if len(paidUnits) == 0 && totalPaid.IsZero() && !anyDeficit {
		return events
	}

	affected := w.ownerUpkeepRecipients(owner, units)
	entityID := owner.ID
	entityType := EntityCharacter
	if isFaction {
		entityType = EntityFaction
	}
	events = append(events, w.event(PhaseUpkeep, summaryType, entityType, entityID,
		payload(affected, map[string]any{
			"owner":          owner.String(),
			"owner_name":     w.OwnerName(owner),
			"units_paid":     paidUnits,
			"resources_paid": totalPaid.ToMap(),
		})))
	if anyDeficit {
		events = append(events, w.event(PhaseUpkeep, totalType, entityType, entityID,
			payload(affected, map[string]any{
				"owner":           owner.String(),
				"owner_name":      w.OwnerName(owner),
				"total_shortfall": totalShort,
			})))
	}
	return events
}

// ownerUpkeepRecipients: the owning character, or the faction's COMMAND
// holders, plus every commander in the group.
func (w *World) ownerUpkeepRecipients(owner model.Owner, units []*model.Unit) []int64 {
	var ids []int64
	switch owner.Kind {
	case model.OwnerCharacter:
		ids = append(ids, owner.ID)
	case model.OwnerFaction:
		ids = append(ids, w.PermissionHolders(owner.ID, model.PermissionCommand)...)
	}
	for _, u := range units {
		if u.CommanderID != nil {
			ids = append(ids, *u.CommanderID)
		}
	}
	return ids
}

// upkeepKinds lists the resource kinds a bundle demands, in canonical order.
func upkeepKinds(r model.Resources) []string {
	var out []string
	for _, kind := range model.ResourceKinds {
		if r.Get(kind) > 0 {
			out = append(out, kind)
		}
	}
	return out
}
