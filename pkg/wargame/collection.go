package wargame

import (
	"sort"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// Sacred-land territories never produce, regardless of controller.
const terrainSacredLand = "sacred-land"

// runResourceCollection credits personal production, territory production
// and the first-war bonus, then emits one aggregated event per character
// and per faction.
func (e *Engine) runResourceCollection(w *World) []Event {
	charGain := make(map[int64]*model.Resources)
	factionGain := make(map[int64]*model.Resources)
	warBonus := make(map[int64]*model.Resources)
	bonusFaction := make(map[int64]int64)

	gain := func(m map[int64]*model.Resources, id int64) *model.Resources {
		r, ok := m[id]
		if !ok {
			r = &model.Resources{}
			m[id] = r
		}
		return r
	}

	// Personal production.
	for _, id := range sortedIDs(w.Characters) {
		ch := w.Characters[id]
		if ch.Production.IsZero() {
			continue
		}
		w.ResourcesFor(model.CharacterOwner(id)).Add(ch.Production)
		gain(charGain, id).Add(ch.Production)
	}

	// Territory production into the controller's pool.
	for _, tid := range sortedIDs(w.Territories) {
		t := w.Territories[tid]
		if t.Controller.IsNone() || t.TerrainType == terrainSacredLand || t.Production.IsZero() {
			continue
		}
		w.ResourcesFor(t.Controller).Add(t.Production)
		switch t.Controller.Kind {
		case model.OwnerCharacter:
			gain(charGain, t.Controller.ID).Add(t.Production)
		case model.OwnerFaction:
			gain(factionGain, t.Controller.ID).Add(t.Production)
		}
	}

	// First-war bonus: every member of a faction that declared its first
	// war this turn collects a second round of personal production plus
	// the production of territories they personally control.
	for _, fid := range sortedIDs(w.firstWarFactions) {
		for _, m := range w.MembersOf(fid) {
			ch := w.Characters[m.CharacterID]
			if ch == nil {
				continue
			}
			bonus := ch.Production
			for _, tid := range sortedIDs(w.Territories) {
				t := w.Territories[tid]
				if t.Controller.IsCharacter() && t.Controller.ID == m.CharacterID &&
					t.TerrainType != terrainSacredLand {
					bonus.Add(t.Production)
				}
			}
			if bonus.IsZero() {
				continue
			}
			w.ResourcesFor(model.CharacterOwner(m.CharacterID)).Add(bonus)
			gain(warBonus, m.CharacterID).Add(bonus)
			bonusFaction[m.CharacterID] = fid
		}
	}

	var events []Event
	for _, id := range sortedIDs(union(charGain, warBonus)) {
		data := map[string]any{
			"character_id": id,
			"resources":    resourceGain(charGain[id]),
		}
		if b, ok := warBonus[id]; ok {
			data["war_bonus"] = map[string]any{
				"faction_id": bonusFaction[id],
				"resources":  b.ToMap(),
			}
		}
		events = append(events, w.event(PhaseResourceCollection, EventCharacterProduction,
			EntityCharacter, id, payload([]int64{id}, data)))
	}
	for _, fid := range sortedIDs(factionGain) {
		events = append(events, w.event(PhaseResourceCollection, EventFactionTerritoryProduction,
			EntityFaction, fid, payload(w.PermissionHolders(fid, model.PermissionFinancial), map[string]any{
				"faction_id": fid,
				"resources":  factionGain[fid].ToMap(),
			})))
	}
	return events
}

func resourceGain(r *model.Resources) map[string]int {
	if r == nil {
		return map[string]int{}
	}
	return r.ToMap()
}

func union(a, b map[int64]*model.Resources) map[int64]*model.Resources {
	out := make(map[int64]*model.Resources, len(a)+len(b))
	for id, r := range a {
		out[id] = r
	}
	for id, r := range b {
		if _, ok := out[id]; !ok {
			out[id] = r
		}
	}
	return out
}

// sortedIDs returns the keys of an id-keyed map in ascending order.
func sortedIDs[V any](m map[int64]V) []int64 {
	out := make([]int64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
