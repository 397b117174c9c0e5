package wargame

import (
	"sort"
	"strconv"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// CombatRound is one resolved round of a battle: organization damage per
// unit and whether either side breaks off afterwards.
type CombatRound struct {
	Round         int
	DamageToA     map[int64]int
	DamageToB     map[int64]int
	SideARetreats bool
	SideBRetreats bool
}

// CombatRule computes battle rounds. Implementations must be
// deterministic, side-symmetric and bounded; the engine applies the
// damage and emits the events.
type CombatRule interface {
	Resolve(w *World, territoryID int64, sideA, sideB []*model.Unit) []CombatRound
}

// DefaultCombatRule: each round a side deals its summed attack+defense
// strength (plus siege stats when a hostile ACTIVE building holds the
// field) spread evenly across the opposing units; a side breaks off when
// its organization falls below a quarter of its starting total; five
// rounds at most.
type DefaultCombatRule struct{}

const combatMaxRounds = 5

func (DefaultCombatRule) Resolve(w *World, territoryID int64, sideA, sideB []*model.Unit) []CombatRound {
	orgs := make(map[int64]int, len(sideA)+len(sideB))
	for _, u := range append(append([]*model.Unit(nil), sideA...), sideB...) {
		orgs[u.ID] = u.Organization
	}
	startA, startB := sideTotal(orgs, sideA), sideTotal(orgs, sideB)

	siegeA, siegeB := w.siegeBonuses(territoryID, sideA, sideB)

	var rounds []CombatRound
	for round := 1; round <= combatMaxRounds; round++ {
		strengthA := sideStrength(w, orgs, sideA) + siegeA
		strengthB := sideStrength(w, orgs, sideB) + siegeB

		r := CombatRound{
			Round:     round,
			DamageToA: spreadDamage(strengthB, alive(orgs, sideA)),
			DamageToB: spreadDamage(strengthA, alive(orgs, sideB)),
		}
		for id, d := range r.DamageToA {
			orgs[id] -= d
		}
		for id, d := range r.DamageToB {
			orgs[id] -= d
		}
		r.SideARetreats = sideTotal(orgs, sideA)*4 < startA
		r.SideBRetreats = sideTotal(orgs, sideB)*4 < startB
		rounds = append(rounds, r)
		if r.SideARetreats || r.SideBRetreats {
			break
		}
	}
	return rounds
}

func sideTotal(orgs map[int64]int, side []*model.Unit) int {
	total := 0
	for _, u := range side {
		if o := orgs[u.ID]; o > 0 {
			total += o
		}
	}
	return total
}

func alive(orgs map[int64]int, side []*model.Unit) []*model.Unit {
	var out []*model.Unit
	for _, u := range side {
		if orgs[u.ID] > 0 {
			out = append(out, u)
		}
	}
	return out
}

func sideStrength(w *World, orgs map[int64]int, side []*model.Unit) int {
	total := 0
	for _, u := range side {
		if orgs[u.ID] <= 0 {
			continue
		}
		if ut := w.UnitTypeOf(u); ut != nil {
			total += ut.Attack + ut.Defense
		}
	}
	return total
}

// siegeBonuses grants each side its siege stats when the enemy holds an
// ACTIVE building in the contested territory.
func (w *World) siegeBonuses(territoryID int64, sideA, sideB []*model.Unit) (int, int) {
	var hasHostileBuildingA, hasHostileBuildingB bool
	t := w.Territories[territoryID]
	if t == nil || t.Controller.IsNone() {
		return 0, 0
	}
	for _, b := range w.Buildings {
		if b.Status != model.BuildingActive || b.TerritoryID == nil || *b.TerritoryID != territoryID {
			continue
		}
		if len(sideA) > 0 && w.ownerOnSide(t.Controller, sideB) {
			hasHostileBuildingA = true
		}
		if len(sideB) > 0 && w.ownerOnSide(t.Controller, sideA) {
			hasHostileBuildingB = true
		}
	}
	var bonusA, bonusB int
	if hasHostileBuildingA {
		for _, u := range sideA {
			if ut := w.UnitTypeOf(u); ut != nil {
				bonusA += ut.SiegeAttack
			}
		}
	}
	if hasHostileBuildingB {
		for _, u := range sideB {
			if ut := w.UnitTypeOf(u); ut != nil {
				bonusB += ut.SiegeAttack
			}
		}
	}
	return bonusA, bonusB
}

// ownerOnSide reports whether a territory controller belongs to the same
// faction coalition as any unit on the given side.
func (w *World) ownerOnSide(controller model.Owner, side []*model.Unit) bool {
	for _, u := range side {
		f := w.HomeFaction(u)
		switch controller.Kind {
		case model.OwnerFaction:
			if controller.ID == f || w.Allied(controller.ID, f) {
				return true
			}
		case model.OwnerCharacter:
			if u.Owner.IsCharacter() && u.Owner.ID == controller.ID {
				return true
			}
			if ch := w.Characters[controller.ID]; ch != nil && ch.RepresentedFactionID != nil && *ch.RepresentedFactionID == f {
				return true
			}
		}
	}
	return false
}

// spreadDamage divides strength evenly across targets, rounding up.
func spreadDamage(strength int, targets []*model.Unit) map[int64]int {
	out := make(map[int64]int, len(targets))
	if strength <= 0 || len(targets) == 0 {
		return out
	}
	per := (strength + len(targets) - 1) / len(targets)
	for _, u := range targets {
		out[u.ID] = per
	}
	return out
}

// runCombat resolves every territory holding two hostile stacks.
func (e *Engine) runCombat(w *World) []Event {
	var events []Event
	for _, tid := range w.contestedTerritories() {
		sideA, sideB := w.assembleSides(tid)
		if len(sideA) == 0 || len(sideB) == 0 {
			continue
		}
		events = append(events, e.resolveBattle(w, tid, sideA, sideB)...)
	}
	return events
}

// contestedTerritories returns, sorted, every territory where two hostile
// stacks stand. Movement-phase engagements seed the set; a fresh scan
// catches stacks that were hostile before any order ran.
func (w *World) contestedTerritories() []int64 {
	set := make(map[int64]bool)
	for tid := range w.contested {
		set[tid] = true
	}
	for tid := range w.Territories {
		units := w.landUnitsForCombat(tid)
		for i := 0; i < len(units) && !set[tid]; i++ {
			for j := i + 1; j < len(units); j++ {
				if w.Hostile(units[i], units[j]) {
					set[tid] = true
					break
				}
			}
		}
	}
	out := make([]int64, 0, len(set))
	for tid := range set {
		out = append(out, tid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (w *World) landUnitsForCombat(territoryID int64) []*model.Unit {
	var out []*model.Unit
	for _, u := range w.ActiveUnitsInTerritory(territoryID) {
		if u.IsNaval || w.transported[u.ID] || u.Organization <= 0 {
			continue
		}
		out = append(out, u)
	}
	return out
}

// assembleSides partitions the hostile units in a territory into two
// sides, seeded by the lowest-id unit with an enemy present.
func (w *World) assembleSides(territoryID int64) (sideA, sideB []*model.Unit) {
	units := w.landUnitsForCombat(territoryID)
	var seed *model.Unit
	for _, u := range units {
		for _, v := range units {
			if u.ID != v.ID && w.Hostile(u, v) {
				seed = u
				break
			}
		}
		if seed != nil {
			break
		}
	}
	if seed == nil {
		return nil, nil
	}
	sideA = append(sideA, seed)
	for _, u := range units {
		if u.ID == seed.ID {
			continue
		}
		if w.Hostile(seed, u) {
			sideB = append(sideB, u)
		}
	}
	for _, u := range units {
		if u.ID == seed.ID || containsUnit(sideB, u) {
			continue
		}
		for _, b := range sideB {
			if w.Hostile(u, b) {
				sideA = append(sideA, u)
				break
			}
		}
	}
	return sideA, sideB
}

func containsUnit(side []*model.Unit, u *model.Unit) bool {
	for _, s := range side {
		if s.ID == u.ID {
			return true
		}
	}
	return false
}

func (e *Engine) resolveBattle(w *World, territoryID int64, sideA, sideB []*model.Unit) []Event {
	var events []Event

	var affected []int64
	for _, u := range append(append([]*model.Unit(nil), sideA...), sideB...) {
		affected = append(affected, w.UnitRecipients(u)...)
	}

	events = append(events, w.event(PhaseCombat, EventCombatStarted, EntityTerritory, territoryID,
		payload(affected, map[string]any{
			"territory_id": territoryID,
			"side_a":       unitIDs(sideA),
			"side_b":       unitIDs(sideB),
		})))

	rounds := e.Combat.Resolve(w, territoryID, sideA, sideB)
	for _, r := range rounds {
		applyDamage(w, r.DamageToA)
		applyDamage(w, r.DamageToB)
		events = append(events, w.event(PhaseCombat, EventCombatRound, EntityTerritory, territoryID,
			payload(affected, map[string]any{
				"territory_id":     territoryID,
				"round":            r.Round,
				"damage_to_side_a": damageMap(r.DamageToA),
				"damage_to_side_b": damageMap(r.DamageToB),
			})))
	}

	aRetreats := len(rounds) > 0 && rounds[len(rounds)-1].SideARetreats
	bRetreats := len(rounds) > 0 && rounds[len(rounds)-1].SideBRetreats

	if aRetreats {
		events = append(events, e.retreatSide(w, territoryID, sideA)...)
	}
	if bRetreats {
		events = append(events, e.retreatSide(w, territoryID, sideB)...)
	}

	// Capture: the side left holding the field takes the territory from a
	// controller that fought on the losing side.
	t := w.Territories[territoryID]
	aHolds := sideHoldsField(sideA, aRetreats)
	bHolds := sideHoldsField(sideB, bRetreats)
	if t != nil && !t.Controller.IsNone() && aHolds != bHolds {
		winners, losers := sideA, sideB
		if bHolds {
			winners, losers = sideB, sideA
		}
		if w.ownerOnSide(t.Controller, losers) {
			newController := captorOwner(w, winners)
			if !newController.IsNone() {
				old := t.Controller
				t.Controller = newController
				events = append(events, w.event(PhaseCombat, EventTerritoryCaptured, EntityTerritory, territoryID,
					payload(affected, map[string]any{
						"territory_id":   t.TerritoryID,
						"old_controller": old.String(),
						"new_controller": newController.String(),
					})))
			}
			events = append(events, e.damageBuildings(w, territoryID, len(rounds), affected)...)
		}
	}

	events = append(events, w.event(PhaseCombat, EventCombatEnded, EntityTerritory, territoryID,
		payload(affected, map[string]any{
			"territory_id":    territoryID,
			"rounds":          len(rounds),
			"side_a_retreats": aRetreats,
			"side_b_retreats": bRetreats,
		})))
	return events
}

func sideHoldsField(side []*model.Unit, retreated bool) bool {
	if retreated {
		return false
	}
	for _, u := range side {
		if u.Organization > 0 {
			return true
		}
	}
	return false
}

// captorOwner picks the controller for a captured territory: the winning
// side's home faction, or the first winner's owning character.
func captorOwner(w *World, winners []*model.Unit) model.Owner {
	for _, u := range winners {
		if u.Organization <= 0 {
			continue
		}
		if f := w.HomeFaction(u); f != 0 {
			return model.FactionOwner(f)
		}
		if u.Owner.IsCharacter() {
			return u.Owner
		}
	}
	return model.NoOwner()
}

// retreatSide pulls a broken side back to the lowest-id adjacent land
// territory without hostiles; units with nowhere to go stand their ground.
func (e *Engine) retreatSide(w *World, territoryID int64, side []*model.Unit) []Event {
	var events []Event
	for _, u := range side {
		if u.Organization <= 0 {
			continue
		}
		dest := int64(-1)
		for _, n := range w.Neighbors(territoryID) {
			t := w.Territories[n]
			if t == nil || t.IsWater() {
				continue
			}
			if len(w.hostileUnitsAt(n, u)) > 0 {
				continue
			}
			dest = n
			break
		}
		if dest < 0 {
			continue
		}
		d := dest
		u.CurrentTerritoryID = &d
		events = append(events, w.event(PhaseCombat, EventCombatRetreat, EntityUnit, u.ID,
			payload(w.UnitRecipients(u), map[string]any{
				"unit_id":      u.UnitID,
				"from":         territoryID,
				"territory_id": dest,
			})))
	}
	return events
}

// damageBuildings chips durability off the loser's buildings, one point
// per battle round.
func (e *Engine) damageBuildings(w *World, territoryID int64, rounds int, affected []int64) []Event {
	var events []Event
	var buildings []*model.Building
	for _, b := range w.Buildings {
		if b.Status == model.BuildingActive && b.TerritoryID != nil && *b.TerritoryID == territoryID {
			buildings = append(buildings, b)
		}
	}
	sort.Slice(buildings, func(i, j int) bool { return buildings[i].ID < buildings[j].ID })
	for _, b := range buildings {
		b.Durability -= rounds
		events = append(events, w.event(PhaseCombat, EventBuildingCombatDamage, EntityBuilding, b.ID,
			payload(affected, map[string]any{
				"building_id":    b.BuildingID,
				"damage":         rounds,
				"new_durability": b.Durability,
			})))
	}
	return events
}

func applyDamage(w *World, damage map[int64]int) {
	ids := make([]int64, 0, len(damage))
	for id := range damage {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if u := w.Units[id]; u != nil {
			u.Organization -= damage[id]
		}
	}
}

func unitIDs(side []*model.Unit) []int64 {
	out := make([]int64, 0, len(side))
	for _, u := range side {
		out = append(out, u.ID)
	}
	return out
}

// damageMap converts int64-keyed damage to a JSON-friendly payload shape.
func damageMap(damage map[int64]int) map[string]int {
	out := make(map[string]int, len(damage))
	for id, d := range damage {
		out[key64(id)] = d
	}
	return out
}

func key64(id int64) string {
	return strconv.FormatInt(id, 10)
}
