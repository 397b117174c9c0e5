package wargame

import (
	"testing"

	"github.com/arvenwood/campaign/engine/internal/model"
)

func TestCombatWeakerSideRetreats(t *testing.T) {
	w := newTestWorld()
	declareWarBetween(w, 1, 2)
	strong := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 3) // attack 3 defense 2
	weak := addUnit(w, 2, 2, model.FactionOwner(2), i64(2), 3)   // attack 1 defense 1

	events := NewEngine().runCombat(w)

	findEvent(t, events, EventCombatStarted)
	ended := findEvent(t, events, EventCombatEnded)
	if ended.Payload["side_b_retreats"] != true {
		t.Error("the militia side should retreat")
	}
	if len(findEvents(events, EventCombatRound)) == 0 {
		t.Error("expected at least one COMBAT_ROUND")
	}
	if strong.Organization <= 0 {
		t.Error("the infantry should survive")
	}
	if weak.CurrentTerritoryID == nil || *weak.CurrentTerritoryID == 3 {
		t.Error("the beaten unit should have pulled back from territory 3")
	}
	retreat := findEvent(t, events, EventCombatRetreat)
	if retreat.EntityID != weak.ID {
		t.Errorf("retreat event for unit %d, want %d", retreat.EntityID, weak.ID)
	}
}

func TestCombatCapturesTerritoryFromLosingController(t *testing.T) {
	w := newTestWorld()
	declareWarBetween(w, 1, 2)
	w.Territories[3].Controller = model.FactionOwner(2)
	addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 3)
	addUnit(w, 2, 2, model.FactionOwner(2), i64(2), 3)

	events := NewEngine().runCombat(w)

	captured := findEvent(t, events, EventTerritoryCaptured)
	if captured.EntityID != 3 {
		t.Errorf("captured territory %d, want 3", captured.EntityID)
	}
	c := w.Territories[3].Controller
	if !c.IsFaction() || c.ID != 1 {
		t.Errorf("controller after capture %s, want faction:1", c.String())
	}
}

func TestCombatDamagesLosersBuildings(t *testing.T) {
	w := newTestWorld()
	declareWarBetween(w, 1, 2)
	w.Territories[3].Controller = model.FactionOwner(2)
	tid := int64(3)
	w.Buildings[1] = &model.Building{
		ID: 1, BuildingID: "fort-1", TerritoryID: &tid, Durability: 10,
		Status: model.BuildingActive, GuildID: 1,
	}
	addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 3)
	addUnit(w, 2, 2, model.FactionOwner(2), i64(2), 3)

	events := NewEngine().runCombat(w)

	damage := findEvent(t, events, EventBuildingCombatDamage)
	if damage.EntityID != 1 {
		t.Errorf("damage event for building %d, want 1", damage.EntityID)
	}
	if w.Buildings[1].Durability >= 10 {
		t.Errorf("durability %d, want below 10", w.Buildings[1].Durability)
	}
}

func TestCombatSkipsNonHostileNeighbors(t *testing.T) {
	w := newTestWorld()
	// No war: co-located units of different factions do not fight.
	addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 3)
	addUnit(w, 2, 2, model.FactionOwner(2), i64(2), 3)

	events := NewEngine().runCombat(w)

	if len(events) != 0 {
		t.Errorf("expected no combat events, got %d", len(events))
	}
}

func TestDefaultCombatRuleIsDeterministicAndBounded(t *testing.T) {
	w := newTestWorld()
	declareWarBetween(w, 1, 2)
	a := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 3)
	b := addUnit(w, 2, 1, model.FactionOwner(2), i64(2), 3)

	rule := DefaultCombatRule{}
	first := rule.Resolve(w, 3, []*model.Unit{a}, []*model.Unit{b})
	second := rule.Resolve(w, 3, []*model.Unit{a}, []*model.Unit{b})

	if len(first) == 0 || len(first) > combatMaxRounds {
		t.Fatalf("round count %d, want 1..%d", len(first), combatMaxRounds)
	}
	if len(first) != len(second) {
		t.Fatalf("rule is nondeterministic: %d vs %d rounds", len(first), len(second))
	}
	for i := range first {
		if first[i].DamageToA[a.ID] != second[i].DamageToA[a.ID] ||
			first[i].DamageToB[b.ID] != second[i].DamageToB[b.ID] {
			t.Errorf("round %d differs between runs", i+1)
		}
	}
	// Equal types against each other deal symmetric damage.
	for _, r := range first {
		if r.DamageToA[a.ID] != r.DamageToB[b.ID] {
			t.Errorf("asymmetric damage in round %d: %d vs %d", r.Round, r.DamageToA[a.ID], r.DamageToB[b.ID])
		}
	}
}
