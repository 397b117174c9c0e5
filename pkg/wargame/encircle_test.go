package wargame

import (
	"testing"

	"github.com/arvenwood/campaign/engine/internal/model"
)

func TestEncirclementCutOffUnitIsFlagged(t *testing.T) {
	w := newTestWorld()
	declareWarBetween(w, 1, 2)
	// Unit sits at territory 1; the only route to friendly ground runs
	// through territory 2, which the enemy controls.
	w.Territories[2].Controller = model.FactionOwner(2)
	w.Territories[3].Controller = model.FactionOwner(1)
	u := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 1)

	events := NewEngine().runEncirclement(w)

	if !w.Encircled[u.ID] {
		t.Fatal("unit should be encircled")
	}
	encircled := findEvent(t, events, EventUnitEncircled)
	if encircled.EntityID != u.ID {
		t.Errorf("event for unit %d, want %d", encircled.EntityID, u.ID)
	}
}

func TestEncirclementPathThroughUncontrolledLand(t *testing.T) {
	w := newTestWorld()
	declareWarBetween(w, 1, 2)
	// Territory 2 is uncontrolled, territory 3 is friendly: supply holds.
	w.Territories[3].Controller = model.FactionOwner(1)
	u := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 1)

	events := NewEngine().runEncirclement(w)

	if w.Encircled[u.ID] {
		t.Error("unit with an open route should not be encircled")
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestEncirclementAlliedTerritoryCountsAsFriendly(t *testing.T) {
	w := newTestWorld()
	declareWarBetween(w, 1, 2)
	w.Factions[3] = &model.Faction{ID: 3, FactionID: "reavers", Name: "Reavers", GuildID: 1}
	w.Alliances = append(w.Alliances, &model.Alliance{
		ID: 1, FactionAID: 1, FactionBID: 3, Status: model.AllianceActive, InitiatedByFactionID: 1, GuildID: 1,
	})
	w.Territories[2].Controller = model.FactionOwner(3)
	u := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 1)

	events := NewEngine().runEncirclement(w)

	if w.Encircled[u.ID] {
		t.Error("an ally-controlled neighbor keeps the unit supplied")
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestEncirclementStandingOnFriendlyGround(t *testing.T) {
	w := newTestWorld()
	declareWarBetween(w, 1, 2)
	w.Territories[1].Controller = model.FactionOwner(1)
	// Everything around is hostile, but the unit stands on home soil.
	w.Territories[2].Controller = model.FactionOwner(2)
	u := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 1)

	NewEngine().runEncirclement(w)

	if w.Encircled[u.ID] {
		t.Error("a unit on friendly ground is never encircled")
	}
}

func TestEncirclementWaterBlocksSupply(t *testing.T) {
	w := newTestWorld()
	declareWarBetween(w, 1, 2)
	// Friendly ground exists only across the water tile 6.
	w.Territories[2].Controller = model.FactionOwner(2)
	w.Territories[3].Controller = model.FactionOwner(1)
	// Unit at 2's far side: territory 1 only connects onward through 2.
	u := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 1)

	NewEngine().runEncirclement(w)

	if !w.Encircled[u.ID] {
		t.Error("water and hostile ground together should cut the unit off")
	}
}

func TestEncirclementFactionlessUnitSkipped(t *testing.T) {
	w := newTestWorld()
	ch := w.Characters[3]
	ch.RepresentedFactionID = nil
	u := addUnit(w, 1, 1, model.CharacterOwner(3), nil, 1)

	events := NewEngine().runEncirclement(w)

	if w.Encircled[u.ID] {
		t.Error("faction-less unit cannot be encircled")
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}
