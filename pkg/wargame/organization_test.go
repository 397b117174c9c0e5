package wargame

import (
	"testing"

	"github.com/arvenwood/campaign/engine/internal/model"
)

func TestOrganizationDisbandsBrokenUnits(t *testing.T) {
	w := newTestWorld()
	u := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 1)
	u.Organization = -2

	events := NewEngine().runOrganization(w)

	if u.Status != model.UnitDisbanded {
		t.Fatalf("unit status %s, want DISBANDED", u.Status)
	}
	disbanded := findEvent(t, events, EventUnitDisbanded)
	if disbanded.Payload["final_organization"] != -2 {
		t.Errorf("final_organization %v, want -2", disbanded.Payload["final_organization"])
	}
	if disbanded.Payload["owner_name"] != "Iron Pact" {
		t.Errorf("owner_name %v, want Iron Pact", disbanded.Payload["owner_name"])
	}
}

func TestOrganizationDestroysCollapsedBuildings(t *testing.T) {
	w := newTestWorld()
	tid := int64(2)
	w.Buildings[1] = &model.Building{
		ID: 1, BuildingID: "mill-1", TerritoryID: &tid, Durability: 0,
		Status: model.BuildingActive, GuildID: 1,
	}

	events := NewEngine().runOrganization(w)

	if w.Buildings[1].Status != model.BuildingDestroyed {
		t.Fatalf("building status %s, want DESTROYED", w.Buildings[1].Status)
	}
	findEvent(t, events, EventBuildingDestroyed)
}

func TestOrganizationRecoversOnFriendlyGround(t *testing.T) {
	w := newTestWorld()
	w.Territories[1].Controller = model.FactionOwner(1)
	u := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 1)
	u.Organization = 7

	events := NewEngine().runOrganization(w)

	if u.Organization != 8 {
		t.Errorf("organization %d, want 8", u.Organization)
	}
	recovery := findEvent(t, events, EventOrgRecovery)
	if recovery.Payload["new_organization"] != 8 {
		t.Errorf("new_organization %v, want 8", recovery.Payload["new_organization"])
	}
}

func TestOrganizationRecoveryOnMemberControlledGround(t *testing.T) {
	w := newTestWorld()
	// Cara is a member of faction 1 and controls the territory personally.
	w.Territories[1].Controller = model.CharacterOwner(3)
	u := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 1)
	u.Organization = 5

	NewEngine().runOrganization(w)

	if u.Organization != 6 {
		t.Errorf("organization %d, want 6", u.Organization)
	}
}

func TestOrganizationNoRecoveryAtCapOrOnNeutralGround(t *testing.T) {
	w := newTestWorld()
	full := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 1)
	w.Territories[1].Controller = model.FactionOwner(1)
	neutral := addUnit(w, 2, 1, model.FactionOwner(1), i64(1), 2)
	neutral.Organization = 4

	events := NewEngine().runOrganization(w)

	if full.Organization != full.MaxOrganization {
		t.Errorf("full unit organization %d, want %d", full.Organization, full.MaxOrganization)
	}
	if neutral.Organization != 4 {
		t.Errorf("unit on neutral ground organization %d, want 4", neutral.Organization)
	}
	if len(findEvents(events, EventOrgRecovery)) != 0 {
		t.Error("expected no recovery events")
	}
}
