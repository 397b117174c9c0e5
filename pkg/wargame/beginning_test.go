package wargame

import (
	"testing"

	"github.com/arvenwood/campaign/engine/internal/model"
)

func TestJoinFactionSetsRepresentation(t *testing.T) {
	w := newTestWorld()
	w.Characters[4] = &model.Character{ID: 4, Identifier: "dan", GuildID: 1}
	o := addOrder(w, t, OrderJoinFaction, 4, JoinFactionData{FactionID: 2})

	events := NewEngine().runBeginning(w)

	if o.Status != model.OrderSuccess {
		t.Fatalf("order status %s, want SUCCESS", o.Status)
	}
	if !w.IsMember(2, 4) {
		t.Error("character 4 should be a member of faction 2")
	}
	ch := w.Characters[4]
	if ch.RepresentedFactionID == nil || *ch.RepresentedFactionID != 2 {
		t.Error("first faction joined should become the represented one")
	}
	joined := findEvent(t, events, EventFactionJoined)
	if joined.Payload["is_represented"] != true {
		t.Error("event should mark the join as representation-setting")
	}
}

func TestLeaveFactionLeaderMustHandOffFirst(t *testing.T) {
	w := newTestWorld()
	o := addOrder(w, t, OrderLeaveFaction, 1, LeaveFactionData{FactionID: 1})

	NewEngine().runBeginning(w)

	if o.Status != model.OrderFailed {
		t.Errorf("leader leave order status %s, want FAILED", o.Status)
	}
	if !w.IsMember(1, 1) {
		t.Error("leader should still be a member")
	}
}

func TestLeaveFactionRepointsRepresentationAndUnits(t *testing.T) {
	w := newTestWorld()
	// Cara joins faction 2 as well, later than faction 1.
	w.Members = append(w.Members, model.FactionMember{FactionID: 2, CharacterID: 3, JoinedTurn: 3, GuildID: 1})
	u := addUnit(w, 1, 1, model.CharacterOwner(3), i64(1), 1)
	o := addOrder(w, t, OrderLeaveFaction, 3, LeaveFactionData{FactionID: 1})

	NewEngine().runBeginning(w)

	if o.Status != model.OrderSuccess {
		t.Fatalf("order status %s, want SUCCESS", o.Status)
	}
	ch := w.Characters[3]
	if ch.RepresentedFactionID == nil || *ch.RepresentedFactionID != 2 {
		t.Error("representation should move to the most recent remaining membership")
	}
	if u.FactionID == nil || *u.FactionID != 2 {
		t.Error("faction-scoped unit should follow the new representation")
	}
}

func TestKickRequiresCommandPermission(t *testing.T) {
	w := newTestWorld()
	o := addOrder(w, t, OrderKickFromFaction, 3, KickData{FactionID: 1, TargetCharacterID: 1})

	NewEngine().runBeginning(w)

	if o.Status != model.OrderFailed {
		t.Errorf("kick without COMMAND: status %s, want FAILED", o.Status)
	}
}

func TestMakeAllianceTwoStepActivation(t *testing.T) {
	w := newTestWorld()
	propose := addOrder(w, t, OrderMakeAlliance, 1, AllianceData{OtherFactionID: 2})
	accept := addOrder(w, t, OrderMakeAlliance, 2, AllianceData{OtherFactionID: 1})

	events := NewEngine().runBeginning(w)

	if propose.Status != model.OrderSuccess || accept.Status != model.OrderSuccess {
		t.Fatalf("statuses %s/%s, want SUCCESS/SUCCESS", propose.Status, accept.Status)
	}
	if !w.Allied(1, 2) {
		t.Error("alliance should be ACTIVE after both sides agree")
	}
	findEvent(t, events, EventAllianceProposed)
	findEvent(t, events, EventAllianceActivated)
}

func TestMakeAllianceSameSideRepeatFails(t *testing.T) {
	w := newTestWorld()
	addOrder(w, t, OrderMakeAlliance, 1, AllianceData{OtherFactionID: 2})
	repeat := addOrder(w, t, OrderMakeAlliance, 1, AllianceData{OtherFactionID: 2})

	NewEngine().runBeginning(w)

	if repeat.Status != model.OrderFailed {
		t.Errorf("repeat proposal status %s, want FAILED", repeat.Status)
	}
	if w.Allied(1, 2) {
		t.Error("alliance must not activate from one side alone")
	}
}

func TestAllianceRowsCarrySnapshotIdentity(t *testing.T) {
	w := newTestWorld()
	leader5 := int64(5)
	w.Characters[5] = &model.Character{ID: 5, Identifier: "eve", GuildID: 1}
	w.Factions[3] = &model.Faction{ID: 3, FactionID: "reavers", Name: "Reavers", LeaderCharacterID: &leader5, GuildID: 1}
	w.Members = append(w.Members, model.FactionMember{FactionID: 3, CharacterID: 5, JoinedTurn: 1, GuildID: 1})
	w.Alliances = append(w.Alliances, &model.Alliance{
		ID: 9, FactionAID: 2, FactionBID: 3, Status: model.AllianceActive, InitiatedByFactionID: 2, GuildID: 1,
	})
	w.Index()

	addOrder(w, t, OrderMakeAlliance, 1, AllianceData{OtherFactionID: 2})
	addOrder(w, t, OrderMakeAlliance, 1, AllianceData{OtherFactionID: 3})
	dissolve := addOrder(w, t, OrderDissolveAlliance, 2, AllianceData{OtherFactionID: 3})

	NewEngine().runBeginning(w)

	if dissolve.Status != model.OrderSuccess {
		t.Fatalf("dissolve status %s, want SUCCESS", dissolve.Status)
	}

	// The snapshot is what gets written back: the dissolved row must be
	// gone and every new proposal must carry its own id past the maximum.
	seen := map[int64]bool{}
	for _, a := range w.Alliances {
		if a.ID == 9 {
			t.Error("dissolved alliance row should be removed from the snapshot")
		}
		if a.ID <= 9 {
			t.Errorf("new alliance id %d should be allocated past the existing maximum", a.ID)
		}
		if seen[a.ID] {
			t.Errorf("alliance id %d allocated twice", a.ID)
		}
		seen[a.ID] = true
	}
	if len(w.Alliances) != 2 {
		t.Fatalf("%d alliance rows, want 2 new proposals", len(w.Alliances))
	}
}

func TestDeclareWarDragsInAlliesAndMarksFirstWar(t *testing.T) {
	w := newTestWorld()
	// Faction 3 is allied to faction 2 and gets dragged in on side B.
	leader5 := int64(5)
	w.Characters[5] = &model.Character{ID: 5, Identifier: "eve", GuildID: 1}
	w.Factions[3] = &model.Faction{ID: 3, FactionID: "reavers", Name: "Reavers", LeaderCharacterID: &leader5, GuildID: 1}
	w.Members = append(w.Members, model.FactionMember{FactionID: 3, CharacterID: 5, JoinedTurn: 1, GuildID: 1})
	w.Alliances = append(w.Alliances, &model.Alliance{
		ID: 1, FactionAID: 2, FactionBID: 3, Status: model.AllianceActive, InitiatedByFactionID: 2, GuildID: 1,
	})
	o := addOrder(w, t, OrderDeclareWar, 1, DeclareWarData{TargetFactionID: 2, Objective: "take the coast"})

	events := NewEngine().runBeginning(w)

	if o.Status != model.OrderSuccess {
		t.Fatalf("order status %s, want SUCCESS", o.Status)
	}
	if !w.AtWar(1, 2) || !w.AtWar(1, 3) {
		t.Error("declarer should be at war with the target and its ally")
	}
	if !w.firstWarFactions[1] {
		t.Error("first war should mark the production bonus")
	}
	if !w.Factions[1].HasDeclaredWar {
		t.Error("has_declared_war should be set")
	}
	declared := findEvent(t, events, EventWarDeclared)
	if declared.Payload["first_war_bonus"] != true {
		t.Error("event should carry first_war_bonus")
	}
}

func TestAssignVPIsStandingAndIdempotent(t *testing.T) {
	w := newTestWorld()
	o := addOrder(w, t, OrderAssignVP, 3, AssignVPData{TargetFactionID: 2})

	e := NewEngine()
	e.runBeginning(w)
	if o.Status != model.OrderOngoing {
		t.Fatalf("order status %s, want ONGOING", o.Status)
	}
	if len(w.VPAssignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(w.VPAssignments))
	}

	// Re-running the standing order changes nothing and emits nothing.
	events := e.runBeginning(w)
	if len(findEvents(events, EventVPAssigned)) != 0 {
		t.Error("re-execution should be a no-op")
	}
	if len(w.VPAssignments) != 1 {
		t.Errorf("expected 1 assignment after re-run, got %d", len(w.VPAssignments))
	}
}

func TestUnknownOrderTypeFailsWithNoHandler(t *testing.T) {
	w := newTestWorld()
	o := addOrder(w, t, "SUMMON_DRAGON", 1, map[string]any{})

	events, err := NewEngine().ResolveTurn(w)
	if err != nil {
		t.Fatalf("ResolveTurn: %v", err)
	}

	if o.Status != model.OrderFailed {
		t.Fatalf("order status %s, want FAILED", o.Status)
	}
	failed := findEvent(t, events, EventOrderFailed)
	if failed.Payload["error"] != "No handler" {
		t.Errorf("error %v, want \"No handler\"", failed.Payload["error"])
	}
}
