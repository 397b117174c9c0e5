package wargame

import (
	"testing"

	"github.com/arvenwood/campaign/engine/internal/model"
)

func TestMovementSpeedsDifferPerTick(t *testing.T) {
	w := newTestWorld()
	fast := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 1) // movement 4
	slow := addUnit(w, 2, 2, model.FactionOwner(1), i64(1), 1) // movement 2
	addOrder(w, t, OrderUnit, 1, MovementData{UnitID: 1, Action: ActionTransit, Path: []int64{1, 2, 3, 4, 5}})
	addOrder(w, t, OrderUnit, 1, MovementData{UnitID: 2, Action: ActionTransit, Path: []int64{1, 2, 3, 4, 5}})

	events, err := NewEngine().ResolveTurn(w)
	if err != nil {
		t.Fatalf("ResolveTurn: %v", err)
	}

	// The fast stack walks all four steps; the slow one only moves on
	// ticks at or below its allowance.
	if *fast.CurrentTerritoryID != 5 {
		t.Errorf("fast unit at %d, want 5", *fast.CurrentTerritoryID)
	}
	if *slow.CurrentTerritoryID != 3 {
		t.Errorf("slow unit at %d, want 3", *slow.CurrentTerritoryID)
	}

	if n := len(findEvents(events, EventTransitComplete)); n != 1 {
		t.Errorf("expected 1 TRANSIT_COMPLETE, got %d", n)
	}
	progress := findEvent(t, events, EventTransitProgress)
	if progress.EntityID != slow.ID {
		t.Errorf("progress event for unit %d, want %d", progress.EntityID, slow.ID)
	}
}

func TestMovementOngoingOrderRetainsRemainingPath(t *testing.T) {
	w := newTestWorld()
	addUnit(w, 2, 2, model.FactionOwner(1), i64(1), 1)
	o := addOrder(w, t, OrderUnit, 1, MovementData{UnitID: 2, Action: ActionTransit, Path: []int64{1, 2, 3, 4, 5}})

	if _, err := NewEngine().ResolveTurn(w); err != nil {
		t.Fatalf("ResolveTurn: %v", err)
	}

	if o.Status != model.OrderOngoing {
		t.Fatalf("order status %s, want ONGOING", o.Status)
	}
	var data MovementData
	if err := decodeOrderData(o, &data); err != nil {
		t.Fatalf("decode updated order data: %v", err)
	}
	want := []int64{3, 4, 5}
	if len(data.Path) != len(want) {
		t.Fatalf("remaining path %v, want %v", data.Path, want)
	}
	for i := range want {
		if data.Path[i] != want[i] {
			t.Fatalf("remaining path %v, want %v", data.Path, want)
		}
	}
}

func TestMovementBlockedByHostile(t *testing.T) {
	w := newTestWorld()
	declareWarBetween(w, 1, 2)
	mover := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 1)
	addUnit(w, 2, 2, model.FactionOwner(2), i64(2), 3)
	o := addOrder(w, t, OrderUnit, 1, MovementData{UnitID: 1, Action: ActionTransit, Path: []int64{1, 2, 3, 4, 5}})

	events, err := NewEngine().ResolveTurn(w)
	if err != nil {
		t.Fatalf("ResolveTurn: %v", err)
	}

	blocked := findEvents(events, EventMovementBlocked)
	if len(blocked) == 0 {
		t.Fatal("expected a MOVEMENT_BLOCKED event")
	}
	if *mover.CurrentTerritoryID != 3 {
		t.Errorf("mover stopped at %d, want 3", *mover.CurrentTerritoryID)
	}
	if o.Status != model.OrderOngoing {
		t.Errorf("order status %s, want ONGOING", o.Status)
	}
	if !w.contested[3] {
		t.Error("territory 3 should be contested")
	}
}

func TestMovementTerrainCostConsumesTicks(t *testing.T) {
	w := newTestWorld()
	w.Territories[2].TerrainType = "mountain" // cost 2
	w.Territories[3].TerrainType = "mountain"
	u := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 1) // movement 4
	addOrder(w, t, OrderUnit, 1, MovementData{UnitID: 1, Action: ActionTransit, Path: []int64{1, 2, 3}})

	if _, err := NewEngine().ResolveTurn(w); err != nil {
		t.Fatalf("ResolveTurn: %v", err)
	}

	// Two mountain steps at cost 2 each consume the whole allowance.
	if *u.CurrentTerritoryID != 3 {
		t.Errorf("unit at %d, want 3", *u.CurrentTerritoryID)
	}
}

func TestMovementStackMovesAtSlowestMember(t *testing.T) {
	w := newTestWorld()
	lead := addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 1)    // movement 4
	trailer := addUnit(w, 2, 2, model.FactionOwner(1), i64(1), 1) // movement 2
	addOrder(w, t, OrderUnit, 1, MovementData{
		UnitID: 1, Action: ActionTransit, Path: []int64{1, 2, 3, 4, 5}, StackUnitIDs: []int64{2},
	})

	if _, err := NewEngine().ResolveTurn(w); err != nil {
		t.Fatalf("ResolveTurn: %v", err)
	}

	if *lead.CurrentTerritoryID != 3 {
		t.Errorf("stack leader at %d, want 3", *lead.CurrentTerritoryID)
	}
	if *trailer.CurrentTerritoryID != 3 {
		t.Errorf("stacked unit at %d, want 3", *trailer.CurrentTerritoryID)
	}
}

func TestMovementPatrolEngagesNeighborHostile(t *testing.T) {
	w := newTestWorld()
	declareWarBetween(w, 1, 2)
	addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 2)
	hostile := addUnit(w, 2, 2, model.FactionOwner(2), i64(2), 3)
	o := addOrder(w, t, OrderUnit, 1, MovementData{UnitID: 1, Action: ActionPatrol, Path: []int64{2}})

	events, err := NewEngine().ResolveTurn(w)
	if err != nil {
		t.Fatalf("ResolveTurn: %v", err)
	}

	engaged := findEvents(events, EventUnitEngaged)
	if len(engaged) == 0 {
		t.Fatal("expected UNIT_ENGAGED from patrol sweep")
	}
	if !w.engaged[hostile.ID] {
		t.Error("hostile unit should be pinned")
	}
	// Patrol is a standing order.
	if o.Status != model.OrderOngoing {
		t.Errorf("patrol order status %s, want ONGOING", o.Status)
	}
}

func TestMovementObservationDedup(t *testing.T) {
	w := newTestWorld()
	addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 2)
	observed := addUnit(w, 2, 2, model.FactionOwner(2), i64(2), 3)
	// A standing order so the tick loop runs at the unit's full allowance.
	addOrder(w, t, OrderUnit, 1, MovementData{UnitID: 1, Action: ActionTransit, Path: []int64{2}})

	events, err := NewEngine().ResolveTurn(w)
	if err != nil {
		t.Fatalf("ResolveTurn: %v", err)
	}

	// Recipient 1 (leader of faction 1) sees unit 2 exactly once, stamped
	// with the highest tick among the raw sightings.
	var seen int
	for _, e := range findEvents(events, EventUnitObserved) {
		if e.EntityID != observed.ID {
			continue
		}
		ids := e.AffectedCharacters()
		if len(ids) == 1 && ids[0] == 1 {
			seen++
			if tick, ok := e.Payload["tick"].(int); !ok || tick != 4 {
				t.Errorf("observation tick = %v, want 4", e.Payload["tick"])
			}
		}
	}
	if seen != 1 {
		t.Errorf("recipient 1 observed unit 2 in %d events, want exactly 1", seen)
	}
}

func TestMovementInvalidPathFailsOrder(t *testing.T) {
	w := newTestWorld()
	addUnit(w, 1, 1, model.FactionOwner(1), i64(1), 1)
	// Territories 1 and 4 are not adjacent.
	o := addOrder(w, t, OrderUnit, 1, MovementData{UnitID: 1, Action: ActionTransit, Path: []int64{1, 4}})

	events, err := NewEngine().ResolveTurn(w)
	if err != nil {
		t.Fatalf("ResolveTurn: %v", err)
	}
	if o.Status != model.OrderFailed {
		t.Errorf("order status %s, want FAILED", o.Status)
	}
	if len(findEvents(events, EventOrderFailed)) == 0 {
		t.Error("expected an ORDER_FAILED event")
	}
}

func TestNavalTransitWalksWaterAndRecordsPositions(t *testing.T) {
	w := newTestWorld()
	// Second water tile so the cog has somewhere to sail.
	w.Territories[7] = &model.Territory{ID: 7, TerritoryID: "t7", Name: "t7", TerrainType: "water", GuildID: 1}
	w.Adjacency = append(w.Adjacency, model.TerritoryAdjacency{TerritoryAID: 6, TerritoryBID: 7, GuildID: 1})
	w.Index()

	cog := addUnit(w, 1, 3, model.FactionOwner(2), i64(2), 6)
	o := addOrder(w, t, OrderUnit, 2, MovementData{UnitID: 1, Action: ActionNavalTransit, Path: []int64{6, 7}})

	events, err := NewEngine().ResolveTurn(w)
	if err != nil {
		t.Fatalf("ResolveTurn: %v", err)
	}

	if *cog.CurrentTerritoryID != 7 {
		t.Errorf("cog at %d, want 7", *cog.CurrentTerritoryID)
	}
	positions := w.NavalPositions[cog.ID]
	if len(positions) != 2 || positions[0] != 6 || positions[1] != 7 {
		t.Errorf("naval positions %v, want [6 7]", positions)
	}
	if o.Status != model.OrderSuccess {
		t.Errorf("order status %s, want SUCCESS", o.Status)
	}
	if len(findEvents(events, EventTransitComplete)) != 1 {
		t.Error("expected one TRANSIT_COMPLETE for the cog")
	}
}
