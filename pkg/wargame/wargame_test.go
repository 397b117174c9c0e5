package wargame

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// Shared fixture: a five-territory land corridor (1-2-3-4-5) with a water
// tile (6) touching 2 and 3, two factions, and three characters. Tests
// adjust controllers, wars and units as needed.
func newTestWorld() *World {
	leader1, leader2 := int64(1), int64(2)
	rep1, rep2 := int64(1), int64(2)
	rep3 := int64(1)

	w := &World{
		Guild: &model.Guild{ID: 1, Name: "test-guild", CurrentTurn: 4, MaxMovementStat: 10},
		Characters: map[int64]*model.Character{
			1: {ID: 1, Identifier: "alice", RepresentedFactionID: &rep1, GuildID: 1},
			2: {ID: 2, Identifier: "bob", RepresentedFactionID: &rep2, GuildID: 1},
			3: {ID: 3, Identifier: "cara", RepresentedFactionID: &rep3, GuildID: 1},
		},
		Factions: map[int64]*model.Faction{
			1: {ID: 1, FactionID: "iron-pact", Name: "Iron Pact", LeaderCharacterID: &leader1, GuildID: 1},
			2: {ID: 2, FactionID: "sea-lords", Name: "Sea Lords", LeaderCharacterID: &leader2, GuildID: 1},
		},
		Members: []model.FactionMember{
			{FactionID: 1, CharacterID: 1, JoinedTurn: 1, GuildID: 1},
			{FactionID: 1, CharacterID: 3, JoinedTurn: 2, GuildID: 1},
			{FactionID: 2, CharacterID: 2, JoinedTurn: 1, GuildID: 1},
		},
		Wars:        map[int64]*model.War{},
		Territories: map[int64]*model.Territory{},
		Adjacency: []model.TerritoryAdjacency{
			{TerritoryAID: 1, TerritoryBID: 2, GuildID: 1},
			{TerritoryAID: 2, TerritoryBID: 3, GuildID: 1},
			{TerritoryAID: 3, TerritoryBID: 4, GuildID: 1},
			{TerritoryAID: 4, TerritoryBID: 5, GuildID: 1},
			{TerritoryAID: 2, TerritoryBID: 6, GuildID: 1},
			{TerritoryAID: 3, TerritoryBID: 6, GuildID: 1},
		},
		TerrainCosts: map[string]int{"mountain": 2},
		UnitTypes: map[int64]*model.UnitType{
			1: {ID: 1, TypeID: "infantry", Name: "Infantry", Movement: 4, OrganizationMax: 10,
				Attack: 3, Defense: 2, SiegeAttack: 1,
				Cost:   model.Resources{Ore: 2, Lumber: 1},
				Upkeep: model.Resources{Rations: 2, Cloth: 1}, GuildID: 1},
			2: {ID: 2, TypeID: "militia", Name: "Militia", Movement: 2, OrganizationMax: 6,
				Attack: 1, Defense: 1,
				Upkeep: model.Resources{Rations: 1}, GuildID: 1},
			3: {ID: 3, TypeID: "cog", Name: "Cog", Movement: 3, OrganizationMax: 8,
				Attack: 1, Defense: 2, IsNaval: true, Capacity: 2,
				Upkeep: model.Resources{Lumber: 1}, GuildID: 1},
		},
		Units:              map[int64]*model.Unit{},
		NavalPositions:     map[int64][]int64{},
		Buildings:          map[int64]*model.Building{},
		BuildingTypes:      map[int64]*model.BuildingType{},
		CharacterResources: map[int64]*model.Resources{},
		FactionResources:   map[int64]*model.Resources{},
		Now:                time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	for i := int64(1); i <= 5; i++ {
		w.Territories[i] = &model.Territory{
			ID: i, TerritoryID: territoryName(i), Name: territoryName(i),
			TerrainType: "plains", GuildID: 1,
		}
	}
	w.Territories[6] = &model.Territory{
		ID: 6, TerritoryID: "t6", Name: "t6", TerrainType: "water", GuildID: 1,
	}
	w.Index()
	return w
}

func territoryName(id int64) string {
	return "t" + string(rune('0'+id))
}

// declareWarBetween puts factions a and b on opposite sides of a war.
func declareWarBetween(w *World, a, b int64) {
	id := w.allocWarID()
	w.Wars[id] = &model.War{ID: id, WarID: "test-war", DeclaredTurn: 1, GuildID: 1}
	w.WarParticipants = append(w.WarParticipants,
		model.WarParticipant{WarID: id, FactionID: a, Side: model.WarSideA, JoinedTurn: 1, GuildID: 1},
		model.WarParticipant{WarID: id, FactionID: b, Side: model.WarSideB, JoinedTurn: 1, GuildID: 1},
	)
}

func addUnit(w *World, id int64, typeID int64, owner model.Owner, factionID *int64, territory int64) *model.Unit {
	ut := w.UnitTypes[typeID]
	tid := territory
	u := &model.Unit{
		ID: id, UnitID: "u" + string(rune('0'+id)), UnitTypeID: typeID,
		Owner: owner, FactionID: factionID, CurrentTerritoryID: &tid,
		Organization: ut.OrganizationMax, MaxOrganization: ut.OrganizationMax,
		Status: model.UnitActive, IsNaval: ut.IsNaval, GuildID: 1,
	}
	w.Units[id] = u
	if u.IsNaval {
		w.NavalPositions[id] = []int64{tid}
	}
	return u
}

var nextOrderID int64

func addOrder(w *World, t *testing.T, orderType string, characterID int64, data any) *model.Order {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal order data: %v", err)
	}
	nextOrderID++
	cid := characterID
	o := &model.Order{
		ID: nextOrderID, OrderType: orderType, Status: model.OrderPending,
		SubmittedAt:   w.Now.Add(-time.Hour).Add(time.Duration(nextOrderID) * time.Second),
		CharacterID:   &cid,
		OrderData:     raw,
		TurnSubmitted: w.Guild.CurrentTurn,
		GuildID:       1,
	}
	w.Orders = append(w.Orders, o)
	return o
}

func findEvents(events []Event, eventType string) []Event {
	var out []Event
	for _, e := range events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func findEvent(t *testing.T, events []Event, eventType string) Event {
	t.Helper()
	matches := findEvents(events, eventType)
	if len(matches) != 1 {
		t.Fatalf("expected exactly one %s event, got %d", eventType, len(matches))
	}
	return matches[0]
}

func i64(v int64) *int64 { return &v }
