package service

import (
	"context"
	"errors"
	"testing"

	"github.com/arvenwood/campaign/engine/internal/model"
	"github.com/arvenwood/campaign/engine/internal/repository"
	"github.com/arvenwood/campaign/engine/pkg/wargame"
)

func testWorld(guildID int64) *wargame.World {
	w := &wargame.World{
		Guild: &model.Guild{ID: guildID, Name: "test", CurrentTurn: 3, MaxMovementStat: 10},
		Characters: map[int64]*model.Character{
			1: {ID: 1, Identifier: "alice", Production: model.Resources{Ore: 2}, GuildID: guildID},
		},
		Factions:           map[int64]*model.Faction{},
		Wars:               map[int64]*model.War{},
		Territories:        map[int64]*model.Territory{},
		UnitTypes:          map[int64]*model.UnitType{},
		Units:              map[int64]*model.Unit{},
		NavalPositions:     map[int64][]int64{},
		Buildings:          map[int64]*model.Building{},
		BuildingTypes:      map[int64]*model.BuildingType{},
		CharacterResources: map[int64]*model.Resources{},
		FactionResources:   map[int64]*model.Resources{},
	}
	w.Index()
	return w
}

func TestResolveTurnUnknownGuild(t *testing.T) {
	store := newMockWorldStore()
	svc := NewTurnService(store, nil, nil)

	_, err := svc.ResolveTurn(context.Background(), 99)
	if !errors.Is(err, ErrGuildNotFound) {
		t.Fatalf("err = %v, want ErrGuildNotFound", err)
	}
	if store.saved {
		t.Error("nothing should be saved for an unknown guild")
	}
}

func TestResolveTurnCommitsAndBroadcasts(t *testing.T) {
	store := newMockWorldStore()
	store.worlds[1] = testWorld(1)
	timers := newMockTimerCache()
	bc := &mockBroadcaster{}
	svc := NewTurnService(store, timers, bc)

	events, err := svc.ResolveTurn(context.Background(), 1)
	if err != nil {
		t.Fatalf("ResolveTurn: %v", err)
	}
	if !store.saved {
		t.Fatal("resolution was not persisted")
	}
	if len(events) == 0 || len(events) != len(store.savedEvents) {
		t.Fatalf("returned %d events, persisted %d", len(events), len(store.savedEvents))
	}

	resolved := bc.byType("turn_resolved")
	if len(resolved) != 1 || resolved[0].guildID != 1 {
		t.Fatalf("turn_resolved broadcasts %v, want one for guild 1", resolved)
	}
	data, _ := resolved[0].data.(map[string]any)
	if data["turn"] != 4 {
		t.Errorf("broadcast turn %v, want 4", data["turn"])
	}
	if len(timers.cleared) != 1 || timers.cleared[0] != 1 {
		t.Errorf("cleared timers %v, want [1]", timers.cleared)
	}
}

func TestResolveTurnConflictIsQuiet(t *testing.T) {
	store := newMockWorldStore()
	store.worlds[1] = testWorld(1)
	store.saveErr = repository.ErrTurnConflict
	bc := &mockBroadcaster{}
	svc := NewTurnService(store, nil, bc)

	_, err := svc.ResolveTurn(context.Background(), 1)
	if !errors.Is(err, repository.ErrTurnConflict) {
		t.Fatalf("err = %v, want ErrTurnConflict", err)
	}
	// A lost CAS race means another worker committed the turn; neither
	// outcome notification belongs to this worker.
	if len(bc.sent) != 0 {
		t.Errorf("broadcasts %v, want none", bc.sent)
	}
}

func TestResolveTurnSaveFailureBroadcastsFailure(t *testing.T) {
	store := newMockWorldStore()
	store.worlds[1] = testWorld(1)
	store.saveErr = errors.New("disk on fire")
	bc := &mockBroadcaster{}
	svc := NewTurnService(store, nil, bc)

	_, err := svc.ResolveTurn(context.Background(), 1)
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(bc.byType("turn_failed")) != 1 {
		t.Errorf("broadcasts %v, want one turn_failed", bc.sent)
	}
	if len(bc.byType("turn_resolved")) != 0 {
		t.Error("a failed save must not broadcast turn_resolved")
	}
}
