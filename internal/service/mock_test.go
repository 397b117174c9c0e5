package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/arvenwood/campaign/engine/internal/model"
	"github.com/arvenwood/campaign/engine/pkg/wargame"
)

type mockWorldStore struct {
	worlds map[int64]*wargame.World

	loadErr error
	saveErr error

	saved       bool
	savedEvents []wargame.Event
}

func newMockWorldStore() *mockWorldStore {
	return &mockWorldStore{worlds: make(map[int64]*wargame.World)}
}

func (m *mockWorldStore) LoadWorld(_ context.Context, guildID int64) (*wargame.World, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.worlds[guildID], nil
}

func (m *mockWorldStore) SaveResolution(_ context.Context, _ *wargame.World, events []wargame.Event) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = true
	m.savedEvents = events
	return nil
}

type mockTimerCache struct {
	deadlines map[int64]time.Time
	cleared   []int64
}

func newMockTimerCache() *mockTimerCache {
	return &mockTimerCache{deadlines: make(map[int64]time.Time)}
}

func (m *mockTimerCache) SetTurnDeadline(_ context.Context, guildID int64, deadline time.Time) error {
	m.deadlines[guildID] = deadline
	return nil
}

func (m *mockTimerCache) ClearTurnDeadline(_ context.Context, guildID int64) error {
	delete(m.deadlines, guildID)
	m.cleared = append(m.cleared, guildID)
	return nil
}

func (m *mockTimerCache) TurnDeadline(_ context.Context, guildID int64) (time.Time, bool, error) {
	d, ok := m.deadlines[guildID]
	return d, ok, nil
}

type broadcast struct {
	guildID   int64
	eventType string
	data      any
}

type mockBroadcaster struct {
	mu   sync.Mutex
	sent []broadcast
}

func (m *mockBroadcaster) Publish(_ context.Context, guildID int64, eventType string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, broadcast{guildID: guildID, eventType: eventType, data: data})
}

func (m *mockBroadcaster) byType(eventType string) []broadcast {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []broadcast
	for _, b := range m.sent {
		if b.eventType == eventType {
			out = append(out, b)
		}
	}
	return out
}

type mockGuildRepo struct {
	guilds map[int64]*model.Guild
}

func newMockGuildRepo() *mockGuildRepo {
	return &mockGuildRepo{guilds: make(map[int64]*model.Guild)}
}

func (m *mockGuildRepo) FindByID(_ context.Context, id int64) (*model.Guild, error) {
	return m.guilds[id], nil
}

func (m *mockGuildRepo) List(_ context.Context) ([]model.Guild, error) {
	var out []model.Guild
	for _, g := range m.guilds {
		out = append(out, *g)
	}
	return out, nil
}

func (m *mockGuildRepo) AdvanceTurn(_ context.Context, guildID int64, _ int) error {
	m.guilds[guildID].CurrentTurn++
	return nil
}

type statusUpdate struct {
	orderID int64
	status  string
	result  json.RawMessage
	turn    int
}

type mockOrderRepo struct {
	orders  map[int64]*model.Order
	nextID  int64
	updates []statusUpdate
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[int64]*model.Order), nextID: 1}
}

func (m *mockOrderRepo) Insert(_ context.Context, o *model.Order) (*model.Order, error) {
	o.ID = m.nextID
	m.nextID++
	cp := *o
	m.orders[o.ID] = &cp
	return o, nil
}

func (m *mockOrderRepo) FindByID(_ context.Context, id int64) (*model.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListEligible(_ context.Context, guildID int64) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.orders {
		if o.GuildID == guildID && !o.IsTerminal() {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id int64, status string, result json.RawMessage, turn int) error {
	m.updates = append(m.updates, statusUpdate{orderID: id, status: status, result: result, turn: turn})
	if o, ok := m.orders[id]; ok {
		o.Status = status
		o.ResultData = result
		o.UpdatedTurn = turn
	}
	return nil
}

type mockTaskRepo struct {
	queue     []*model.ScheduledTask
	scheduled []*model.ScheduledTask
}

func (m *mockTaskRepo) Schedule(_ context.Context, t *model.ScheduledTask) error {
	t.ID = int64(len(m.scheduled) + 1)
	m.scheduled = append(m.scheduled, t)
	m.queue = append(m.queue, t)
	return nil
}

func (m *mockTaskRepo) ListPending(_ context.Context) ([]model.ScheduledTask, error) {
	var out []model.ScheduledTask
	for _, t := range m.queue {
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockTaskRepo) ClaimNext(_ context.Context) (*model.ScheduledTask, error) {
	if len(m.queue) == 0 {
		return nil, nil
	}
	t := m.queue[0]
	m.queue = m.queue[1:]
	return t, nil
}

type mockResolver struct {
	resolved []int64
	events   []wargame.Event
	err      error
}

func (m *mockResolver) ResolveTurn(_ context.Context, guildID int64) ([]wargame.Event, error) {
	m.resolved = append(m.resolved, guildID)
	return m.events, m.err
}
