package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/arvenwood/campaign/engine/internal/model"
	"github.com/arvenwood/campaign/engine/pkg/wargame"
)

func newOrderFixture() (*OrderService, *mockOrderRepo, *mockGuildRepo) {
	orders := newMockOrderRepo()
	guilds := newMockGuildRepo()
	guilds.guilds[1] = &model.Guild{ID: 1, Name: "test", CurrentTurn: 7}
	return NewOrderService(orders, guilds), orders, guilds
}

func TestSubmitRejectsUnknownOrderType(t *testing.T) {
	svc, _, _ := newOrderFixture()

	_, err := svc.Submit(context.Background(), SubmitRequest{
		GuildID: 1, OrderType: "SUMMON_DRAGON",
	})
	if !errors.Is(err, ErrUnknownOrderType) {
		t.Fatalf("err = %v, want ErrUnknownOrderType", err)
	}
}

func TestSubmitRejectsUnknownGuild(t *testing.T) {
	svc, _, _ := newOrderFixture()

	_, err := svc.Submit(context.Background(), SubmitRequest{
		GuildID: 42, OrderType: wargame.OrderJoinFaction,
	})
	if !errors.Is(err, ErrGuildNotFound) {
		t.Fatalf("err = %v, want ErrGuildNotFound", err)
	}
}

func TestSubmitStampsTurnAndStatus(t *testing.T) {
	svc, orders, _ := newOrderFixture()
	cid := int64(3)
	data, _ := json.Marshal(wargame.JoinFactionData{FactionID: 1})

	o, err := svc.Submit(context.Background(), SubmitRequest{
		GuildID: 1, OrderType: wargame.OrderJoinFaction, CharacterID: &cid, OrderData: data,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if o.Status != model.OrderPending {
		t.Errorf("status %s, want PENDING", o.Status)
	}
	if o.TurnSubmitted != 7 {
		t.Errorf("turn_submitted %d, want 7", o.TurnSubmitted)
	}
	if o.ID == 0 || orders.orders[o.ID] == nil {
		t.Error("order was not stored")
	}
}

func TestSubmitStandingOrdersEnterOngoing(t *testing.T) {
	svc, _, _ := newOrderFixture()
	cid := int64(3)

	vpData, _ := json.Marshal(wargame.AssignVPData{TargetFactionID: 1})
	vp, err := svc.Submit(context.Background(), SubmitRequest{
		GuildID: 1, OrderType: wargame.OrderAssignVP, CharacterID: &cid, OrderData: vpData,
	})
	if err != nil {
		t.Fatalf("Submit vp: %v", err)
	}
	if vp.Status != model.OrderOngoing {
		t.Errorf("vp assignment status %s, want ONGOING", vp.Status)
	}

	term := 3
	recurring, _ := json.Marshal(wargame.TransferData{
		From:           wargame.TransferParty{CharacterID: &cid},
		To:             wargame.TransferParty{FactionID: i64ptr(1)},
		Resources:      map[string]int{"ore": 2},
		TurnsRemaining: &term,
	})
	rec, err := svc.Submit(context.Background(), SubmitRequest{
		GuildID: 1, OrderType: wargame.OrderResourceTransfer, CharacterID: &cid, OrderData: recurring,
	})
	if err != nil {
		t.Fatalf("Submit recurring: %v", err)
	}
	if rec.Status != model.OrderOngoing {
		t.Errorf("recurring transfer status %s, want ONGOING", rec.Status)
	}

	oneTime, _ := json.Marshal(wargame.TransferData{
		From:      wargame.TransferParty{CharacterID: &cid},
		To:        wargame.TransferParty{FactionID: i64ptr(1)},
		Resources: map[string]int{"ore": 2},
	})
	once, err := svc.Submit(context.Background(), SubmitRequest{
		GuildID: 1, OrderType: wargame.OrderResourceTransfer, CharacterID: &cid, OrderData: oneTime,
	})
	if err != nil {
		t.Fatalf("Submit one-time: %v", err)
	}
	if once.Status != model.OrderPending {
		t.Errorf("one-time transfer status %s, want PENDING", once.Status)
	}
}

func TestSubmitGeneratesWarID(t *testing.T) {
	svc, _, _ := newOrderFixture()
	cid := int64(3)
	data, _ := json.Marshal(wargame.DeclareWarData{TargetFactionID: 2, Objective: "the coast"})

	o, err := svc.Submit(context.Background(), SubmitRequest{
		GuildID: 1, OrderType: wargame.OrderDeclareWar, CharacterID: &cid, OrderData: data,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	var stored wargame.DeclareWarData
	if err := json.Unmarshal(o.OrderData, &stored); err != nil {
		t.Fatalf("decode stored data: %v", err)
	}
	if stored.WarID == "" {
		t.Error("war id should be generated when omitted")
	}
	if stored.Objective != "the coast" {
		t.Errorf("objective %q should survive normalization", stored.Objective)
	}

	// A caller-provided war id is kept as-is.
	data, _ = json.Marshal(wargame.DeclareWarData{TargetFactionID: 2, WarID: "war-alpha"})
	o, err = svc.Submit(context.Background(), SubmitRequest{
		GuildID: 1, OrderType: wargame.OrderDeclareWar, CharacterID: &cid, OrderData: data,
	})
	if err != nil {
		t.Fatalf("Submit with war id: %v", err)
	}
	if err := json.Unmarshal(o.OrderData, &stored); err != nil {
		t.Fatalf("decode stored data: %v", err)
	}
	if stored.WarID != "war-alpha" {
		t.Errorf("war id %q, want war-alpha", stored.WarID)
	}
}

func TestCancelPendingOrder(t *testing.T) {
	svc, orders, _ := newOrderFixture()
	orders.orders[5] = &model.Order{
		ID: 5, OrderType: wargame.OrderResourceTransfer, Status: model.OrderPending,
		SubmittedAt: time.Now(), TurnSubmitted: 7, GuildID: 1,
	}

	if err := svc.Cancel(context.Background(), 5); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(orders.updates) != 1 {
		t.Fatalf("updates %v, want one", orders.updates)
	}
	up := orders.updates[0]
	if up.orderID != 5 || up.status != model.OrderCancelled {
		t.Errorf("update %+v, want order 5 CANCELLED", up)
	}
}

func TestCancelTerminalOrderFails(t *testing.T) {
	svc, orders, _ := newOrderFixture()
	orders.orders[5] = &model.Order{
		ID: 5, OrderType: wargame.OrderResourceTransfer, Status: model.OrderSuccess,
		TurnSubmitted: 6, GuildID: 1,
	}

	if err := svc.Cancel(context.Background(), 5); !errors.Is(err, ErrOrderNotCancellable) {
		t.Fatalf("err = %v, want ErrOrderNotCancellable", err)
	}
	if err := svc.Cancel(context.Background(), 99); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func i64ptr(v int64) *int64 { return &v }
