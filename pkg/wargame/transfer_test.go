package wargame

import (
	"testing"

	"github.com/arvenwood/campaign/engine/internal/model"
)

func TestTransferFullAmount(t *testing.T) {
	w := newTestWorld()
	w.CharacterResources[1] = &model.Resources{Ore: 10}
	o := addOrder(w, t, OrderResourceTransfer, 1, TransferData{
		From:      TransferParty{CharacterID: i64(1)},
		To:        TransferParty{CharacterID: i64(2)},
		Resources: map[string]int{"ore": 4},
	})

	events := NewEngine().runResourceTransfer(w)

	if o.Status != model.OrderSuccess {
		t.Fatalf("order status %s, want SUCCESS", o.Status)
	}
	ok := findEvent(t, events, EventResourceTransferOK)
	if ok.Payload["is_ongoing"] != false {
		t.Error("one-time transfer should not be ongoing")
	}
	if w.CharacterResources[1].Ore != 6 || w.CharacterResources[2].Ore != 4 {
		t.Errorf("balances %d/%d, want 6/4", w.CharacterResources[1].Ore, w.CharacterResources[2].Ore)
	}
}

func TestTransferPartialDeliversWhatExists(t *testing.T) {
	w := newTestWorld()
	w.CharacterResources[1] = &model.Resources{Ore: 5}
	o := addOrder(w, t, OrderResourceTransfer, 1, TransferData{
		From:      TransferParty{CharacterID: i64(1)},
		To:        TransferParty{CharacterID: i64(2)},
		Resources: map[string]int{"ore": 10, "lumber": 3},
	})

	events := NewEngine().runResourceTransfer(w)

	partial := findEvent(t, events, EventResourceTransferPartial)
	requested, _ := partial.Payload["requested_resources"].(map[string]int)
	transferred, _ := partial.Payload["transferred_resources"].(map[string]int)
	if requested["ore"] != 10 || requested["lumber"] != 3 {
		t.Errorf("requested %v, want ore 10 lumber 3", requested)
	}
	if transferred["ore"] != 5 || transferred["lumber"] != 0 {
		t.Errorf("transferred %v, want ore 5 only", transferred)
	}
	if w.CharacterResources[1].Ore != 0 {
		t.Errorf("sender ore %d, want 0", w.CharacterResources[1].Ore)
	}
	if w.CharacterResources[2].Ore != 5 {
		t.Errorf("recipient ore %d, want 5", w.CharacterResources[2].Ore)
	}
	// No remaining term, so even a partial completes the order.
	if o.Status != model.OrderSuccess {
		t.Errorf("order status %s, want SUCCESS", o.Status)
	}
}

func TestTransferRecurringDecrementsTerm(t *testing.T) {
	w := newTestWorld()
	w.FactionResources[1] = &model.Resources{Rations: 20}
	turns := 3
	o := addOrder(w, t, OrderResourceTransfer, 1, TransferData{
		From:           TransferParty{FactionID: i64(1)},
		To:             TransferParty{CharacterID: i64(3)},
		Resources:      map[string]int{"rations": 5},
		TurnsRemaining: &turns,
	})
	o.Status = model.OrderOngoing

	events := NewEngine().runResourceTransfer(w)

	if o.Status != model.OrderOngoing {
		t.Fatalf("order status %s, want ONGOING", o.Status)
	}
	var data TransferData
	if err := decodeOrderData(o, &data); err != nil {
		t.Fatalf("decode updated data: %v", err)
	}
	if data.TurnsRemaining == nil || *data.TurnsRemaining != 2 {
		t.Errorf("turns remaining %v, want 2", data.TurnsRemaining)
	}
	ok := findEvent(t, events, EventResourceTransferOK)
	if ok.Payload["turns_remaining"] != 2 {
		t.Errorf("event turns_remaining %v, want 2", ok.Payload["turns_remaining"])
	}
	if ok.Payload["is_ongoing"] != true {
		t.Error("recurring transfer should be flagged ongoing")
	}
}

func TestTransferRecurringCompletesOnFinalTick(t *testing.T) {
	w := newTestWorld()
	w.FactionResources[1] = &model.Resources{Rations: 20}
	turns := 1
	o := addOrder(w, t, OrderResourceTransfer, 1, TransferData{
		From:           TransferParty{FactionID: i64(1)},
		To:             TransferParty{CharacterID: i64(3)},
		Resources:      map[string]int{"rations": 5},
		TurnsRemaining: &turns,
	})
	o.Status = model.OrderOngoing

	events := NewEngine().runResourceTransfer(w)

	if o.Status != model.OrderSuccess {
		t.Fatalf("order status %s, want SUCCESS", o.Status)
	}
	ok := findEvent(t, events, EventResourceTransferOK)
	if ok.Payload["term_completed"] != true {
		t.Error("final tick should set term_completed")
	}
}

func TestTransferFailsWhenPartyMissing(t *testing.T) {
	w := newTestWorld()
	w.CharacterResources[1] = &model.Resources{Ore: 5}
	o := addOrder(w, t, OrderResourceTransfer, 1, TransferData{
		From:      TransferParty{CharacterID: i64(1)},
		To:        TransferParty{CharacterID: i64(99)},
		Resources: map[string]int{"ore": 5},
	})

	events := NewEngine().runResourceTransfer(w)

	if o.Status != model.OrderFailed {
		t.Fatalf("order status %s, want FAILED", o.Status)
	}
	failed := findEvent(t, events, EventResourceTransferFailed)
	if failed.Payload["reason"] == "" {
		t.Error("failure event should carry a reason")
	}
	if w.CharacterResources[1].Ore != 5 {
		t.Error("failed transfer must not mutate balances")
	}
}

func TestCancelTransferRunsBeforeTransfers(t *testing.T) {
	w := newTestWorld()
	w.CharacterResources[1] = &model.Resources{Ore: 5}
	transfer := addOrder(w, t, OrderResourceTransfer, 1, TransferData{
		From:      TransferParty{CharacterID: i64(1)},
		To:        TransferParty{CharacterID: i64(2)},
		Resources: map[string]int{"ore": 5},
	})
	// Submitted after the transfer, but CANCEL_TRANSFER runs first by priority.
	cancel := addOrder(w, t, OrderCancelTransfer, 1, CancelTransferData{TransferOrderID: transfer.ID})

	events := NewEngine().runResourceTransfer(w)

	if transfer.Status != model.OrderCancelled {
		t.Fatalf("transfer status %s, want CANCELLED", transfer.Status)
	}
	if cancel.Status != model.OrderSuccess {
		t.Fatalf("cancel status %s, want SUCCESS", cancel.Status)
	}
	findEvent(t, events, EventTransferCancelled)
	if w.CharacterResources[1].Ore != 5 {
		t.Error("cancelled transfer must not move resources")
	}
	if len(findEvents(events, EventResourceTransferOK)) != 0 {
		t.Error("cancelled transfer must not execute")
	}
}
