package wargame

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// runBeginning executes the membership, diplomacy and standing-assignment
// orders that open a turn.
func (e *Engine) runBeginning(w *World) []Event {
	var events []Event
	for _, o := range w.OrdersForPhase(PhaseBeginning) {
		switch o.OrderType {
		case OrderLeaveFaction:
			events = append(events, e.handleLeaveFaction(w, o)...)
		case OrderKickFromFaction:
			events = append(events, e.handleKickFromFaction(w, o)...)
		case OrderJoinFaction:
			events = append(events, e.handleJoinFaction(w, o)...)
		case OrderAssignCommander:
			events = append(events, e.handleAssignCommander(w, o)...)
		case OrderAssignVP:
			events = append(events, e.handleAssignVP(w, o)...)
		case OrderMakeAlliance:
			events = append(events, e.handleMakeAlliance(w, o)...)
		case OrderDissolveAlliance:
			events = append(events, e.handleDissolveAlliance(w, o)...)
		case OrderDeclareWar:
			events = append(events, e.handleDeclareWar(w, o)...)
		default:
			events = append(events, w.orderFailedEvent(PhaseBeginning, o, "No handler"))
		}
	}
	return events
}

// removeMembership deletes the (faction, character) pair and, when the left
// faction was the character's represented one, re-points representation at
// the most recent remaining membership without resetting the cooldown, and
// moves the character's faction-scoped units across.
func (w *World) removeMembership(factionID, characterID int64) {
	kept := w.Members[:0]
	for _, m := range w.Members {
		if m.FactionID == factionID && m.CharacterID == characterID {
			continue
		}
		kept = append(kept, m)
	}
	w.Members = kept

	remaining := w.Permissions[:0]
	for _, p := range w.Permissions {
		if p.FactionID == factionID && p.CharacterID == characterID {
			continue
		}
		remaining = append(remaining, p)
	}
	w.Permissions = remaining

	ch := w.Characters[characterID]
	if ch == nil || ch.RepresentedFactionID == nil || *ch.RepresentedFactionID != factionID {
		return
	}

	var newRepresented *int64
	memberships := w.membershipsOf(characterID)
	if len(memberships) > 0 {
		id := memberships[0].FactionID
		newRepresented = &id
	}
	ch.RepresentedFactionID = newRepresented

	// Units the character scoped to the left faction follow the new
	// representation.
	for _, u := range w.Units {
		if u.Status != model.UnitActive {
			continue
		}
		if u.Owner.IsCharacter() && u.Owner.ID == characterID &&
			u.FactionID != nil && *u.FactionID == factionID {
			u.FactionID = newRepresented
		}
	}
}

// membershipsOf returns the character's memberships, most recent first.
func (w *World) membershipsOf(characterID int64) []model.FactionMember {
	var out []model.FactionMember
	for _, m := range w.Members {
		if m.CharacterID == characterID {
			out = append(out, m)
		}
	}
	// Most recent join first; faction id breaks ties.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := out[j-1], out[j]
			if a.JoinedTurn > b.JoinedTurn || (a.JoinedTurn == b.JoinedTurn && a.FactionID < b.FactionID) {
				break
			}
			out[j-1], out[j] = b, a
		}
	}
	return out
}

func (e *Engine) handleLeaveFaction(w *World, o *model.Order) []Event {
	var data LeaveFactionData
	if err := decodeOrderData(o, &data); err != nil || o.CharacterID == nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "invalid order data")}
	}
	characterID := *o.CharacterID
	faction := w.Factions[data.FactionID]
	if faction == nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "faction not found")}
	}
	if !w.IsMember(data.FactionID, characterID) {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "not a member of this faction")}
	}
	if faction.LeaderCharacterID != nil && *faction.LeaderCharacterID == characterID {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "assign a new leader first")}
	}

	w.removeMembership(data.FactionID, characterID)
	w.succeedOrder(o, nil)

	affected := []int64{characterID}
	if faction.LeaderCharacterID != nil {
		affected = append(affected, *faction.LeaderCharacterID)
	}
	return []Event{w.event(PhaseBeginning, EventFactionLeft, EntityFaction, faction.ID,
		payload(affected, map[string]any{
			"faction_id":   faction.FactionID,
			"character_id": characterID,
		}))}
}

func (e *Engine) handleKickFromFaction(w *World, o *model.Order) []Event {
	var data KickData
	if err := decodeOrderData(o, &data); err != nil || o.CharacterID == nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "invalid order data")}
	}
	initiatorID := *o.CharacterID
	faction := w.Factions[data.FactionID]
	if faction == nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "faction not found")}
	}
	if !w.HasPermission(data.FactionID, initiatorID, model.PermissionCommand) {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "missing COMMAND permission")}
	}
	if !w.IsMember(data.FactionID, data.TargetCharacterID) {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "target is not a member")}
	}
	if faction.LeaderCharacterID != nil && *faction.LeaderCharacterID == data.TargetCharacterID {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "assign a new leader first")}
	}

	w.removeMembership(data.FactionID, data.TargetCharacterID)
	w.succeedOrder(o, nil)

	affected := []int64{data.TargetCharacterID, initiatorID}
	if faction.LeaderCharacterID != nil {
		affected = append(affected, *faction.LeaderCharacterID)
	}
	return []Event{w.event(PhaseBeginning, EventFactionKicked, EntityFaction, faction.ID,
		payload(affected, map[string]any{
			"faction_id":   faction.FactionID,
			"character_id": data.TargetCharacterID,
			"initiated_by": initiatorID,
		}))}
}

func (e *Engine) handleJoinFaction(w *World, o *model.Order) []Event {
	var data JoinFactionData
	if err := decodeOrderData(o, &data); err != nil || o.CharacterID == nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "invalid order data")}
	}
	characterID := *o.CharacterID
	faction := w.Factions[data.FactionID]
	if faction == nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "faction not found")}
	}
	ch := w.Characters[characterID]
	if ch == nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "character not found")}
	}
	if w.IsMember(data.FactionID, characterID) {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "already a member")}
	}

	w.Members = append(w.Members, model.FactionMember{
		FactionID:   data.FactionID,
		CharacterID: characterID,
		JoinedTurn:  w.ResolvingTurn(),
		GuildID:     w.Guild.ID,
	})

	// First faction becomes the represented one.
	firstFaction := ch.RepresentedFactionID == nil
	if firstFaction {
		id := data.FactionID
		ch.RepresentedFactionID = &id
	}
	w.succeedOrder(o, nil)

	affected := []int64{characterID}
	if faction.LeaderCharacterID != nil {
		affected = append(affected, *faction.LeaderCharacterID)
	}
	return []Event{w.event(PhaseBeginning, EventFactionJoined, EntityFaction, faction.ID,
		payload(affected, map[string]any{
			"faction_id":     faction.FactionID,
			"character_id":   characterID,
			"joined_turn":    w.ResolvingTurn(),
			"is_represented": firstFaction,
		}))}
}

func (e *Engine) handleAssignCommander(w *World, o *model.Order) []Event {
	var data AssignCommanderData
	if err := decodeOrderData(o, &data); err != nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "invalid order data")}
	}
	unit := w.Units[data.UnitID]
	if unit == nil || unit.Status != model.UnitActive {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "unit not found")}
	}
	if w.Characters[data.CommanderCharacterID] == nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "commander not found")}
	}
	if unit.FactionID != nil && !w.IsMember(*unit.FactionID, data.CommanderCharacterID) {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "commander is not a member of the unit's faction")}
	}

	id := data.CommanderCharacterID
	unit.CommanderID = &id
	w.succeedOrder(o, nil)

	affected := append(w.UnitRecipients(unit), id)
	return []Event{w.event(PhaseBeginning, EventCommanderAssigned, EntityUnit, unit.ID,
		payload(affected, map[string]any{
			"unit_id":      unit.UnitID,
			"commander_id": id,
		}))}
}

func (e *Engine) handleAssignVP(w *World, o *model.Order) []Event {
	var data AssignVPData
	if err := decodeOrderData(o, &data); err != nil || o.CharacterID == nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "invalid order data")}
	}
	characterID := *o.CharacterID

	if data.Cancel {
		kept := w.VPAssignments[:0]
		for _, a := range w.VPAssignments {
			if a.CharacterID == characterID {
				continue
			}
			kept = append(kept, a)
		}
		w.VPAssignments = kept
		w.succeedOrder(o, nil)
		return []Event{w.event(PhaseBeginning, EventVPAssignmentCleared, EntityCharacter, characterID,
			payload([]int64{characterID}, nil))}
	}

	faction := w.Factions[data.TargetFactionID]
	if faction == nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "faction not found")}
	}

	// Standing order: re-executing an already-applied assignment is a no-op.
	for _, a := range w.VPAssignments {
		if a.CharacterID == characterID && a.TargetFactionID == data.TargetFactionID {
			o.Status = model.OrderOngoing
			return nil
		}
	}

	kept := w.VPAssignments[:0]
	for _, a := range w.VPAssignments {
		if a.CharacterID == characterID {
			continue
		}
		kept = append(kept, a)
	}
	w.VPAssignments = append(kept, model.VictoryPointAssignment{
		CharacterID:     characterID,
		TargetFactionID: data.TargetFactionID,
		GuildID:         w.Guild.ID,
	})
	o.Status = model.OrderOngoing
	o.UpdatedAt = w.Now
	o.UpdatedTurn = w.ResolvingTurn()

	affected := []int64{characterID}
	if faction.LeaderCharacterID != nil {
		affected = append(affected, *faction.LeaderCharacterID)
	}
	return []Event{w.event(PhaseBeginning, EventVPAssigned, EntityFaction, faction.ID,
		payload(affected, map[string]any{
			"faction_id":   faction.FactionID,
			"character_id": characterID,
		}))}
}

// submittingFaction resolves the faction acting on a diplomacy order.
func (w *World) submittingFaction(o *model.Order) *model.Faction {
	if o.SubmittingFactionID != nil {
		return w.Factions[*o.SubmittingFactionID]
	}
	if o.CharacterID != nil {
		if ch := w.Characters[*o.CharacterID]; ch != nil && ch.RepresentedFactionID != nil {
			return w.Factions[*ch.RepresentedFactionID]
		}
	}
	return nil
}

func (e *Engine) handleMakeAlliance(w *World, o *model.Order) []Event {
	var data AllianceData
	if err := decodeOrderData(o, &data); err != nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "invalid order data")}
	}
	self := w.submittingFaction(o)
	other := w.Factions[data.OtherFactionID]
	if self == nil || other == nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "faction not found")}
	}
	if self.ID == other.ID {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "cannot ally with yourself")}
	}

	a, b := self.ID, other.ID
	if a > b {
		a, b = b, a
	}
	al := w.allianceBetween(a, b)

	affected := leadersOf(w, self.ID, other.ID)

	if al == nil {
		// First step: record the proposal, pending on the other side.
		status := model.AlliancePendingB
		if other.ID == a {
			status = model.AlliancePendingA
		}
		al = &model.Alliance{
			ID:                   w.allocAllianceID(),
			FactionAID:           a,
			FactionBID:           b,
			Status:               status,
			InitiatedByFactionID: self.ID,
			CreatedAt:            w.Now,
			GuildID:              w.Guild.ID,
		}
		w.Alliances = append(w.Alliances, al)
		w.succeedOrder(o, map[string]any{"status": status})
		return []Event{w.event(PhaseBeginning, EventAllianceProposed, EntityFaction, self.ID,
			payload(affected, map[string]any{
				"faction_id":       self.FactionID,
				"other_faction_id": other.FactionID,
				"status":           status,
			}))}
	}

	switch {
	case al.Status == model.AllianceActive:
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "alliance already active")}
	case al.Status == model.AlliancePendingA && self.ID == al.FactionAID,
		al.Status == model.AlliancePendingB && self.ID == al.FactionBID:
		// Second step by the awaited side activates the pact.
		al.Status = model.AllianceActive
		t := w.Now
		al.ActivatedAt = &t
		w.succeedOrder(o, map[string]any{"status": model.AllianceActive})
		return []Event{w.event(PhaseBeginning, EventAllianceActivated, EntityFaction, self.ID,
			payload(affected, map[string]any{
				"faction_id":       self.FactionID,
				"other_faction_id": other.FactionID,
			}))}
	default:
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "alliance already proposed, awaiting the other faction")}
	}
}

func (e *Engine) handleDissolveAlliance(w *World, o *model.Order) []Event {
	var data AllianceData
	if err := decodeOrderData(o, &data); err != nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "invalid order data")}
	}
	self := w.submittingFaction(o)
	other := w.Factions[data.OtherFactionID]
	if self == nil || other == nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "faction not found")}
	}
	al := w.allianceBetween(self.ID, other.ID)
	if al == nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "no alliance to dissolve")}
	}

	kept := w.Alliances[:0]
	for _, row := range w.Alliances {
		if row == al {
			continue
		}
		kept = append(kept, row)
	}
	w.Alliances = kept
	w.succeedOrder(o, nil)

	return []Event{w.event(PhaseBeginning, EventAllianceDissolved, EntityFaction, self.ID,
		payload(leadersOf(w, self.ID, other.ID), map[string]any{
			"faction_id":       self.FactionID,
			"other_faction_id": other.FactionID,
		}))}
}

func (e *Engine) handleDeclareWar(w *World, o *model.Order) []Event {
	var data DeclareWarData
	if err := decodeOrderData(o, &data); err != nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "invalid order data")}
	}
	declarer := w.submittingFaction(o)
	target := w.Factions[data.TargetFactionID]
	if declarer == nil || target == nil {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "faction not found")}
	}
	if declarer.ID == target.ID {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "cannot declare war on yourself")}
	}
	if w.AtWar(declarer.ID, target.ID) {
		return []Event{w.orderFailedEvent(PhaseBeginning, o, "already at war")}
	}

	war := &model.War{
		ID:           w.allocWarID(),
		WarID:        data.WarID,
		Objective:    data.Objective,
		DeclaredTurn: w.ResolvingTurn(),
		GuildID:      w.Guild.ID,
	}
	if war.WarID == "" {
		war.WarID = fmt.Sprintf("war-%d", war.ID)
	}
	w.Wars[war.ID] = war

	// Allies of both sides are dragged in transitively, at declaration only.
	sideA := w.coalitionOf(declarer.ID)
	placed := make(map[int64]string, len(sideA))
	for _, f := range sideA {
		placed[f] = model.WarSideA
	}
	var sideB []int64
	for _, f := range w.coalitionOf(target.ID) {
		if _, taken := placed[f]; taken {
			continue
		}
		placed[f] = model.WarSideB
		sideB = append(sideB, f)
	}

	turn := w.ResolvingTurn()
	for _, f := range sideA {
		w.WarParticipants = append(w.WarParticipants, model.WarParticipant{
			WarID: war.ID, FactionID: f, Side: model.WarSideA,
			JoinedTurn: turn, IsOriginalDeclarer: f == declarer.ID, GuildID: w.Guild.ID,
		})
	}
	for _, f := range sideB {
		w.WarParticipants = append(w.WarParticipants, model.WarParticipant{
			WarID: war.ID, FactionID: f, Side: model.WarSideB,
			JoinedTurn: turn, GuildID: w.Guild.ID,
		})
	}

	firstWar := !declarer.HasDeclaredWar
	if firstWar {
		declarer.HasDeclaredWar = true
		w.firstWarFactions[declarer.ID] = true
		log.Debug().Int64("factionId", declarer.ID).Msg("First war declared, production bonus pending")
	}
	w.succeedOrder(o, map[string]any{"war_id": war.WarID, "first_war_bonus": firstWar})

	var affected []int64
	for f := range placed {
		affected = append(affected, leadersOf(w, f)...)
	}
	return []Event{w.event(PhaseBeginning, EventWarDeclared, EntityWar, war.ID,
		payload(affected, map[string]any{
			"war_id":           war.WarID,
			"objective":        war.Objective,
			"declarer_faction": declarer.FactionID,
			"target_faction":   target.FactionID,
			"side_a":           sideA,
			"side_b":           sideB,
			"first_war_bonus":  firstWar,
		}))}
}

// coalitionOf returns a faction and every faction transitively allied to
// it through ACTIVE alliances, in deterministic BFS order.
func (w *World) coalitionOf(factionID int64) []int64 {
	seen := map[int64]bool{factionID: true}
	order := []int64{factionID}
	for i := 0; i < len(order); i++ {
		for _, ally := range w.AlliesOf(order[i]) {
			if !seen[ally] {
				seen[ally] = true
				order = append(order, ally)
			}
		}
	}
	return order
}

// leadersOf collects the leader character ids of the given factions.
func leadersOf(w *World, factionIDs ...int64) []int64 {
	var ids []int64
	for _, f := range factionIDs {
		if fac := w.Factions[f]; fac != nil && fac.LeaderCharacterID != nil {
			ids = append(ids, *fac.LeaderCharacterID)
		}
	}
	return ids
}
