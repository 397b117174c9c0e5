package wargame

import (
	"encoding/json"
	"sort"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// Order types.
const (
	OrderLeaveFaction     = "LEAVE_FACTION"
	OrderKickFromFaction  = "KICK_FROM_FACTION"
	OrderJoinFaction      = "JOIN_FACTION"
	OrderAssignCommander  = "ASSIGN_COMMANDER"
	OrderAssignVP         = "ASSIGN_VICTORY_POINTS"
	OrderMakeAlliance     = "MAKE_ALLIANCE"
	OrderDissolveAlliance = "DISSOLVE_ALLIANCE"
	OrderDeclareWar       = "DECLARE_WAR"
	OrderUnit             = "UNIT"
	OrderCancelTransfer   = "CANCEL_TRANSFER"
	OrderResourceTransfer = "RESOURCE_TRANSFER"
	OrderMobilization     = "MOBILIZATION"
	OrderConstruction     = "CONSTRUCTION"
)

// Movement actions carried in UNIT order data.
const (
	ActionTransit        = "transit"
	ActionPatrol         = "patrol"
	ActionNavalTransport = "naval_transport"
	ActionNavalTransit   = "naval_transit"
	ActionNavalPatrol    = "naval_patrol"
	ActionNavalWait      = "naval_wait"
)

// dispatch records the static phase and priority of an order type.
// Lower priority runs first; within a tier orders run by
// (submitted_at, id) ascending.
type dispatch struct {
	Phase    string
	Priority int
}

var orderDispatch = map[string]dispatch{
	OrderLeaveFaction:     {PhaseBeginning, 0},
	OrderKickFromFaction:  {PhaseBeginning, 0},
	OrderJoinFaction:      {PhaseBeginning, 1},
	OrderAssignCommander:  {PhaseBeginning, 2},
	OrderAssignVP:         {PhaseBeginning, 3},
	OrderMakeAlliance:     {PhaseBeginning, 3},
	OrderDissolveAlliance: {PhaseBeginning, 3},
	OrderDeclareWar:       {PhaseBeginning, 3},
	OrderUnit:             {PhaseMovement, 0},
	OrderCancelTransfer:   {PhaseResourceTransfer, 0},
	OrderResourceTransfer: {PhaseResourceTransfer, 1},
	OrderMobilization:     {PhaseConstruction, 0},
	OrderConstruction:     {PhaseConstruction, 0},
}

// PhaseForOrderType returns the phase an order type executes in, and
// whether the type is known at all.
func PhaseForOrderType(orderType string) (string, bool) {
	d, ok := orderDispatch[orderType]
	return d.Phase, ok
}

// PriorityForOrderType returns the priority of an order type within its phase.
func PriorityForOrderType(orderType string) int {
	return orderDispatch[orderType].Priority
}

// sortOrders orders a slice by (priority, submitted_at, id) ascending.
// The id tiebreak makes the ordering total, which determinism requires.
func sortOrders(orders []*model.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		pi, pj := PriorityForOrderType(orders[i].OrderType), PriorityForOrderType(orders[j].OrderType)
		if pi != pj {
			return pi < pj
		}
		if !orders[i].SubmittedAt.Equal(orders[j].SubmittedAt) {
			return orders[i].SubmittedAt.Before(orders[j].SubmittedAt)
		}
		return orders[i].ID < orders[j].ID
	})
}

// Per-type order_data payloads. Each handler decodes its own shape.

// LeaveFactionData is the payload of a LEAVE_FACTION order.
type LeaveFactionData struct {
	FactionID int64 `json:"faction_id"`
}

// KickData is the payload of a KICK_FROM_FACTION order.
type KickData struct {
	FactionID         int64 `json:"faction_id"`
	TargetCharacterID int64 `json:"target_character_id"`
}

// JoinFactionData is the payload of a JOIN_FACTION order.
type JoinFactionData struct {
	FactionID int64 `json:"faction_id"`
}

// AssignCommanderData is the payload of an ASSIGN_COMMANDER order.
type AssignCommanderData struct {
	UnitID               int64 `json:"unit_id"`
	CommanderCharacterID int64 `json:"commander_character_id"`
}

// AssignVPData is the payload of an ASSIGN_VICTORY_POINTS order.
type AssignVPData struct {
	TargetFactionID int64 `json:"target_faction_id"`
	Cancel          bool  `json:"cancel,omitempty"`
}

// AllianceData is the payload of MAKE_ALLIANCE and DISSOLVE_ALLIANCE orders.
type AllianceData struct {
	OtherFactionID int64 `json:"other_faction_id"`
}

// DeclareWarData is the payload of a DECLARE_WAR order.
type DeclareWarData struct {
	TargetFactionID int64  `json:"target_faction_id"`
	Objective       string `json:"objective"`
	WarID           string `json:"war_id,omitempty"`
}

// MovementData is the payload of a UNIT order. Path is the planned ordered
// sequence of territory ids starting at the unit's current territory.
type MovementData struct {
	UnitID       int64   `json:"unit_id"`
	Action       string  `json:"action"`
	Path         []int64 `json:"path"`
	StackUnitIDs []int64 `json:"stack_unit_ids,omitempty"`

	// TransportedBy carries the embarked state of an in-flight transit
	// across turns; handlers maintain it, players never set it.
	TransportedBy *int64 `json:"transported_by,omitempty"`
}

// marshalOrderData re-encodes a handler-maintained payload for an ONGOING order.
func marshalOrderData(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// TransferParty identifies one side of a resource transfer.
type TransferParty struct {
	CharacterID *int64 `json:"character_id,omitempty"`
	FactionID   *int64 `json:"faction_id,omitempty"`
}

// Owner converts the party to the Owner union.
func (p TransferParty) Owner() model.Owner {
	return model.OwnerFromColumns(p.CharacterID, p.FactionID)
}

// TransferData is the payload of a RESOURCE_TRANSFER order. A nil
// TurnsRemaining means a one-time transfer; recurring transfers carry the
// remaining term and decrement it each turn.
type TransferData struct {
	From           TransferParty  `json:"from"`
	To             TransferParty  `json:"to"`
	Resources      map[string]int `json:"resources"`
	TurnsRemaining *int           `json:"turns_remaining,omitempty"`
}

// CancelTransferData is the payload of a CANCEL_TRANSFER order.
type CancelTransferData struct {
	TransferOrderID int64 `json:"transfer_order_id"`
}

// MobilizationData is the payload of a MOBILIZATION order.
type MobilizationData struct {
	UnitTypeID           int64  `json:"unit_type_id"`
	TerritoryID          int64  `json:"territory_id"`
	UnitID               string `json:"unit_id"`
	ForFactionID         *int64 `json:"for_faction_id,omitempty"`
	CommanderCharacterID *int64 `json:"commander_character_id,omitempty"`
}

// ConstructionData is the payload of a CONSTRUCTION order.
type ConstructionData struct {
	BuildingTypeID int64  `json:"building_type_id"`
	TerritoryID    int64  `json:"territory_id"`
	BuildingID     string `json:"building_id"`
	ForFactionID   *int64 `json:"for_faction_id,omitempty"`
}

// decodeOrderData unmarshals an order's payload into the handler's type.
func decodeOrderData(o *model.Order, v any) error {
	if len(o.OrderData) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(o.OrderData, v)
}
