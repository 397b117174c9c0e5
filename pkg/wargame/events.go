package wargame

import "sort"

// Phase names, in the fixed execution order of a turn.
const (
	PhaseBeginning          = "BEGINNING"
	PhaseMovement           = "MOVEMENT"
	PhaseCombat             = "COMBAT"
	PhaseResourceCollection = "RESOURCE_COLLECTION"
	PhaseResourceTransfer   = "RESOURCE_TRANSFER"
	PhaseEncirclement       = "ENCIRCLEMENT"
	PhaseUpkeep             = "UPKEEP"
	PhaseOrganization       = "ORGANIZATION"
	PhaseConstruction       = "CONSTRUCTION"
)

// PhaseSequence is the mandatory phase order. It is not reorderable.
var PhaseSequence = []string{
	PhaseBeginning,
	PhaseMovement,
	PhaseCombat,
	PhaseResourceCollection,
	PhaseResourceTransfer,
	PhaseEncirclement,
	PhaseUpkeep,
	PhaseOrganization,
	PhaseConstruction,
}

// Entity types carried on events.
const (
	EntityOrder     = "order"
	EntityUnit      = "unit"
	EntityBuilding  = "building"
	EntityCharacter = "character"
	EntityFaction   = "faction"
	EntityTerritory = "territory"
	EntityWar       = "war"
	EntityAlliance  = "alliance"
)

// Event types emitted by phase handlers.
const (
	EventOrderFailed = "ORDER_FAILED"

	EventFactionLeft         = "FACTION_LEFT"
	EventFactionKicked       = "FACTION_KICKED"
	EventFactionJoined       = "FACTION_JOINED"
	EventCommanderAssigned   = "COMMANDER_ASSIGNED"
	EventVPAssigned          = "VICTORY_POINTS_ASSIGNED"
	EventVPAssignmentCleared = "VICTORY_POINT_ASSIGNMENT_CLEARED"
	EventAllianceProposed    = "ALLIANCE_PROPOSED"
	EventAllianceActivated   = "ALLIANCE_ACTIVATED"
	EventAllianceDissolved   = "ALLIANCE_DISSOLVED"
	EventWarDeclared         = "WAR_DECLARED"

	EventUnitEngaged     = "UNIT_ENGAGED"
	EventUnitObserved    = "UNIT_OBSERVED"
	EventUnitBoarded     = "UNIT_BOARDED"
	EventUnitDisembarked = "UNIT_DISEMBARKED"
	EventTransitComplete = "TRANSIT_COMPLETE"
	EventTransitProgress = "TRANSIT_PROGRESS"
	EventMovementBlocked = "MOVEMENT_BLOCKED"

	EventCombatStarted        = "COMBAT_STARTED"
	EventCombatRound          = "COMBAT_ROUND"
	EventCombatEnded          = "COMBAT_ENDED"
	EventCombatRetreat        = "COMBAT_RETREAT"
	EventTerritoryCaptured    = "TERRITORY_CAPTURED"
	EventBuildingCombatDamage = "BUILDING_COMBAT_DAMAGE"

	EventCharacterProduction        = "CHARACTER_PRODUCTION"
	EventFactionTerritoryProduction = "FACTION_TERRITORY_PRODUCTION"

	EventTransferCancelled       = "TRANSFER_CANCELLED"
	EventResourceTransferOK      = "RESOURCE_TRANSFER_SUCCESS"
	EventResourceTransferPartial = "RESOURCE_TRANSFER_PARTIAL"
	EventResourceTransferFailed  = "RESOURCE_TRANSFER_FAILED"

	EventUnitEncircled = "UNIT_ENCIRCLED"

	EventFactionSpending           = "FACTION_SPENDING"
	EventFactionSpendingPartial    = "FACTION_SPENDING_PARTIAL"
	EventBuildingUpkeepPaid        = "BUILDING_UPKEEP_PAID"
	EventBuildingUpkeepDeficit     = "BUILDING_UPKEEP_DEFICIT"
	EventUpkeepEncircled           = "UPKEEP_ENCIRCLED"
	EventFactionUpkeepEncircled    = "FACTION_UPKEEP_ENCIRCLED"
	EventUpkeepDeficit             = "UPKEEP_DEFICIT"
	EventFactionUpkeepDeficit      = "FACTION_UPKEEP_DEFICIT"
	EventUpkeepSummary             = "UPKEEP_SUMMARY"
	EventFactionUpkeepSummary      = "FACTION_UPKEEP_SUMMARY"
	EventUpkeepTotalDeficit        = "UPKEEP_TOTAL_DEFICIT"
	EventFactionUpkeepTotalDeficit = "FACTION_UPKEEP_TOTAL_DEFICIT"

	EventUnitDisbanded     = "UNIT_DISBANDED"
	EventBuildingDestroyed = "BUILDING_DESTROYED"
	EventOrgRecovery       = "ORG_RECOVERY"

	EventUnitMobilized       = "UNIT_MOBILIZED"
	EventMobilizationFailed  = "MOBILIZATION_FAILED"
	EventBuildingConstructed = "BUILDING_CONSTRUCTED"
	EventConstructionFailed  = "CONSTRUCTION_FAILED"

	EventIntegrityFault = "INTEGRITY_FAULT"
)

// Event is one row of the durable per-turn log. Payload always contains
// affected_character_ids, which drives per-character report filtering.
type Event struct {
	Turn       int            `json:"turn_number"`
	Phase      string         `json:"phase"`
	EventType  string         `json:"event_type"`
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	Payload    map[string]any `json:"event_data"`
	GuildID    int64          `json:"guild_id"`
}

// AffectedCharacters returns the recipient list carried in the payload.
func (e *Event) AffectedCharacters() []int64 {
	ids, _ := e.Payload["affected_character_ids"].([]int64)
	return ids
}

// payload builds an event_data map with the mandatory recipient list. The
// ids are deduplicated and sorted so event streams are byte-identical
// across runs.
func payload(affected []int64, kv map[string]any) map[string]any {
	if kv == nil {
		kv = make(map[string]any)
	}
	kv["affected_character_ids"] = dedupeIDs(affected)
	return kv
}

// dedupeIDs sorts and deduplicates a list of character ids.
func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
