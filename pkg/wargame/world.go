package wargame

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// World is a complete in-memory snapshot of one guild's state. The turn
// service builds it inside a transaction, the engine mutates it, and the
// service writes it back in the same transaction. Phases never touch the
// store directly, so every suspension point sits at a store boundary.
type World struct {
	Guild *model.Guild

	Characters map[int64]*model.Character
	Factions   map[int64]*model.Faction
	Members    []model.FactionMember
	Permissions []model.FactionPermission
	Alliances  []*model.Alliance
	Wars       map[int64]*model.War
	WarParticipants []model.WarParticipant

	Territories map[int64]*model.Territory
	Adjacency   []model.TerritoryAdjacency
	TerrainCosts map[string]int

	UnitTypes     map[int64]*model.UnitType
	Units         map[int64]*model.Unit
	NavalPositions map[int64][]int64

	Buildings     map[int64]*model.Building
	BuildingTypes map[int64]*model.BuildingType

	CharacterResources map[int64]*model.Resources
	FactionResources   map[int64]*model.Resources

	VPAssignments []model.VictoryPointAssignment

	Orders []*model.Order

	// Now stamps updated_at on orders mutated this resolution. Injected so
	// identical inputs produce identical outputs.
	Now time.Time

	// Cross-phase carry state, populated during resolution.
	Encircled        map[int64]bool // unit id -> encircled this turn
	engaged          map[int64]bool // unit id -> pinned by engagement
	transported      map[int64]bool // unit id -> embarked on a carrier
	contested        map[int64]bool // territory id -> has hostile stacks
	firstWarFactions map[int64]bool // faction id -> first-war bonus this turn

	neighbors map[int64][]int64
}

// ResolvingTurn is the turn number being produced by this resolution.
// Events and join/declare stamps use it; the guild counter advances to it
// only after a successful commit.
func (w *World) ResolvingTurn() int {
	return w.Guild.CurrentTurn + 1
}

// Index builds the derived lookup structures. Call after constructing or
// bulk-loading a World and before resolving.
func (w *World) Index() {
	w.neighbors = make(map[int64][]int64, len(w.Territories))
	for _, adj := range w.Adjacency {
		w.neighbors[adj.TerritoryAID] = append(w.neighbors[adj.TerritoryAID], adj.TerritoryBID)
		w.neighbors[adj.TerritoryBID] = append(w.neighbors[adj.TerritoryBID], adj.TerritoryAID)
	}
	for _, ids := range w.neighbors {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	if w.Encircled == nil {
		w.Encircled = make(map[int64]bool)
	}
	if w.engaged == nil {
		w.engaged = make(map[int64]bool)
	}
	if w.transported == nil {
		w.transported = make(map[int64]bool)
	}
	if w.contested == nil {
		w.contested = make(map[int64]bool)
	}
	if w.firstWarFactions == nil {
		w.firstWarFactions = make(map[int64]bool)
	}
	if w.TerrainCosts == nil {
		w.TerrainCosts = make(map[string]int)
	}
}

// Neighbors returns the sorted neighbor territory ids of a territory.
func (w *World) Neighbors(territoryID int64) []int64 {
	return w.neighbors[territoryID]
}

// IsAdjacent reports whether two territories share an edge.
func (w *World) IsAdjacent(a, b int64) bool {
	for _, n := range w.neighbors[a] {
		if n == b {
			return true
		}
	}
	return false
}

// TerrainCost returns the tick cost of entering a territory. Unlisted
// terrain costs one tick.
func (w *World) TerrainCost(territoryID int64) int {
	t := w.Territories[territoryID]
	if t == nil {
		return 1
	}
	if c, ok := w.TerrainCosts[t.TerrainType]; ok && c > 0 {
		return c
	}
	return 1
}

// OrdersForPhase returns the eligible (PENDING or ONGOING) orders for a
// phase, sorted by (priority, submitted_at, id).
func (w *World) OrdersForPhase(phase string) []*model.Order {
	var out []*model.Order
	for _, o := range w.Orders {
		if o.IsTerminal() {
			continue
		}
		p, ok := PhaseForOrderType(o.OrderType)
		if !ok || p != phase {
			continue
		}
		out = append(out, o)
	}
	sortOrders(out)
	return out
}

// unknownOrders returns eligible orders whose type maps to no phase.
func (w *World) unknownOrders() []*model.Order {
	var out []*model.Order
	for _, o := range w.Orders {
		if o.IsTerminal() {
			continue
		}
		if _, ok := PhaseForOrderType(o.OrderType); !ok {
			out = append(out, o)
		}
	}
	sortOrders(out)
	return out
}

// finishOrder transitions an order to a terminal or ONGOING status and
// stores its result payload.
func (w *World) finishOrder(o *model.Order, status string, result map[string]any) {
	o.Status = status
	if result != nil {
		raw, err := json.Marshal(result)
		if err == nil {
			o.ResultData = raw
		}
	}
	o.UpdatedAt = w.Now
	o.UpdatedTurn = w.ResolvingTurn()
}

func (w *World) failOrder(o *model.Order, reason string) {
	w.finishOrder(o, model.OrderFailed, map[string]any{"error": reason})
}

func (w *World) succeedOrder(o *model.Order, result map[string]any) {
	w.finishOrder(o, model.OrderSuccess, result)
}

// --- entity queries ---

// ActiveUnitsInTerritory returns ACTIVE units standing in a territory,
// sorted by id.
func (w *World) ActiveUnitsInTerritory(territoryID int64) []*model.Unit {
	var out []*model.Unit
	for _, u := range w.Units {
		if u.Status != model.UnitActive || u.CurrentTerritoryID == nil {
			continue
		}
		if *u.CurrentTerritoryID == territoryID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveUnits returns all ACTIVE units sorted by id.
func (w *World) ActiveUnits() []*model.Unit {
	var out []*model.Unit
	for _, u := range w.Units {
		if u.Status == model.UnitActive {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnitTypeOf returns the type row for a unit, or nil when missing.
func (w *World) UnitTypeOf(u *model.Unit) *model.UnitType {
	return w.UnitTypes[u.UnitTypeID]
}

// HomeFaction returns the faction a unit fights for: its own faction_id if
// set, otherwise the owning character's represented faction. Zero when
// neither applies.
func (w *World) HomeFaction(u *model.Unit) int64 {
	if u.FactionID != nil {
		return *u.FactionID
	}
	if u.Owner.IsFaction() {
		return u.Owner.ID
	}
	if u.Owner.IsCharacter() {
		if ch := w.Characters[u.Owner.ID]; ch != nil && ch.RepresentedFactionID != nil {
			return *ch.RepresentedFactionID
		}
	}
	return 0
}

// IsMember reports whether a character belongs to a faction.
func (w *World) IsMember(factionID, characterID int64) bool {
	for _, m := range w.Members {
		if m.FactionID == factionID && m.CharacterID == characterID {
			return true
		}
	}
	return false
}

// MembersOf returns the member character ids of a faction, sorted by
// joined turn descending then character id (most recent first).
func (w *World) MembersOf(factionID int64) []model.FactionMember {
	var out []model.FactionMember
	for _, m := range w.Members {
		if m.FactionID == factionID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedTurn != out[j].JoinedTurn {
			return out[i].JoinedTurn > out[j].JoinedTurn
		}
		return out[i].CharacterID < out[j].CharacterID
	})
	return out
}

// HasPermission reports whether a character holds a permission in a
// faction. The leader implicitly holds all permissions.
func (w *World) HasPermission(factionID, characterID int64, permission string) bool {
	if f := w.Factions[factionID]; f != nil && f.LeaderCharacterID != nil && *f.LeaderCharacterID == characterID {
		return true
	}
	for _, p := range w.Permissions {
		if p.FactionID == factionID && p.CharacterID == characterID && p.PermissionType == permission {
			return true
		}
	}
	return false
}

// PermissionHolders returns the leader plus every holder of the given
// permission in a faction.
func (w *World) PermissionHolders(factionID int64, permission string) []int64 {
	var ids []int64
	if f := w.Factions[factionID]; f != nil && f.LeaderCharacterID != nil {
		ids = append(ids, *f.LeaderCharacterID)
	}
	for _, p := range w.Permissions {
		if p.FactionID == factionID && p.PermissionType == permission {
			ids = append(ids, p.CharacterID)
		}
	}
	return ids
}

// allianceBetween finds the alliance row for a faction pair, nil if none.
func (w *World) allianceBetween(a, b int64) *model.Alliance {
	if a > b {
		a, b = b, a
	}
	for _, al := range w.Alliances {
		if al.FactionAID == a && al.FactionBID == b {
			return al
		}
	}
	return nil
}

// Allied reports whether two factions have an ACTIVE alliance.
func (w *World) Allied(a, b int64) bool {
	if a == 0 || b == 0 || a == b {
		return false
	}
	al := w.allianceBetween(a, b)
	return al != nil && al.Status == model.AllianceActive
}

// AlliesOf returns the faction ids with an ACTIVE alliance with f, sorted.
func (w *World) AlliesOf(f int64) []int64 {
	var out []int64
	for _, al := range w.Alliances {
		if al.Status != model.AllianceActive {
			continue
		}
		switch f {
		case al.FactionAID:
			out = append(out, al.FactionBID)
		case al.FactionBID:
			out = append(out, al.FactionAID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AtWar reports whether two factions sit on opposite sides of any war.
func (w *World) AtWar(a, b int64) bool {
	if a == 0 || b == 0 || a == b {
		return false
	}
	for warID := range w.Wars {
		var sideA, sideB string
		for _, p := range w.WarParticipants {
			if p.WarID != warID {
				continue
			}
			if p.FactionID == a {
				sideA = p.Side
			}
			if p.FactionID == b {
				sideB = p.Side
			}
		}
		if sideA != "" && sideB != "" && sideA != sideB {
			return true
		}
	}
	return false
}

// Hostile reports whether two units are hostile to each other: their home
// factions are on opposite sides of a war, or one is faction-less and the
// other's faction claims the territory they share. Allied units are never
// hostile.
func (w *World) Hostile(a, b *model.Unit) bool {
	fa, fb := w.HomeFaction(a), w.HomeFaction(b)
	if fa != 0 && fb != 0 {
		if fa == fb || w.Allied(fa, fb) {
			return false
		}
		return w.AtWar(fa, fb)
	}
	// One side has no faction: hostile when the other side's faction
	// controls the territory being contested.
	var faction int64
	var tid *int64
	if fa == 0 && fb != 0 {
		faction, tid = fb, a.CurrentTerritoryID
	} else if fb == 0 && fa != 0 {
		faction, tid = fa, b.CurrentTerritoryID
	} else {
		return false
	}
	if tid == nil {
		return false
	}
	t := w.Territories[*tid]
	return t != nil && t.Controller.IsFaction() && t.Controller.ID == faction
}

// ControllerCharacters resolves a territory controller to the character
// ids that should receive its events: the character itself, or the
// faction's leader plus FINANCIAL permission holders.
func (w *World) ControllerCharacters(o model.Owner) []int64 {
	switch o.Kind {
	case model.OwnerCharacter:
		return []int64{o.ID}
	case model.OwnerFaction:
		return w.PermissionHolders(o.ID, model.PermissionFinancial)
	}
	return nil
}

// ResourcesFor returns the mutable balance record for an owner, creating
// an empty one when absent. Nil for the empty owner.
func (w *World) ResourcesFor(o model.Owner) *model.Resources {
	switch o.Kind {
	case model.OwnerCharacter:
		r, ok := w.CharacterResources[o.ID]
		if !ok {
			r = &model.Resources{}
			w.CharacterResources[o.ID] = r
		}
		return r
	case model.OwnerFaction:
		r, ok := w.FactionResources[o.ID]
		if !ok {
			r = &model.Resources{}
			w.FactionResources[o.ID] = r
		}
		return r
	}
	return nil
}

// OwnerExists reports whether the owner refers to a live character or faction.
func (w *World) OwnerExists(o model.Owner) bool {
	switch o.Kind {
	case model.OwnerCharacter:
		return w.Characters[o.ID] != nil
	case model.OwnerFaction:
		return w.Factions[o.ID] != nil
	}
	return false
}

// OwnerName renders a display name for event payloads.
func (w *World) OwnerName(o model.Owner) string {
	switch o.Kind {
	case model.OwnerCharacter:
		if ch := w.Characters[o.ID]; ch != nil {
			return ch.Identifier
		}
	case model.OwnerFaction:
		if f := w.Factions[o.ID]; f != nil {
			return f.Name
		}
	}
	return ""
}

// UnitRecipients returns the characters interested in a unit's events:
// its owner (or faction COMMAND holders) plus its commander.
func (w *World) UnitRecipients(u *model.Unit) []int64 {
	var ids []int64
	switch u.Owner.Kind {
	case model.OwnerCharacter:
		ids = append(ids, u.Owner.ID)
	case model.OwnerFaction:
		ids = append(ids, w.PermissionHolders(u.Owner.ID, model.PermissionCommand)...)
	}
	if u.CommanderID != nil {
		ids = append(ids, *u.CommanderID)
	}
	return ids
}

// --- id allocation for entities created during resolution ---

// allocUnitID returns the next free internal unit id. Rows are inserted
// with explicit ids inside the resolution transaction.
func (w *World) allocUnitID() int64 {
	var max int64
	for id := range w.Units {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (w *World) allocBuildingID() int64 {
	var max int64
	for id := range w.Buildings {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (w *World) allocWarID() int64 {
	var max int64
	for id := range w.Wars {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (w *World) allocAllianceID() int64 {
	var max int64
	for _, a := range w.Alliances {
		if a.ID > max {
			max = a.ID
		}
	}
	return max + 1
}
