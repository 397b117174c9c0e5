package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/arvenwood/campaign/engine/internal/model"
	"github.com/arvenwood/campaign/engine/internal/repository"
	"github.com/arvenwood/campaign/engine/pkg/wargame"
)

// WorldStore loads a guild's full snapshot and persists resolutions. Every
// phase reads and writes the in-memory World only; this store is the single
// transactional boundary around a turn.
type WorldStore struct {
	db *sql.DB
}

// NewWorldStore creates a WorldStore.
func NewWorldStore(db *sql.DB) *WorldStore {
	return &WorldStore{db: db}
}

// LoadWorld reads every per-guild row in one repeatable-read transaction
// and assembles the engine's World snapshot. Returns (nil, nil) when the
// guild does not exist.
func (s *WorldStore) LoadWorld(ctx context.Context, guildID int64) (*wargame.World, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	w := &wargame.World{
		Characters:         make(map[int64]*model.Character),
		Factions:           make(map[int64]*model.Faction),
		Wars:               make(map[int64]*model.War),
		Territories:        make(map[int64]*model.Territory),
		TerrainCosts:       make(map[string]int),
		UnitTypes:          make(map[int64]*model.UnitType),
		Units:              make(map[int64]*model.Unit),
		NavalPositions:     make(map[int64][]int64),
		Buildings:          make(map[int64]*model.Building),
		BuildingTypes:      make(map[int64]*model.BuildingType),
		CharacterResources: make(map[int64]*model.Resources),
		FactionResources:   make(map[int64]*model.Resources),
		Now:                time.Now().UTC(),
	}

	var g model.Guild
	err = tx.QueryRowContext(ctx,
		`SELECT id, name, current_turn, max_movement_stat, created_at
		 FROM guilds WHERE id = $1`, guildID,
	).Scan(&g.ID, &g.Name, &g.CurrentTurn, &g.MaxMovementStat, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load guild: %w", err)
	}
	w.Guild = &g

	if err := s.loadRoster(ctx, tx, guildID, w); err != nil {
		return nil, err
	}
	if err := s.loadMap(ctx, tx, guildID, w); err != nil {
		return nil, err
	}
	if err := s.loadForces(ctx, tx, guildID, w); err != nil {
		return nil, err
	}
	if err := s.loadBalances(ctx, tx, guildID, w); err != nil {
		return nil, err
	}
	if err := s.loadOrders(ctx, tx, guildID, w); err != nil {
		return nil, err
	}

	w.Index()
	return w, nil
}

func (s *WorldStore) loadRoster(ctx context.Context, tx *sql.Tx, guildID int64, w *wargame.World) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return fmt.Errorf("load characters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return fmt.Errorf("scan character: %w", err)
		}
		w.Characters[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return err
	}

	frows, err := tx.QueryContext(ctx,
		`SELECT `+factionColumns+` FROM factions WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return fmt.Errorf("load factions: %w", err)
	}
	defer frows.Close()
	for frows.Next() {
		f, err := scanFaction(frows)
		if err != nil {
			return fmt.Errorf("scan faction: %w", err)
		}
		w.Factions[f.ID] = f
	}
	if err := frows.Err(); err != nil {
		return err
	}

	mrows, err := tx.QueryContext(ctx,
		`SELECT faction_id, character_id, joined_turn, guild_id
		 FROM faction_members WHERE guild_id = $1 ORDER BY faction_id, character_id`, guildID)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var m model.FactionMember
		if err := mrows.Scan(&m.FactionID, &m.CharacterID, &m.JoinedTurn, &m.GuildID); err != nil {
			return fmt.Errorf("scan member: %w", err)
		}
		w.Members = append(w.Members, m)
	}
	if err := mrows.Err(); err != nil {
		return err
	}

	prows, err := tx.QueryContext(ctx,
		`SELECT faction_id, character_id, permission_type, guild_id
		 FROM faction_permissions WHERE guild_id = $1 ORDER BY faction_id, character_id, permission_type`, guildID)
	if err != nil {
		return fmt.Errorf("load permissions: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var p model.FactionPermission
		if err := prows.Scan(&p.FactionID, &p.CharacterID, &p.PermissionType, &p.GuildID); err != nil {
			return fmt.Errorf("scan permission: %w", err)
		}
		w.Permissions = append(w.Permissions, p)
	}
	if err := prows.Err(); err != nil {
		return err
	}

	arows, err := tx.QueryContext(ctx,
		`SELECT id, faction_a_id, faction_b_id, status, initiated_by_faction_id,
		        created_at, activated_at, guild_id
		 FROM alliances WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return fmt.Errorf("load alliances: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var a model.Alliance
		if err := arows.Scan(&a.ID, &a.FactionAID, &a.FactionBID, &a.Status,
			&a.InitiatedByFactionID, &a.CreatedAt, &a.ActivatedAt, &a.GuildID); err != nil {
			return fmt.Errorf("scan alliance: %w", err)
		}
		w.Alliances = append(w.Alliances, &a)
	}
	if err := arows.Err(); err != nil {
		return err
	}

	wrows, err := tx.QueryContext(ctx,
		`SELECT id, war_id, objective, declared_turn, guild_id
		 FROM wars WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return fmt.Errorf("load wars: %w", err)
	}
	defer wrows.Close()
	for wrows.Next() {
		var war model.War
		if err := wrows.Scan(&war.ID, &war.WarID, &war.Objective, &war.DeclaredTurn, &war.GuildID); err != nil {
			return fmt.Errorf("scan war: %w", err)
		}
		w.Wars[war.ID] = &war
	}
	if err := wrows.Err(); err != nil {
		return err
	}

	wprows, err := tx.QueryContext(ctx,
		`SELECT war_id, faction_id, side, joined_turn, is_original_declarer, guild_id
		 FROM war_participants WHERE guild_id = $1 ORDER BY war_id, faction_id`, guildID)
	if err != nil {
		return fmt.Errorf("load war participants: %w", err)
	}
	defer wprows.Close()
	for wprows.Next() {
		var p model.WarParticipant
		if err := wprows.Scan(&p.WarID, &p.FactionID, &p.Side, &p.JoinedTurn,
			&p.IsOriginalDeclarer, &p.GuildID); err != nil {
			return fmt.Errorf("scan war participant: %w", err)
		}
		w.WarParticipants = append(w.WarParticipants, p)
	}
	if err := wprows.Err(); err != nil {
		return err
	}

	vrows, err := tx.QueryContext(ctx,
		`SELECT character_id, target_faction_id, guild_id
		 FROM victory_point_assignments WHERE guild_id = $1 ORDER BY character_id`, guildID)
	if err != nil {
		return fmt.Errorf("load vp assignments: %w", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var v model.VictoryPointAssignment
		if err := vrows.Scan(&v.CharacterID, &v.TargetFactionID, &v.GuildID); err != nil {
			return fmt.Errorf("scan vp assignment: %w", err)
		}
		w.VPAssignments = append(w.VPAssignments, v)
	}
	return vrows.Err()
}

func (s *WorldStore) loadMap(ctx context.Context, tx *sql.Tx, guildID int64, w *wargame.World) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+territoryColumns+` FROM territories WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return fmt.Errorf("load territories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanTerritory(rows)
		if err != nil {
			return fmt.Errorf("scan territory: %w", err)
		}
		w.Territories[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return err
	}

	arows, err := tx.QueryContext(ctx,
		`SELECT territory_a_id, territory_b_id, guild_id
		 FROM territory_adjacency WHERE guild_id = $1 ORDER BY territory_a_id, territory_b_id`, guildID)
	if err != nil {
		return fmt.Errorf("load adjacency: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var a model.TerritoryAdjacency
		if err := arows.Scan(&a.TerritoryAID, &a.TerritoryBID, &a.GuildID); err != nil {
			return fmt.Errorf("scan adjacency: %w", err)
		}
		w.Adjacency = append(w.Adjacency, a)
	}
	if err := arows.Err(); err != nil {
		return err
	}

	crows, err := tx.QueryContext(ctx,
		`SELECT terrain_type, cost FROM terrain_costs WHERE guild_id = $1`, guildID)
	if err != nil {
		return fmt.Errorf("load terrain costs: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var terrain string
		var cost int
		if err := crows.Scan(&terrain, &cost); err != nil {
			return fmt.Errorf("scan terrain cost: %w", err)
		}
		w.TerrainCosts[terrain] = cost
	}
	return crows.Err()
}

func (s *WorldStore) loadForces(ctx context.Context, tx *sql.Tx, guildID int64, w *wargame.World) error {
	trows, err := tx.QueryContext(ctx,
		`SELECT id, type_id, name, nation, movement, organization_max,
		        attack, defense, siege_attack, siege_defense,
		        cost_ore, cost_lumber, cost_coal, cost_rations, cost_cloth, cost_platinum,
		        upkeep_ore, upkeep_lumber, upkeep_coal, upkeep_rations, upkeep_cloth, upkeep_platinum,
		        is_naval, capacity, guild_id
		 FROM unit_types WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return fmt.Errorf("load unit types: %w", err)
	}
	defer trows.Close()
	for trows.Next() {
		var t model.UnitType
		if err := trows.Scan(&t.ID, &t.TypeID, &t.Name, &t.Nation, &t.Movement, &t.OrganizationMax,
			&t.Attack, &t.Defense, &t.SiegeAttack, &t.SiegeDefense,
			&t.Cost.Ore, &t.Cost.Lumber, &t.Cost.Coal, &t.Cost.Rations, &t.Cost.Cloth, &t.Cost.Platinum,
			&t.Upkeep.Ore, &t.Upkeep.Lumber, &t.Upkeep.Coal, &t.Upkeep.Rations, &t.Upkeep.Cloth, &t.Upkeep.Platinum,
			&t.IsNaval, &t.Capacity, &t.GuildID); err != nil {
			return fmt.Errorf("scan unit type: %w", err)
		}
		w.UnitTypes[t.ID] = &t
	}
	if err := trows.Err(); err != nil {
		return err
	}

	urows, err := tx.QueryContext(ctx,
		`SELECT `+unitColumns+` FROM units WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return fmt.Errorf("load units: %w", err)
	}
	defer urows.Close()
	for urows.Next() {
		u, err := scanUnit(urows)
		if err != nil {
			return fmt.Errorf("scan unit: %w", err)
		}
		w.Units[u.ID] = u
	}
	if err := urows.Err(); err != nil {
		return err
	}

	nrows, err := tx.QueryContext(ctx,
		`SELECT unit_id, territory_id FROM naval_unit_positions
		 WHERE guild_id = $1 ORDER BY unit_id, position_index`, guildID)
	if err != nil {
		return fmt.Errorf("load naval positions: %w", err)
	}
	defer nrows.Close()
	for nrows.Next() {
		var unitID, territoryID int64
		if err := nrows.Scan(&unitID, &territoryID); err != nil {
			return fmt.Errorf("scan naval position: %w", err)
		}
		w.NavalPositions[unitID] = append(w.NavalPositions[unitID], territoryID)
	}
	if err := nrows.Err(); err != nil {
		return err
	}

	btrows, err := tx.QueryContext(ctx,
		`SELECT id, type_id, name,
		        cost_ore, cost_lumber, cost_coal, cost_rations, cost_cloth, cost_platinum,
		        upkeep_ore, upkeep_lumber, upkeep_coal, upkeep_rations, upkeep_cloth, upkeep_platinum,
		        guild_id
		 FROM building_types WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return fmt.Errorf("load building types: %w", err)
	}
	defer btrows.Close()
	for btrows.Next() {
		var t model.BuildingType
		if err := btrows.Scan(&t.ID, &t.TypeID, &t.Name,
			&t.Cost.Ore, &t.Cost.Lumber, &t.Cost.Coal, &t.Cost.Rations, &t.Cost.Cloth, &t.Cost.Platinum,
			&t.Upkeep.Ore, &t.Upkeep.Lumber, &t.Upkeep.Coal, &t.Upkeep.Rations, &t.Upkeep.Cloth, &t.Upkeep.Platinum,
			&t.GuildID); err != nil {
			return fmt.Errorf("scan building type: %w", err)
		}
		w.BuildingTypes[t.ID] = &t
	}
	if err := btrows.Err(); err != nil {
		return err
	}

	brows, err := tx.QueryContext(ctx,
		`SELECT id, building_id, building_type_id, territory_id, durability, status,
		        upkeep_ore, upkeep_lumber, upkeep_coal, upkeep_rations, upkeep_cloth, upkeep_platinum,
		        guild_id
		 FROM buildings WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return fmt.Errorf("load buildings: %w", err)
	}
	defer brows.Close()
	for brows.Next() {
		var b model.Building
		if err := brows.Scan(&b.ID, &b.BuildingID, &b.BuildingTypeID, &b.TerritoryID,
			&b.Durability, &b.Status,
			&b.Upkeep.Ore, &b.Upkeep.Lumber, &b.Upkeep.Coal,
			&b.Upkeep.Rations, &b.Upkeep.Cloth, &b.Upkeep.Platinum,
			&b.GuildID); err != nil {
			return fmt.Errorf("scan building: %w", err)
		}
		w.Buildings[b.ID] = &b
	}
	return brows.Err()
}

func (s *WorldStore) loadBalances(ctx context.Context, tx *sql.Tx, guildID int64, w *wargame.World) error {
	crows, err := tx.QueryContext(ctx,
		`SELECT character_id, ore, lumber, coal, rations, cloth, platinum
		 FROM character_resources WHERE guild_id = $1 ORDER BY character_id`, guildID)
	if err != nil {
		return fmt.Errorf("load character resources: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var id int64
		var res model.Resources
		if err := crows.Scan(&id, &res.Ore, &res.Lumber, &res.Coal,
			&res.Rations, &res.Cloth, &res.Platinum); err != nil {
			return fmt.Errorf("scan character resources: %w", err)
		}
		w.CharacterResources[id] = &res
	}
	if err := crows.Err(); err != nil {
		return err
	}

	frows, err := tx.QueryContext(ctx,
		`SELECT faction_id, ore, lumber, coal, rations, cloth, platinum
		 FROM faction_resources WHERE guild_id = $1 ORDER BY faction_id`, guildID)
	if err != nil {
		return fmt.Errorf("load faction resources: %w", err)
	}
	defer frows.Close()
	for frows.Next() {
		var id int64
		var res model.Resources
		if err := frows.Scan(&id, &res.Ore, &res.Lumber, &res.Coal,
			&res.Rations, &res.Cloth, &res.Platinum); err != nil {
			return fmt.Errorf("scan faction resources: %w", err)
		}
		w.FactionResources[id] = &res
	}
	return frows.Err()
}

func (s *WorldStore) loadOrders(ctx context.Context, tx *sql.Tx, guildID int64, w *wargame.World) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE guild_id = $1 AND status IN ('PENDING', 'ONGOING')
		 ORDER BY submitted_at, id`, guildID)
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return fmt.Errorf("scan order: %w", err)
		}
		w.Orders = append(w.Orders, o)
	}
	return rows.Err()
}

// SaveResolution writes the mutated world, the event batch and the order
// updates, and advances the guild's turn counter, all in one transaction.
// Relationship tables are rewritten wholesale from the snapshot; entity
// tables are upserted by id. Returns repository.ErrTurnConflict (and
// writes nothing) when the counter moved underneath the resolution.
func (s *WorldStore) SaveResolution(ctx context.Context, w *wargame.World, events []wargame.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	guildID := w.Guild.ID

	// CAS the turn counter first so a concurrent resolution fails fast.
	res, err := tx.ExecContext(ctx,
		`UPDATE guilds SET current_turn = current_turn + 1
		 WHERE id = $1 AND current_turn = $2`, guildID, w.Guild.CurrentTurn)
	if err != nil {
		return fmt.Errorf("advance turn: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("advance turn rows: %w", err)
	} else if n == 0 {
		return repository.ErrTurnConflict
	}

	if err := s.saveRoster(ctx, tx, guildID, w); err != nil {
		return err
	}
	if err := s.saveMapAndForces(ctx, tx, guildID, w); err != nil {
		return err
	}
	if err := s.saveBalances(ctx, tx, guildID, w); err != nil {
		return err
	}
	if err := s.saveOrders(ctx, tx, w); err != nil {
		return err
	}
	if err := appendEventsTx(ctx, tx, events); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *WorldStore) saveRoster(ctx context.Context, tx *sql.Tx, guildID int64, w *wargame.World) error {
	for _, id := range sortedKeys(w.Characters) {
		c := w.Characters[id]
		if _, err := tx.ExecContext(ctx,
			`UPDATE characters SET represented_faction_id = $1,
			   representation_changed_turn = $2, victory_points = $3
			 WHERE id = $4`,
			c.RepresentedFactionID, c.RepresentationChangedTurn, c.VictoryPoints, c.ID); err != nil {
			return fmt.Errorf("save character: %w", err)
		}
	}
	for _, id := range sortedKeys(w.Factions) {
		f := w.Factions[id]
		if _, err := tx.ExecContext(ctx,
			`UPDATE factions SET leader_character_id = $1, has_declared_war = $2
			 WHERE id = $3`,
			f.LeaderCharacterID, f.HasDeclaredWar, f.ID); err != nil {
			return fmt.Errorf("save faction: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM faction_members WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}
	for _, m := range w.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO faction_members (faction_id, character_id, joined_turn, guild_id)
			 VALUES ($1, $2, $3, $4)`,
			m.FactionID, m.CharacterID, m.JoinedTurn, guildID); err != nil {
			return fmt.Errorf("save member: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM faction_permissions WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("clear permissions: %w", err)
	}
	for _, p := range w.Permissions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO faction_permissions (faction_id, character_id, permission_type, guild_id)
			 VALUES ($1, $2, $3, $4)`,
			p.FactionID, p.CharacterID, p.PermissionType, guildID); err != nil {
			return fmt.Errorf("save permission: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM victory_point_assignments WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("clear vp assignments: %w", err)
	}
	for _, v := range w.VPAssignments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO victory_point_assignments (character_id, target_faction_id, guild_id)
			 VALUES ($1, $2, $3)`,
			v.CharacterID, v.TargetFactionID, guildID); err != nil {
			return fmt.Errorf("save vp assignment: %w", err)
		}
	}

	// Dissolution removes the row from the snapshot, so the table is
	// rewritten from it like the other relationship tables.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM alliances WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("clear alliances: %w", err)
	}
	for _, a := range w.Alliances {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO alliances (id, faction_a_id, faction_b_id, status,
			   initiated_by_faction_id, created_at, activated_at, guild_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.ID, a.FactionAID, a.FactionBID, a.Status,
			a.InitiatedByFactionID, a.CreatedAt, a.ActivatedAt, guildID); err != nil {
			return fmt.Errorf("save alliance: %w", err)
		}
	}

	for _, id := range sortedKeys(w.Wars) {
		war := w.Wars[id]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wars (id, war_id, objective, declared_turn, guild_id)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO NOTHING`,
			war.ID, war.WarID, war.Objective, war.DeclaredTurn, guildID); err != nil {
			return fmt.Errorf("save war: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM war_participants WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("clear war participants: %w", err)
	}
	for _, p := range w.WarParticipants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO war_participants (war_id, faction_id, side, joined_turn, is_original_declarer, guild_id)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			p.WarID, p.FactionID, p.Side, p.JoinedTurn, p.IsOriginalDeclarer, guildID); err != nil {
			return fmt.Errorf("save war participant: %w", err)
		}
	}
	return nil
}

func (s *WorldStore) saveMapAndForces(ctx context.Context, tx *sql.Tx, guildID int64, w *wargame.World) error {
	for _, id := range sortedKeys(w.Territories) {
		t := w.Territories[id]
		charID, factionID := t.Controller.Columns()
		if _, err := tx.ExecContext(ctx,
			`UPDATE territories SET controller_character_id = $1, controller_faction_id = $2
			 WHERE id = $3`,
			charID, factionID, t.ID); err != nil {
			return fmt.Errorf("save territory: %w", err)
		}
	}

	for _, id := range sortedKeys(w.Units) {
		u := w.Units[id]
		charID, factionID := u.Owner.Columns()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO units (id, unit_id, unit_type_id, owner_character_id, owner_faction_id,
			   commander_character_id, faction_id, current_territory_id,
			   organization, max_organization, status, is_naval, guild_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			 ON CONFLICT (id) DO UPDATE SET
			   commander_character_id = EXCLUDED.commander_character_id,
			   current_territory_id = EXCLUDED.current_territory_id,
			   organization = EXCLUDED.organization,
			   status = EXCLUDED.status`,
			u.ID, u.UnitID, u.UnitTypeID, charID, factionID,
			u.CommanderID, u.FactionID, u.CurrentTerritoryID,
			u.Organization, u.MaxOrganization, u.Status, u.IsNaval, guildID); err != nil {
			return fmt.Errorf("save unit: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM naval_unit_positions WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("clear naval positions: %w", err)
	}
	for _, unitID := range sortedKeys(w.NavalPositions) {
		for i, tid := range w.NavalPositions[unitID] {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO naval_unit_positions (unit_id, territory_id, position_index, guild_id)
				 VALUES ($1, $2, $3, $4)`,
				unitID, tid, i, guildID); err != nil {
				return fmt.Errorf("save naval position: %w", err)
			}
		}
	}

	for _, id := range sortedKeys(w.Buildings) {
		b := w.Buildings[id]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO buildings (id, building_id, building_type_id, territory_id, durability, status,
			   upkeep_ore, upkeep_lumber, upkeep_coal, upkeep_rations, upkeep_cloth, upkeep_platinum, guild_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			 ON CONFLICT (id) DO UPDATE SET
			   durability = EXCLUDED.durability,
			   status = EXCLUDED.status`,
			b.ID, b.BuildingID, b.BuildingTypeID, b.TerritoryID, b.Durability, b.Status,
			b.Upkeep.Ore, b.Upkeep.Lumber, b.Upkeep.Coal,
			b.Upkeep.Rations, b.Upkeep.Cloth, b.Upkeep.Platinum, guildID); err != nil {
			return fmt.Errorf("save building: %w", err)
		}
	}
	return nil
}

func (s *WorldStore) saveBalances(ctx context.Context, tx *sql.Tx, guildID int64, w *wargame.World) error {
	for _, id := range sortedKeys(w.CharacterResources) {
		r := w.CharacterResources[id]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO character_resources (guild_id, character_id, ore, lumber, coal, rations, cloth, platinum)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (guild_id, character_id) DO UPDATE SET
			   ore = EXCLUDED.ore, lumber = EXCLUDED.lumber, coal = EXCLUDED.coal,
			   rations = EXCLUDED.rations, cloth = EXCLUDED.cloth, platinum = EXCLUDED.platinum`,
			guildID, id, r.Ore, r.Lumber, r.Coal, r.Rations, r.Cloth, r.Platinum); err != nil {
			return fmt.Errorf("save character balance: %w", err)
		}
	}
	for _, id := range sortedKeys(w.FactionResources) {
		r := w.FactionResources[id]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO faction_resources (guild_id, faction_id, ore, lumber, coal, rations, cloth, platinum)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (guild_id, faction_id) DO UPDATE SET
			   ore = EXCLUDED.ore, lumber = EXCLUDED.lumber, coal = EXCLUDED.coal,
			   rations = EXCLUDED.rations, cloth = EXCLUDED.cloth, platinum = EXCLUDED.platinum`,
			guildID, id, r.Ore, r.Lumber, r.Coal, r.Rations, r.Cloth, r.Platinum); err != nil {
			return fmt.Errorf("save faction balance: %w", err)
		}
	}
	return nil
}

func (s *WorldStore) saveOrders(ctx context.Context, tx *sql.Tx, w *wargame.World) error {
	for _, o := range w.Orders {
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, order_data = $2, result_data = $3,
			   updated_at = $4, updated_turn = $5
			 WHERE id = $6`,
			o.Status, []byte(o.OrderData), []byte(o.ResultData),
			o.UpdatedAt, o.UpdatedTurn, o.ID); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
	}
	return nil
}

// sortedKeys returns a map's keys ascending so writes happen in a stable
// order and never deadlock against a concurrent resolution.
func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
