package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// FactionRepo handles faction, membership, alliance and war operations.
type FactionRepo struct {
	db *sql.DB
}

// NewFactionRepo creates a FactionRepo.
func NewFactionRepo(db *sql.DB) *FactionRepo {
	return &FactionRepo{db: db}
}

const factionColumns = `id, faction_id, name, leader_character_id, nation,
	created_turn, starting_territory_count,
	spending_ore, spending_lumber, spending_coal,
	spending_rations, spending_cloth, spending_platinum,
	has_declared_war, guild_id`

func scanFaction(row interface{ Scan(...any) error }) (*model.Faction, error) {
	var f model.Faction
	err := row.Scan(&f.ID, &f.FactionID, &f.Name, &f.LeaderCharacterID, &f.Nation,
		&f.CreatedTurn, &f.StartingTerritoryCount,
		&f.Spending.Ore, &f.Spending.Lumber, &f.Spending.Coal,
		&f.Spending.Rations, &f.Spending.Cloth, &f.Spending.Platinum,
		&f.HasDeclaredWar, &f.GuildID)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FindByID returns a faction by id, or nil when absent.
func (r *FactionRepo) FindByID(ctx context.Context, id int64) (*model.Faction, error) {
	f, err := scanFaction(r.db.QueryRowContext(ctx,
		`SELECT `+factionColumns+` FROM factions WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find faction: %w", err)
	}
	return f, nil
}

// ListByGuild returns all factions in a guild ordered by id.
func (r *FactionRepo) ListByGuild(ctx context.Context, guildID int64) ([]model.Faction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+factionColumns+` FROM factions WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list factions: %w", err)
	}
	defer rows.Close()

	var factions []model.Faction
	for rows.Next() {
		f, err := scanFaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan faction: %w", err)
		}
		factions = append(factions, *f)
	}
	return factions, rows.Err()
}

// ListMembers returns all faction memberships in a guild.
func (r *FactionRepo) ListMembers(ctx context.Context, guildID int64) ([]model.FactionMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT faction_id, character_id, joined_turn, guild_id
		 FROM faction_members WHERE guild_id = $1 ORDER BY faction_id, character_id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list faction members: %w", err)
	}
	defer rows.Close()

	var members []model.FactionMember
	for rows.Next() {
		var m model.FactionMember
		if err := rows.Scan(&m.FactionID, &m.CharacterID, &m.JoinedTurn, &m.GuildID); err != nil {
			return nil, fmt.Errorf("scan faction member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListPermissions returns all faction permissions in a guild.
func (r *FactionRepo) ListPermissions(ctx context.Context, guildID int64) ([]model.FactionPermission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT faction_id, character_id, permission_type, guild_id
		 FROM faction_permissions WHERE guild_id = $1 ORDER BY faction_id, character_id, permission_type`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list faction permissions: %w", err)
	}
	defer rows.Close()

	var perms []model.FactionPermission
	for rows.Next() {
		var p model.FactionPermission
		if err := rows.Scan(&p.FactionID, &p.CharacterID, &p.PermissionType, &p.GuildID); err != nil {
			return nil, fmt.Errorf("scan faction permission: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ListAlliances returns all alliances in a guild. Pairs are stored with
// faction_a_id < faction_b_id.
func (r *FactionRepo) ListAlliances(ctx context.Context, guildID int64) ([]model.Alliance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, faction_a_id, faction_b_id, status, initiated_by_faction_id,
		        created_at, activated_at, guild_id
		 FROM alliances WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list alliances: %w", err)
	}
	defer rows.Close()

	var alliances []model.Alliance
	for rows.Next() {
		var a model.Alliance
		if err := rows.Scan(&a.ID, &a.FactionAID, &a.FactionBID, &a.Status,
			&a.InitiatedByFactionID, &a.CreatedAt, &a.ActivatedAt, &a.GuildID); err != nil {
			return nil, fmt.Errorf("scan alliance: %w", err)
		}
		alliances = append(alliances, a)
	}
	return alliances, rows.Err()
}

// ListWars returns all wars in a guild.
func (r *FactionRepo) ListWars(ctx context.Context, guildID int64) ([]model.War, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, war_id, objective, declared_turn, guild_id
		 FROM wars WHERE guild_id = $1 ORDER BY id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list wars: %w", err)
	}
	defer rows.Close()

	var wars []model.War
	for rows.Next() {
		var w model.War
		if err := rows.Scan(&w.ID, &w.WarID, &w.Objective, &w.DeclaredTurn, &w.GuildID); err != nil {
			return nil, fmt.Errorf("scan war: %w", err)
		}
		wars = append(wars, w)
	}
	return wars, rows.Err()
}

// ListWarParticipants returns all war participants in a guild.
func (r *FactionRepo) ListWarParticipants(ctx context.Context, guildID int64) ([]model.WarParticipant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT war_id, faction_id, side, joined_turn, is_original_declarer, guild_id
		 FROM war_participants WHERE guild_id = $1 ORDER BY war_id, faction_id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list war participants: %w", err)
	}
	defer rows.Close()

	var parts []model.WarParticipant
	for rows.Next() {
		var p model.WarParticipant
		if err := rows.Scan(&p.WarID, &p.FactionID, &p.Side, &p.JoinedTurn,
			&p.IsOriginalDeclarer, &p.GuildID); err != nil {
			return nil, fmt.Errorf("scan war participant: %w", err)
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// FindResources returns a faction's balance, zero when no row exists.
func (r *FactionRepo) FindResources(ctx context.Context, guildID, factionID int64) (*model.Resources, error) {
	var res model.Resources
	err := r.db.QueryRowContext(ctx,
		`SELECT ore, lumber, coal, rations, cloth, platinum
		 FROM faction_resources WHERE guild_id = $1 AND faction_id = $2`,
		guildID, factionID,
	).Scan(&res.Ore, &res.Lumber, &res.Coal, &res.Rations, &res.Cloth, &res.Platinum)
	if err == sql.ErrNoRows {
		return &model.Resources{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find faction resources: %w", err)
	}
	return &res, nil
}

// SaveResources upserts a faction's balance.
func (r *FactionRepo) SaveResources(ctx context.Context, guildID, factionID int64, res model.Resources) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO faction_resources (guild_id, faction_id, ore, lumber, coal, rations, cloth, platinum)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (guild_id, faction_id) DO UPDATE SET
		   ore = EXCLUDED.ore, lumber = EXCLUDED.lumber, coal = EXCLUDED.coal,
		   rations = EXCLUDED.rations, cloth = EXCLUDED.cloth, platinum = EXCLUDED.platinum`,
		guildID, factionID, res.Ore, res.Lumber, res.Coal, res.Rations, res.Cloth, res.Platinum)
	if err != nil {
		return fmt.Errorf("save faction resources: %w", err)
	}
	return nil
}
