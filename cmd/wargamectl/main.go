package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arvenwood/campaign/engine/internal/config"
	"github.com/arvenwood/campaign/engine/internal/logger"
	"github.com/arvenwood/campaign/engine/internal/model"
	"github.com/arvenwood/campaign/engine/internal/repository/postgres"
	"github.com/arvenwood/campaign/engine/internal/service"
)

const usage = `usage: wargamectl <command> [flags]

commands:
  list-guilds                      list guilds with their current turn
  list-characters      -guild N    list characters with their balances
  snapshot-territories -guild N    dump a guild's territories as JSON
  net-production       -guild N    per-faction production minus upkeep
  clear-guild          -guild N    delete all mutable state for a guild
  schedule-turn        -guild N -in 1h  queue a turn resolution
  submit-order         -guild N -type T [-character C] [-faction F] -data JSON
  blend                -items A,B  evaluate an herbalism blend
`

func main() {
	logger.Init()
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "list-guilds":
		err = listGuilds(ctx, db)
	case "list-characters":
		err = listCharacters(ctx, db, guildFlag(cmd, args))
	case "snapshot-territories":
		err = snapshotTerritories(ctx, db, guildFlag(cmd, args))
	case "net-production":
		err = netProduction(ctx, db, guildFlag(cmd, args))
	case "clear-guild":
		err = clearGuild(ctx, db, guildFlag(cmd, args))
	case "schedule-turn":
		err = scheduleTurn(ctx, db, args)
	case "submit-order":
		err = submitOrder(ctx, db, args)
	case "blend":
		err = blend(ctx, db, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("Command failed")
	}
}

func guildFlag(cmd string, args []string) int64 {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	guildID := fs.Int64("guild", 0, "guild id")
	fs.Parse(args)
	if *guildID == 0 {
		fmt.Fprintf(os.Stderr, "%s: -guild is required\n", cmd)
		os.Exit(2)
	}
	return *guildID
}

func listGuilds(ctx context.Context, db *sql.DB) error {
	guilds, err := postgres.NewGuildRepo(db).List(ctx)
	if err != nil {
		return err
	}
	for _, g := range guilds {
		fmt.Printf("%d\t%s\tturn %d\n", g.ID, g.Name, g.CurrentTurn)
	}
	return nil
}

func listCharacters(ctx context.Context, db *sql.DB, guildID int64) error {
	repo := postgres.NewCharacterRepo(db)
	characters, err := repo.ListByGuild(ctx, guildID)
	if err != nil {
		return err
	}
	for _, ch := range characters {
		r, err := repo.FindResources(ctx, guildID, ch.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%d\t%s\tvp %d", ch.ID, ch.Identifier, ch.VictoryPoints)
		for _, kind := range model.ResourceKinds {
			fmt.Printf("\t%s %d", kind, r.Get(kind))
		}
		fmt.Println()
	}
	return nil
}

func snapshotTerritories(ctx context.Context, db *sql.DB, guildID int64) error {
	territories, err := postgres.NewTerritoryRepo(db).ListByGuild(ctx, guildID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(territories)
}

// netProduction prints, per faction, what its territories produce each
// turn minus what its units and buildings demand in upkeep.
func netProduction(ctx context.Context, db *sql.DB, guildID int64) error {
	territories, err := postgres.NewTerritoryRepo(db).ListByGuild(ctx, guildID)
	if err != nil {
		return err
	}
	factions, err := postgres.NewFactionRepo(db).ListByGuild(ctx, guildID)
	if err != nil {
		return err
	}
	unitRepo := postgres.NewUnitRepo(db)
	units, err := unitRepo.ListByGuild(ctx, guildID)
	if err != nil {
		return err
	}
	unitTypes, err := unitRepo.ListTypes(ctx, guildID)
	if err != nil {
		return err
	}
	buildings, err := postgres.NewBuildingRepo(db).ListByGuild(ctx, guildID)
	if err != nil {
		return err
	}

	typeUpkeep := make(map[int64]model.Resources, len(unitTypes))
	for _, t := range unitTypes {
		typeUpkeep[t.ID] = t.Upkeep
	}
	territoryController := make(map[int64]model.Owner, len(territories))

	net := make(map[int64]*model.Resources, len(factions))
	for _, f := range factions {
		net[f.ID] = &model.Resources{}
	}
	for _, t := range territories {
		territoryController[t.ID] = t.Controller
		if t.Controller.IsFaction() {
			if r := net[t.Controller.ID]; r != nil {
				r.Add(t.Production)
			}
		}
	}
	for _, u := range units {
		if u.Status != model.UnitActive || !u.Owner.IsFaction() {
			continue
		}
		if r := net[u.Owner.ID]; r != nil {
			subtract(r, typeUpkeep[u.UnitTypeID])
		}
	}
	for _, b := range buildings {
		if b.Status != model.BuildingActive || b.TerritoryID == nil {
			continue
		}
		controller := territoryController[*b.TerritoryID]
		if !controller.IsFaction() {
			continue
		}
		if r := net[controller.ID]; r != nil {
			subtract(r, b.Upkeep)
		}
	}

	for _, f := range factions {
		fmt.Printf("%d\t%s", f.ID, f.Name)
		for _, kind := range model.ResourceKinds {
			fmt.Printf("\t%s %+d", kind, net[f.ID].Get(kind))
		}
		fmt.Println()
	}
	return nil
}

// scheduleTurn queues a resolution task. The worker's claim loop picks it
// up when due; the Redis fast-path timer is armed by the worker's startup
// recovery or stays off until then.
func scheduleTurn(ctx context.Context, db *sql.DB, args []string) error {
	fs := flag.NewFlagSet("schedule-turn", flag.ExitOnError)
	guildID := fs.Int64("guild", 0, "guild id")
	in := fs.Duration("in", 0, "delay before resolution (e.g. 1h, 30m)")
	fs.Parse(args)
	if *guildID == 0 {
		fmt.Fprintln(os.Stderr, "schedule-turn: -guild is required")
		os.Exit(2)
	}

	svc := service.NewTaskService(postgres.NewTaskRepo(db), nil, nil, 0)
	return svc.ScheduleResolve(ctx, *guildID, time.Now().Add(*in))
}

// submitOrder queues an order for the next resolution, going through the
// same validation and status mapping as any other submission path.
func submitOrder(ctx context.Context, db *sql.DB, args []string) error {
	fs := flag.NewFlagSet("submit-order", flag.ExitOnError)
	guildID := fs.Int64("guild", 0, "guild id")
	orderType := fs.String("type", "", "order type (e.g. UNIT, RESOURCE_TRANSFER)")
	characterID := fs.Int64("character", 0, "submitting character id")
	factionID := fs.Int64("faction", 0, "submitting faction id")
	data := fs.String("data", "{}", "order data as JSON")
	fs.Parse(args)
	if *guildID == 0 || *orderType == "" {
		fmt.Fprintln(os.Stderr, "submit-order: -guild and -type are required")
		os.Exit(2)
	}

	req := service.SubmitRequest{
		GuildID:   *guildID,
		OrderType: *orderType,
		OrderData: json.RawMessage(*data),
	}
	if *characterID != 0 {
		req.CharacterID = characterID
	}
	if *factionID != 0 {
		req.SubmittingFactionID = factionID
	}

	svc := service.NewOrderService(postgres.NewOrderRepo(db), postgres.NewGuildRepo(db))
	o, err := svc.Submit(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("order %d\t%s\t%s\tturn %d\n", o.ID, o.OrderType, o.Status, o.TurnSubmitted)
	return nil
}

func blend(ctx context.Context, db *sql.DB, args []string) error {
	fs := flag.NewFlagSet("blend", flag.ExitOnError)
	items := fs.String("items", "", "comma-separated ingredient item numbers")
	fs.Parse(args)
	if *items == "" {
		fmt.Fprintln(os.Stderr, "blend: -items is required")
		os.Exit(2)
	}

	svc := service.NewHerbService(postgres.NewHerbRepo(db))
	res, err := svc.Blend(ctx, strings.Split(*items, ","))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func subtract(r *model.Resources, cost model.Resources) {
	for _, kind := range model.ResourceKinds {
		r.Set(kind, r.Get(kind)-cost.Get(kind))
	}
}

// clearGuild deletes every mutable row of a guild. Rule tables (terrain
// costs, unit and building types) and the guild row itself are kept so a
// game can be reseeded. Idempotent: re-running on an empty guild is a
// no-op.
func clearGuild(ctx context.Context, db *sql.DB, guildID int64) error {
	tables := []string{
		"turn_events",
		"scheduled_tasks",
		"orders",
		"naval_unit_positions",
		"units",
		"buildings",
		"victory_point_assignments",
		"war_participants",
		"wars",
		"alliances",
		"faction_permissions",
		"faction_members",
		"character_resources",
		"faction_resources",
		"spirit_nexuses",
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	for _, table := range tables {
		res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE guild_id = $1`, table), guildID)
		if err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			log.Info().Str("table", table).Int64("rows", n).Msg("Cleared")
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	log.Info().Int64("guildId", guildID).Msg("Guild cleared")
	return nil
}
