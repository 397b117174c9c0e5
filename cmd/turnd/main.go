package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arvenwood/campaign/engine/internal/config"
	"github.com/arvenwood/campaign/engine/internal/logger"
	"github.com/arvenwood/campaign/engine/internal/repository/postgres"
	redisrepo "github.com/arvenwood/campaign/engine/internal/repository/redis"
	"github.com/arvenwood/campaign/engine/internal/service"
)

func main() {
	logger.Init()
	cfg := config.Load()
	log.Info().Str("databaseURL", cfg.DatabaseURL).Msg("Config loaded")

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Enable Redis keyspace notifications for timer expiry events.
	if err := redisClient.Underlying().ConfigSet(context.Background(), "notify-keyspace-events", "Ex").Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to set Redis keyspace notifications (timer expiry may not work)")
	}

	pollInterval, err := time.ParseDuration(cfg.PollInterval)
	if err != nil {
		log.Warn().Str("value", cfg.PollInterval).Msg("Bad TASK_POLL_INTERVAL, using 5s")
		pollInterval = 5 * time.Second
	}

	// Store and services
	store := postgres.NewWorldStore(db)
	taskRepo := postgres.NewTaskRepo(db)
	turnSvc := service.NewTurnService(store, redisClient, redisClient)
	taskSvc := service.NewTaskService(taskRepo, turnSvc, redisClient, pollInterval)
	timerListener := service.NewTimerListener(redisClient.Underlying(), taskSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Timers armed before a restart are gone; re-arm from the task queue.
	if err := taskSvc.RecoverTimers(ctx); err != nil {
		log.Error().Err(err).Msg("Timer recovery failed")
	}

	log.Info().Msg("Turn worker started")
	timerListener.Start(ctx)
	log.Info().Msg("Turn worker stopped")
}
