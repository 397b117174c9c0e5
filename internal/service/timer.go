package service

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisrepo "github.com/arvenwood/campaign/engine/internal/repository/redis"
)

// TimerListener listens for Redis keyspace notifications on expired guild
// timer keys. An expiry only wakes the claim loop early; the scheduled
// task row is the single record of the resolution, claimed exactly once,
// so a timer firing and a poll tick racing cannot resolve twice. The claim
// loop doubles as the polling fallback when keyspace notifications are
// unavailable.
type TimerListener struct {
	rdb   *redis.Client
	tasks *TaskService
}

// NewTimerListener creates a TimerListener.
func NewTimerListener(rdb *redis.Client, tasks *TaskService) *TimerListener {
	return &TimerListener{rdb: rdb, tasks: tasks}
}

// Start begins listening for expired key events and runs the task claim
// loop as the polling fallback. Blocks until the context is cancelled.
func (t *TimerListener) Start(ctx context.Context) {
	go t.listenKeyspace(ctx)
	t.tasks.Run(ctx)
}

// listenKeyspace subscribes to Redis keyspace notifications for expired keys.
func (t *TimerListener) listenKeyspace(ctx context.Context) {
	pubsub := t.rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	defer pubsub.Close()

	log.Info().Msg("Timer listener started, listening for expired keys")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			t.handleExpiry(ctx, msg.Payload)
		}
	}
}

// handleExpiry processes an expired key. Only acts on guild timer keys.
func (t *TimerListener) handleExpiry(ctx context.Context, key string) {
	guildID, ok := redisrepo.GuildIDFromTimerKey(key)
	if !ok {
		return
	}

	log.Info().Int64("guildId", guildID).Msg("Turn timer expired, draining due tasks")
	t.tasks.Drain(ctx)
}
