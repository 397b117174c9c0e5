package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/arvenwood/campaign/engine/internal/model"
	"github.com/arvenwood/campaign/engine/internal/repository"
	"github.com/arvenwood/campaign/engine/pkg/wargame"
)

// Task names dispatched by the claim loop.
const (
	TaskResolveTurn = "resolve_turn"
)

// TurnResolver is the slice of TurnService the task loop needs.
type TurnResolver interface {
	ResolveTurn(ctx context.Context, guildID int64) ([]wargame.Event, error)
}

// TaskService drains the scheduled task queue. Tasks are claimed one at a
// time with the skip-locked select, so any number of workers can share a
// queue. The database row is the durable record; the Redis timer is the
// fast path that fires resolution at the deadline instead of waiting for
// the next poll tick.
type TaskService struct {
	tasks        repository.TaskRepository
	turns        TurnResolver
	timers       repository.TimerCache
	pollInterval time.Duration
}

// NewTaskService creates a TaskService. A nil timer cache disables the
// Redis fast path (the poll loop still picks tasks up). A non-positive
// poll interval defaults to five seconds.
func NewTaskService(tasks repository.TaskRepository, turns TurnResolver, timers repository.TimerCache, pollInterval time.Duration) *TaskService {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &TaskService{tasks: tasks, turns: turns, timers: timers, pollInterval: pollInterval}
}

// ScheduleResolve queues a turn resolution for a guild at the given time
// and arms the guild's deadline timer.
func (s *TaskService) ScheduleResolve(ctx context.Context, guildID int64, at time.Time) error {
	param := strconv.FormatInt(guildID, 10)
	t := &model.ScheduledTask{
		TaskID:        uuid.NewString(),
		Task:          TaskResolveTurn,
		Parameter:     &param,
		ScheduledTime: at.UTC(),
		GuildID:       guildID,
	}
	if err := s.tasks.Schedule(ctx, t); err != nil {
		return fmt.Errorf("schedule resolve: %w", err)
	}
	s.armTimer(ctx, guildID, t.ScheduledTime)
	log.Info().Int64("guildId", guildID).Time("at", t.ScheduledTime).
		Str("taskId", t.TaskID).Msg("Turn resolution scheduled")
	return nil
}

// RecoverTimers re-arms the Redis deadline timer for every pending
// resolution task. Run at worker startup: timers armed before a restart
// are gone, but their task rows survive.
func (s *TaskService) RecoverTimers(ctx context.Context) error {
	if s.timers == nil {
		return nil
	}
	pending, err := s.tasks.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("recover timers: %w", err)
	}
	recovered := 0
	for _, t := range pending {
		if t.Task != TaskResolveTurn {
			continue
		}
		s.armTimer(ctx, t.GuildID, t.ScheduledTime)
		recovered++
	}
	log.Info().Int("timers", recovered).Msg("Recovered turn timers")
	return nil
}

func (s *TaskService) armTimer(ctx context.Context, guildID int64, at time.Time) {
	if s.timers == nil {
		return
	}
	if err := s.timers.SetTurnDeadline(ctx, guildID, at); err != nil {
		log.Warn().Err(err).Int64("guildId", guildID).Msg("Failed to arm turn timer")
	}
}

// Run polls the queue until the context is cancelled. Each tick drains
// every due task before sleeping again.
func (s *TaskService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.pollInterval).Msg("Task claim loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Task claim loop stopped")
			return
		case <-ticker.C:
			s.Drain(ctx)
		}
	}
}

// Drain claims and runs due tasks until the queue is empty.
func (s *TaskService) Drain(ctx context.Context) {
	for {
		worked, err := s.RunOnce(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Task claim failed")
			return
		}
		if !worked {
			return
		}
	}
}

// RunOnce claims and dispatches a single due task. Returns false when
// nothing was due.
func (s *TaskService) RunOnce(ctx context.Context) (bool, error) {
	task, err := s.tasks.ClaimNext(ctx)
	if err != nil {
		return false, fmt.Errorf("claim task: %w", err)
	}
	if task == nil {
		return false, nil
	}
	s.dispatch(ctx, task)
	return true, nil
}

// dispatch runs one claimed task. The row is already deleted, so failures
// are logged rather than retried; the poll fallback reschedules resolution
// work if it is still needed.
func (s *TaskService) dispatch(ctx context.Context, task *model.ScheduledTask) {
	switch task.Task {
	case TaskResolveTurn:
		guildID := task.GuildID
		if task.Parameter != nil {
			if id, err := strconv.ParseInt(*task.Parameter, 10, 64); err == nil {
				guildID = id
			}
		}
		log.Info().Int64("guildId", guildID).Str("taskId", task.TaskID).Msg("Claimed turn resolution task")
		if _, err := s.turns.ResolveTurn(ctx, guildID); err != nil {
			log.Error().Err(err).Int64("guildId", guildID).
				Str("taskId", task.TaskID).Msg("Turn resolution task failed")
		}
	default:
		log.Warn().Str("task", task.Task).Str("taskId", task.TaskID).Msg("Unknown task type, dropping")
	}
}
