package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/arvenwood/campaign/engine/internal/repository"
	"github.com/arvenwood/campaign/engine/pkg/wargame"
)

// ErrGuildNotFound is returned when a resolution is requested for an
// unknown guild.
var ErrGuildNotFound = errors.New("guild not found")

// TurnService orchestrates turn resolution: snapshot load, engine run,
// atomic persistence and the post-commit broadcast.
type TurnService struct {
	store       repository.WorldStore
	timers      repository.TimerCache
	broadcaster Broadcaster
	engine      *wargame.Engine

	// guildLocks prevents concurrent resolution for the same guild. Both
	// the keyspace listener and the task poller can fire simultaneously;
	// the store's turn CAS would reject the loser anyway, but the lock
	// avoids burning a full engine run on a snapshot that cannot commit.
	guildLocks sync.Map
}

// NewTurnService creates a TurnService.
func NewTurnService(store repository.WorldStore, timers repository.TimerCache, broadcaster Broadcaster) *TurnService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &TurnService{
		store:       store,
		timers:      timers,
		broadcaster: broadcaster,
		engine:      wargame.NewEngine(),
	}
}

// ResolveTurn resolves the guild's next turn and returns the event stream.
// The engine runs against an in-memory snapshot; nothing is written unless
// the whole resolution commits, and a failed commit leaves the turn
// counter untouched.
func (s *TurnService) ResolveTurn(ctx context.Context, guildID int64) ([]wargame.Event, error) {
	lockAny, _ := s.guildLocks.LoadOrStore(guildID, &sync.Mutex{})
	lock := lockAny.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	w, err := s.store.LoadWorld(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}
	if w == nil {
		return nil, ErrGuildNotFound
	}
	turn := w.ResolvingTurn()

	events, err := s.engine.ResolveTurn(w)
	if err != nil {
		s.broadcaster.Publish(ctx, guildID, "turn_failed", map[string]any{
			"guild_id": guildID, "turn": turn,
		})
		return nil, fmt.Errorf("resolve turn: %w", err)
	}

	if err := s.store.SaveResolution(ctx, w, events); err != nil {
		if !errors.Is(err, repository.ErrTurnConflict) {
			s.broadcaster.Publish(ctx, guildID, "turn_failed", map[string]any{
				"guild_id": guildID, "turn": turn,
			})
		}
		return nil, fmt.Errorf("save resolution: %w", err)
	}

	if s.timers != nil {
		if err := s.timers.ClearTurnDeadline(ctx, guildID); err != nil {
			log.Warn().Err(err).Int64("guildId", guildID).Msg("Failed to clear turn timer")
		}
	}

	log.Info().Int64("guildId", guildID).Int("turn", turn).
		Int("events", len(events)).Msg("Turn committed")
	s.broadcaster.Publish(ctx, guildID, "turn_resolved", map[string]any{
		"guild_id": guildID, "turn": turn, "event_count": len(events),
	})
	return events, nil
}
