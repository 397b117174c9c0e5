package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

func timerKey(guildID int64) string {
	return fmt.Sprintf("guild:%d:turn:timer", guildID)
}

// turnGracePeriod is the extra time after the displayed deadline before
// resolution triggers, giving players a few seconds of leeway.
const turnGracePeriod = 5 * time.Second

// SetTurnDeadline creates a timer key with a TTL. When the key expires,
// Redis keyspace notifications trigger turn resolution. The TTL includes a
// grace period so the key expires slightly after the displayed deadline.
func (c *Client) SetTurnDeadline(ctx context.Context, guildID int64, deadline time.Time) error {
	ttl := time.Until(deadline) + turnGracePeriod
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, timerKey(guildID), deadline.Unix(), ttl).Err()
}

// ClearTurnDeadline removes the timer for a guild.
func (c *Client) ClearTurnDeadline(ctx context.Context, guildID int64) error {
	return c.rdb.Del(ctx, timerKey(guildID)).Err()
}

// TurnDeadline reads the deadline stored in a guild's timer key. The
// second return is false when no timer is set.
func (c *Client) TurnDeadline(ctx context.Context, guildID int64) (time.Time, bool, error) {
	v, err := c.rdb.Get(ctx, timerKey(guildID)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get turn deadline: %w", err)
	}
	unix, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse turn deadline: %w", err)
	}
	return time.Unix(unix, 0).UTC(), true, nil
}

// GuildIDFromTimerKey extracts the guild id from an expired timer key.
// Returns false for keys that are not guild turn timers.
func GuildIDFromTimerKey(key string) (int64, bool) {
	if !strings.HasPrefix(key, "guild:") || !strings.HasSuffix(key, ":turn:timer") {
		return 0, false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, "guild:"), ":turn:timer")
	guildID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, false
	}
	return guildID, true
}
