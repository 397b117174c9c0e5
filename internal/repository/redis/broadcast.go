package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

func eventsChannel(guildID int64) string {
	return fmt.Sprintf("guild:%d:events", guildID)
}

// Publish sends a notification on the guild's event channel. Presentation
// layers subscribe to pick up turn results; delivery is best-effort.
func (c *Client) Publish(ctx context.Context, guildID int64, eventType string, data any) {
	msg, err := json.Marshal(map[string]any{
		"type": eventType,
		"data": data,
	})
	if err != nil {
		log.Error().Err(err).Str("eventType", eventType).Msg("Failed to marshal broadcast")
		return
	}
	if err := c.rdb.Publish(ctx, eventsChannel(guildID), msg).Err(); err != nil {
		log.Error().Err(err).Int64("guildId", guildID).
			Str("eventType", eventType).Msg("Failed to publish broadcast")
	}
}
