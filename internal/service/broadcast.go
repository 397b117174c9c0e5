package service

import "context"

// Broadcaster publishes turn notifications for presentation layers.
// Implemented by the redis pub/sub client.
type Broadcaster interface {
	Publish(ctx context.Context, guildID int64, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when pub/sub is
// disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) Publish(context.Context, int64, string, any) {}
