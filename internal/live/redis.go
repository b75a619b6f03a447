package live

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBroadcaster publishes envelopes to a redis channel so every service
// instance can relay them to its own websocket clients.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
}

// NewRedisBroadcaster returns a broadcaster for the given channel.
func NewRedisBroadcaster(client *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, channel: channel}
}

func (b *RedisBroadcaster) Emit(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// RunRedisRelay subscribes to channel and forwards every frame to the hub until
// ctx is cancelled.
func RunRedisRelay(ctx context.Context, client *redis.Client, channel string, hub *Hub, logger *zap.Logger) {
	pubsub := client.Subscribe(ctx, channel)
	defer pubsub.Close()

	logger.Info("live relay subscribed", zap.String("channel", channel))

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := hub.BroadcastRaw(ctx, []byte(msg.Payload)); err != nil {
				logger.Warn("live relay dropped frame", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("live relay stopped", zap.String("channel", channel))
			return
		}
	}
}
