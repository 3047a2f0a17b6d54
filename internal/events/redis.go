package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"condo/internal/condominium/models"
)

// DefaultRedisChannel is the pub/sub channel events are published on.
const DefaultRedisChannel = "condo:events"

// RedisPublisher publishes events on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Publish pipelines one PUBLISH per event.
func (p *RedisPublisher) Publish(ctx context.Context, events ...models.Event) error {
	if len(events) == 0 {
		return nil
	}
	pipe := p.client.Pipeline()
	for _, e := range events {
		data, err := Encode(e)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		pipe.Publish(ctx, p.channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe calls handle for every event received until ctx is done.
// Undecodable messages are logged and skipped.
func (p *RedisPublisher) Subscribe(ctx context.Context, logger *slog.Logger, handle func(models.Event)) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			e, err := Decode([]byte(msg.Payload))
			if err != nil {
				logger.WarnContext(ctx, "skipping undecodable event", "channel", msg.Channel, "error", err)
				continue
			}
			handle(e)
		}
	}
}
