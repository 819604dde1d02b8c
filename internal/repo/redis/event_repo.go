package redis

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/relun/backend/internal/domain/errs"
)

// EventRepo publishes serialized events on a pub/sub channel.
type EventRepo struct {
	client  *goredis.Client
	channel string
}

func NewEventRepo(client *goredis.Client, channel string) *EventRepo {
	if strings.TrimSpace(channel) == "" {
		channel = "relun:events"
	}
	return &EventRepo{client: client, channel: channel}
}

func (r *EventRepo) Channel() string {
	return r.channel
}

// Publish returns the number of subscribers that received the payload.
func (r *EventRepo) Publish(ctx context.Context, payload []byte) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}

	n, err := r.client.Publish(ctx, r.channel, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("publish event: %w: %w", errs.ErrUnavailable, err)
	}
	return n, nil
}
