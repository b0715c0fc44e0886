package notify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisChannel pushes notifications over Redis pub/sub. The real-time
// transport (SSE/WebSocket fan-out to browsers) subscribes to the per-user
// channel and is outside this service.
type RedisChannel struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisChannel(rdb *redis.Client, prefix string) *RedisChannel {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "notify:user:"
	}
	return &RedisChannel{rdb: rdb, prefix: prefix}
}

func (c *RedisChannel) Send(ctx context.Context, userID string, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, c.prefix+userID, payload).Err()
}
