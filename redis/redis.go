package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect opens a client against addr and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Claimer hands out one-time claims on keys, so that work triggered from
// several replicas (or overlapping cron windows) runs once.
type Claimer struct {
	client *redis.Client
	prefix string
}

func NewClaimer(client *redis.Client, prefix string) *Claimer {
	return &Claimer{client: client, prefix: prefix}
}

// Claim returns true only for the first caller of key within ttl.
func (c *Claimer) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, c.prefix+key, time.Now().Unix(), ttl).Result()
}
