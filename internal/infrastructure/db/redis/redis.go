// Package redis provides the Redis-backed pieces of the accounts API:
// connection setup and the single-use OAuth state store.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Config holds the connection settings for the state store's backing
// Redis server.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a client for cfg and verifies the server answers a
// ping before handing the client out. The ping is bounded by
// pingTimeout so an unreachable server fails startup instead of
// hanging it.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
