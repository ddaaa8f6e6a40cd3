package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spiresync/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisTracker stores snapshots as JSON strings with a native key TTL.
type RedisTracker struct {
	client *redis.Client
}

// NewRedisTracker connects using a redis:// URL and pings the server.
func NewRedisTracker(ctx context.Context, redisURL string) (*RedisTracker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 3 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTracker{client: client}, nil
}

func (r *RedisTracker) Set(ctx context.Context, run models.SyncRun, ttl time.Duration) error {
	stamp(&run, time.Now(), ttl)

	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	return r.client.Set(ctx, Key(run.RunKey), payload, run.ExpiresAt.Sub(run.UpdatedAt)).Err()
}

func (r *RedisTracker) Get(ctx context.Context, runKey string) (*models.SyncRun, error) {
	payload, err := r.client.Get(ctx, Key(runKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var run models.SyncRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return &run, nil
}

func (r *RedisTracker) Close() error {
	return r.client.Close()
}
