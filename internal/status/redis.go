package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"roleplay-insights-go/internal/types"
)

const keyPrefix = "analysis-status:"

// RedisBackend stores each status as JSON under a key that expires with the TTL.
type RedisBackend struct {
	rdb *goredis.Client
}

func NewRedisBackend(ctx context.Context, addr string) (*RedisBackend, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBackend{rdb: rdb}, nil
}

func statusKey(sessionID string) string {
	return keyPrefix + sessionID
}

func (b *RedisBackend) GetStatus(ctx context.Context, sessionID string) (types.PipelineStatus, bool, error) {
	raw, err := b.rdb.Get(ctx, statusKey(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return types.PipelineStatus{}, false, nil
	}
	if err != nil {
		return types.PipelineStatus{}, false, err
	}
	var st types.PipelineStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return types.PipelineStatus{}, false, fmt.Errorf("decode status: %w", err)
	}
	return st, true, nil
}

func (b *RedisBackend) PutStatus(ctx context.Context, st types.PipelineStatus, ttl time.Duration) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return b.rdb.Set(ctx, statusKey(st.SessionID), raw, ttl).Err()
}

func (b *RedisBackend) Close() error {
	return b.rdb.Close()
}
