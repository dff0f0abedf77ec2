package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lol-tracker/internal/config"
	"lol-tracker/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// RedisMirror is a second tier shared between replicas. A nil mirror is valid
// and does nothing, which is what runs when REDIS_URL is unset.
type RedisMirror struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewRedisMirror(cfg *config.Config, logger zerolog.Logger) (*RedisMirror, error) {
	if cfg.RedisURL == "" {
		logger.Debug().Msg("redis mirror disabled")
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	logger.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("redis mirror enabled")
	return NewRedisMirrorWithClient(redis.NewClient(opts), logger), nil
}

func NewRedisMirrorWithClient(client *redis.Client, logger zerolog.Logger) *RedisMirror {
	return &RedisMirror{client: client, logger: logger}
}

func (m *RedisMirror) Enabled() bool {
	return m != nil
}

func (m *RedisMirror) Get(ctx context.Context, key string) (*domain.StatsSummary, bool, error) {
	if m == nil {
		return nil, false, nil
	}

	val, err := m.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read redis key: %w", err)
	}

	var summary domain.StatsSummary
	if err := json.Unmarshal(val, &summary); err != nil {
		// Unreadable entries are removed so the next fill replaces them.
		_ = m.client.Del(ctx, key).Err()
		return nil, false, fmt.Errorf("failed to decode redis summary: %w", err)
	}
	return &summary, true, nil
}

func (m *RedisMirror) Set(ctx context.Context, key string, summary *domain.StatsSummary, ttl time.Duration) error {
	if m == nil || summary == nil {
		return nil
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := m.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write redis key: %w", err)
	}
	return nil
}

func (m *RedisMirror) Delete(ctx context.Context, key string) error {
	if m == nil {
		return nil
	}
	if err := m.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete redis key: %w", err)
	}
	return nil
}

func (m *RedisMirror) Close() error {
	if m == nil {
		return nil
	}
	return m.client.Close()
}
