package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"fpl-cache-api/internal/config"
	"fpl-cache-api/internal/timeseries"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisTier stores JSON-encoded results under <prefix>:<fingerprint>:<code>.
type RedisTier struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisTier(client redis.Cmdable, prefix string, ttl time.Duration) *RedisTier {
	return &RedisTier{client: client, prefix: prefix, ttl: ttl}
}

// OpenRedis dials the configured Redis and verifies it with PING.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*RedisTier, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return NewRedisTier(client, cfg.KeyPrefix, cfg.TTL), client, nil
}

func (t *RedisTier) Key(fingerprint string, code int) string {
	return fmt.Sprintf("%s:%s:%d", t.prefix, fingerprint, code)
}

func (t *RedisTier) Get(ctx context.Context, fingerprint string, code int) (*timeseries.Result, bool, error) {
	raw, err := t.client.Get(ctx, t.Key(fingerprint, code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var res timeseries.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false, fmt.Errorf("redis decode: %w", err)
	}
	return &res, true, nil
}

func (t *RedisTier) Set(ctx context.Context, fingerprint string, code int, res timeseries.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("redis encode: %w", err)
	}
	if err := t.client.Set(ctx, t.Key(fingerprint, code), raw, t.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
