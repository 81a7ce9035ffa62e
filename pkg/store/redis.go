package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"GoModelRouter/pkg/candidate"
)

// DefaultRedisKey is the key the pool is stored under when none is configured.
const DefaultRedisKey = "router:pool"

// RedisBackend stores the pool as one JSON value in Redis.
type RedisBackend struct {
	Client *redis.Client

	Key string        // e.g. "router:pool"
	TTL time.Duration // 0 keeps the pool forever
}

// NewRedisBackend is the constructor.
func NewRedisBackend(rdb *redis.Client, key string, ttl time.Duration) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{Client: rdb, Key: key, TTL: ttl}
}

// Load fetches the pool. A missing key is an empty pool.
func (r *RedisBackend) Load(ctx context.Context) (candidate.Pool, error) {
	data, err := r.Client.Get(ctx, r.Key).Bytes()
	if err == redis.Nil {
		return candidate.Pool{}, nil
	}
	if err != nil {
		return candidate.Pool{}, fmt.Errorf("redis get %s: %w", r.Key, err)
	}

	var pool candidate.Pool
	if err := json.Unmarshal(data, &pool); err != nil {
		return candidate.Pool{}, fmt.Errorf("decode pool from redis: %w", err)
	}
	return pool, nil
}

// Save overwrites the pool value, refreshing its TTL.
func (r *RedisBackend) Save(ctx context.Context, pool candidate.Pool) error {
	data, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("encode pool: %w", err)
	}
	if err := r.Client.Set(ctx, r.Key, data, r.TTL).Err(); err != nil {
		return fmt.Errorf("redis save %s: %w", r.Key, err)
	}
	return nil
}
