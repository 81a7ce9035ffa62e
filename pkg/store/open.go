package store

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-redis/redis/v8"

	"GoModelRouter/pkg/candidate"
)

// Config selects and configures a backend.
type Config struct {
	Driver string `mapstructure:"driver"` // file, redis, sqlite, memory
	Path   string `mapstructure:"path"`   // file or sqlite path

	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisKey      string        `mapstructure:"redis_key"`
	RedisTTL      time.Duration `mapstructure:"redis_ttl"`
}

// OpenBackend builds the backend named by cfg.Driver. The returned closer
// releases any connection the backend holds.
func OpenBackend(ctx context.Context, cfg Config) (Backend, io.Closer, error) {
	switch cfg.Driver {
	case "", "file":
		path := cfg.Path
		if path == "" {
			path = "data/models.json"
		}
		return NewFileBackend(path), nopCloser{}, nil

	case "memory":
		return NewMemoryBackend(candidate.Pool{}), nopCloser{}, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisBackend(rdb, cfg.RedisKey, cfg.RedisTTL), rdb, nil

	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "data/models.db"
		}
		b, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
