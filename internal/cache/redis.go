package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisCache shares analysis results between processes. Backend errors are
// logged and treated as misses.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *log.Logger
}

func NewRedisCache(ctx context.Context, config RedisConfig, logger *log.Logger) (*RedisCache, error) {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "news-ai:analysis:"
	}
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: config.KeyPrefix,
		ttl:    config.TTL,
		logger: logger,
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, signature string) (Entry, bool) {
	raw, err := c.client.Get(ctx, c.prefix+signature).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logf("redis cache get failed key=%s: %v", signature, err)
		}
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logf("redis cache decode failed key=%s: %v", signature, err)
		return Entry{}, false
	}
	return entry, true
}

func (c *RedisCache) Set(ctx context.Context, signature string, entry Entry) {
	entry.CreatedAt = time.Now().UTC()
	encoded, err := json.Marshal(entry)
	if err != nil {
		c.logf("redis cache encode failed key=%s: %v", signature, err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+signature, encoded, c.ttl).Err(); err != nil {
		c.logf("redis cache set failed key=%s: %v", signature, err)
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) logf(format string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Printf(format, args...)
}
