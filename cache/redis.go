package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ZaguanLabs/huntlay"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "huntlay:"

// RedisCache is a Redis-backed translation cache, shared by every instance of
// the translate service.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	timeout   time.Duration
	logger    *slog.Logger
}

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	URL       string        // Connection URL, e.g. "redis://localhost:6379/0"
	TTL       int           // TTL in seconds (0 = no expiration)
	KeyPrefix string        // Prefix for all keys (default: "huntlay:")
	Timeout   time.Duration // Per-operation timeout (default: 2s)
	Logger    *slog.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, &huntlay.CacheError{Message: "invalid redis url", Cause: err}
	}

	c := NewRedisCacheFromClient(redis.NewClient(opts), cfg.TTL, cfg.KeyPrefix)
	if cfg.Timeout > 0 {
		c.timeout = cfg.Timeout
	}
	if cfg.Logger != nil {
		c.logger = cfg.Logger
	}

	if err := c.Ping(); err != nil {
		_ = c.client.Close()
		return nil, &huntlay.CacheError{Message: "redis ping failed", Cause: err}
	}
	return c, nil
}

// NewRedisCacheFromClient creates a RedisCache from an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttlSeconds int, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = defaultRedisPrefix
	}
	var ttl time.Duration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}

	return &RedisCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
		timeout:   2 * time.Second,
		logger:    slog.Default(),
	}
}

// Get retrieves a value. Redis failures are logged and reported as misses.
func (c *RedisCache) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	val, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.logger.Warn("redis get failed", "key", key, "error", err)
		return "", false
	}
	return val, true
}

// Set stores a value, expiring after the configured TTL.
func (c *RedisCache) Set(key string, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, c.keyPrefix+key, value, c.ttl).Err(); err != nil {
		return &huntlay.CacheError{Message: "redis set failed", Cause: err}
	}
	return nil
}

// Ping tests the connection.
func (c *RedisCache) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

// Close closes the connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ TranslationCache = (*RedisCache)(nil)
