package cache

import (
	"fmt"
	"log/slog"
	"strings"
)

// Config selects and configures a cache backend.
type Config struct {
	Kind     string // "memory", "redis", "sqlite" or "none"
	TTL      int    // seconds, 0 keeps entries forever
	Path     string // sqlite database file
	RedisURL string
	Logger   *slog.Logger
}

// Open creates the cache cfg names. The returned close function is never nil.
// Kind "none" yields a nil cache.
func Open(cfg Config) (TranslationCache, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(cfg.Kind) {
	case "", "memory":
		return NewInMemoryCache(cfg.TTL), noop, nil
	case "none":
		return nil, noop, nil
	case "redis":
		c, err := NewRedisCache(RedisConfig{URL: cfg.RedisURL, TTL: cfg.TTL, Logger: cfg.Logger})
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, noop, fmt.Errorf("sqlite cache needs a path")
		}
		c, err := OpenSQLiteCache(cfg.Path, cfg.TTL)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown cache %q", cfg.Kind)
	}
}
