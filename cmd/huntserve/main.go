// Command huntserve serves the batch translate endpoint of the treasure hunt
// pages.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ZaguanLabs/huntlay"
	"github.com/ZaguanLabs/huntlay/animator"
	"github.com/ZaguanLabs/huntlay/cache"
	"github.com/ZaguanLabs/huntlay/provider"
	"github.com/ZaguanLabs/huntlay/server"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type config struct {
	addr        string
	provider    string
	apiKey      string
	model       string
	baseURL     string
	keysFile    string
	cacheKind   string
	cacheTTL    int
	cachePath   string
	redisURL    string
	snapshot    string
	staticDir   string
	clipsFile   string
	rpm         int
	context     string
	logLevel    string
	showVersion bool
}

func parseConfig(args []string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("huntserve", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg := &config{}
	envFile := fs.String("env", ".env", "Environment file to load (missing file is ignored)")
	fs.StringVar(&cfg.addr, "addr", "", "Listen address (default: :$PORT or :5000)")
	fs.StringVar(&cfg.provider, "provider", "auto", "Translation provider: auto, google, openai, gemini, passthrough, mock")
	fs.StringVar(&cfg.apiKey, "api-key", "", "Provider API key (default: from the keys file or environment)")
	fs.StringVar(&cfg.model, "model", "", "Model for the openai and gemini providers")
	fs.StringVar(&cfg.baseURL, "base-url", "", "Override the provider endpoint")
	fs.StringVar(&cfg.keysFile, "keys", "google_keys.txt", "Google keys file (JSON or KEY=VALUE lines)")
	fs.StringVar(&cfg.cacheKind, "cache", "memory", "Translation cache: memory, redis, sqlite, none")
	fs.IntVar(&cfg.cacheTTL, "cache-ttl", 7*24*3600, "Cache TTL in seconds (0 keeps entries forever)")
	fs.StringVar(&cfg.cachePath, "cache-path", "huntlay-cache.db", "SQLite cache file")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "Redis URL (default: REDIS_URL env)")
	fs.StringVar(&cfg.snapshot, "cache-snapshot", "", "Load cache entries from this file at start and save them at shutdown")
	fs.StringVar(&cfg.staticDir, "static", "", "Serve this directory under /static/")
	fs.StringVar(&cfg.clipsFile, "clips", "", "Guide clip table (YAML) served at /clips.json")
	fs.IntVar(&cfg.rpm, "rpm", 120, "Provider requests per minute")
	fs.StringVar(&cfg.context, "context", "treasure hunt riddles and game instructions", "Translation context for LLM providers")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.BoolVar(&cfg.showVersion, "version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", *envFile, err)
	}

	if cfg.addr == "" {
		cfg.addr = ":" + envOr("PORT", "5000")
	}
	if cfg.redisURL == "" {
		cfg.redisURL = envOr("REDIS_URL", "redis://localhost:6379/0")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// resolveProvider picks the provider and key: an explicit name uses its
// own key source, auto prefers Google (the keys file), then OpenAI, then
// Gemini, and serves the texts untranslated when no key is found.
func resolveProvider(cfg *config) (provider.Config, error) {
	keys, err := provider.LoadGoogleKeys(cfg.keysFile)
	if err != nil {
		return provider.Config{}, err
	}

	keyFor := func(name string) string {
		if cfg.apiKey != "" {
			return cfg.apiKey
		}
		switch name {
		case provider.NameGoogle:
			if keys.Translation != "" {
				return keys.Translation
			}
			return os.Getenv("GOOGLE_TRANSLATE_KEY")
		case provider.NameOpenAI:
			return os.Getenv("OPENAI_API_KEY")
		case provider.NameGemini:
			return envOr("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY"))
		}
		return ""
	}

	name := strings.ToLower(cfg.provider)
	if name == "auto" {
		name = provider.NamePassthrough
		for _, candidate := range []string{provider.NameGoogle, provider.NameOpenAI, provider.NameGemini} {
			if keyFor(candidate) != "" {
				name = candidate
				break
			}
		}
	}

	return provider.Config{
		Name:    name,
		APIKey:  keyFor(name),
		Model:   cfg.model,
		BaseURL: cfg.baseURL,
	}, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// buildTranslator wires provider, resilience wrappers and cache. The
// returned cleanup saves the cache snapshot and closes the cache.
func buildTranslator(ctx context.Context, cfg *config, logger *slog.Logger) (*huntlay.TextTranslator, func(), error) {
	pcfg, err := resolveProvider(cfg)
	if err != nil {
		return nil, func() {}, err
	}
	p, err := provider.New(ctx, pcfg)
	if err != nil {
		return nil, func() {}, err
	}
	logger.Info("provider selected", "provider", pcfg.Name)

	var wrapped huntlay.AIProvider = p
	switch pcfg.Name {
	case provider.NamePassthrough, provider.NameMock:
	default:
		wrapped = huntlay.NewRetryableProvider(wrapped, huntlay.DefaultRetryConfig())
		wrapped = huntlay.NewBreakerProvider(wrapped, huntlay.BreakerConfig{
			Name: pcfg.Name,
			OnChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
		wrapped = huntlay.NewRateLimitedProvider(wrapped, huntlay.RateLimitConfig{RequestsPerMinute: cfg.rpm})
	}

	c, closeCache, err := cache.Open(cache.Config{
		Kind:     cfg.cacheKind,
		TTL:      cfg.cacheTTL,
		Path:     cfg.cachePath,
		RedisURL: cfg.redisURL,
		Logger:   logger,
	})
	if err != nil {
		return nil, func() {}, err
	}

	if cfg.snapshot != "" && c != nil {
		res, err := cache.ImportFromFile(cfg.snapshot, c)
		if err != nil {
			logger.Warn("cache snapshot not loaded", "path", cfg.snapshot, "error", err)
		} else if res.Imported > 0 || res.Failed > 0 {
			logger.Info("cache snapshot loaded", "path", cfg.snapshot, "imported", res.Imported, "failed", res.Failed)
		}
	}

	cleanup := func() {
		if cfg.snapshot != "" {
			if enum, ok := c.(cache.Enumerable); ok {
				meta := map[string]string{"provider": pcfg.Name, "version": huntlay.Version}
				if err := cache.ExportToFile(cfg.snapshot, enum, meta); err != nil {
					logger.Error("cache snapshot not saved", "path", cfg.snapshot, "error", err)
				} else {
					logger.Info("cache snapshot saved", "path", cfg.snapshot)
				}
			} else if c != nil {
				logger.Warn("cache cannot be snapshotted", "cache", cfg.cacheKind)
			}
		}
		if err := closeCache(); err != nil {
			logger.Error("closing cache", "error", err)
		}
	}

	opts := []huntlay.TranslatorOption{
		huntlay.WithSourceLang(huntlay.BaseLang),
		huntlay.WithContext(cfg.context),
		huntlay.WithLogger(logger),
	}
	if c != nil {
		opts = append(opts, huntlay.WithCache(c))
	}
	return huntlay.NewTextTranslator(wrapped, opts...), cleanup, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := parseConfig(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if cfg.showVersion {
		fmt.Fprintln(stdout, huntlay.Name+"-serve "+huntlay.FullVersion())
		return nil
	}

	logger := newLogger(stderr, cfg.logLevel)
	slog.SetDefault(logger)

	translator, cleanup, err := buildTranslator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := []server.Option{server.WithLogger(logger)}
	if cfg.staticDir != "" {
		opts = append(opts, server.WithStatic(os.DirFS(cfg.staticDir)))
	}
	if cfg.clipsFile != "" {
		clips, err := animator.LoadClipTableFile(cfg.clipsFile)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithClips(clips))
	}

	ln, err := net.Listen("tcp", cfg.addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv := &http.Server{
		Handler:           server.New(translator, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}
