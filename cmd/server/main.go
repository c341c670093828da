package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"cinescout/searchbroker/internal/abuse"
	apihttp "cinescout/searchbroker/internal/api/http"
	"cinescout/searchbroker/internal/app"
	"cinescout/searchbroker/internal/cache"
	"cinescout/searchbroker/internal/metrics"
	"cinescout/searchbroker/internal/search"
	"cinescout/searchbroker/internal/telemetry"
	"cinescout/searchbroker/internal/upstream"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "search-broker")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "search-broker"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("upstreamTimeout", cfg.UpstreamTimeout),
		slog.Duration("cacheTTL", cfg.CacheTTL),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasTMDBKey", strings.TrimSpace(cfg.TMDBAPIKey) != ""),
		slog.Bool("rateLimitDisabled", cfg.RateLimitDisabled),
	)
	if cfg.TMDBAPIKey == "" {
		logger.Error("TMDB_API_KEY is required")
		os.Exit(1)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := cache.New(buildCacheOptions(cfg, logger)...)
	store.StartSweep(rootCtx)

	client := upstream.NewClient(upstream.Config{
		APIKey:  cfg.TMDBAPIKey,
		BaseURL: cfg.TMDBBaseURL,
		Client: &http.Client{
			Timeout:   cfg.UpstreamTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Cache:  store,
		Logger: logger,
	})

	searchService := search.NewService(client, search.WithLogger(logger))

	serverOpts := []apihttp.ServerOption{apihttp.WithLogger(logger)}
	if !cfg.RateLimitDisabled {
		governor := abuse.New()
		governor.StartCleanup(rootCtx)
		serverOpts = append(serverOpts, apihttp.WithGovernor(governor))
	}

	handler := apihttp.NewServer(searchService, serverOpts...).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// The progressive delay can hold a response for several
		// seconds on top of the upstream fetch time.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("search broker started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("search broker stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildCacheOptions(cfg app.Config, logger *slog.Logger) []cache.Option {
	opts := []cache.Option{
		cache.WithTTL(cfg.CacheTTL),
		cache.WithSweepInterval(cfg.CacheSweepInterval),
	}

	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return opts
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, using in-memory cache only", slog.String("error", err.Error()))
		return opts
	}
	redisClient := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not reachable, using in-memory cache only", slog.String("error", err.Error()))
		return opts
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return append(opts, cache.WithRedis(cache.NewRedisBackend(redisClient)))
}
