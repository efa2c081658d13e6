// The worker is the single process of the fishing stats hub: it runs the
// database migrations, the background sync rotation, the nightly achiever
// backfill, and the public HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/origins-hub/fishing-stats-hub/config"
	"github.com/origins-hub/fishing-stats-hub/internal/application/command"
	"github.com/origins-hub/fishing-stats-hub/internal/application/query"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
	"github.com/origins-hub/fishing-stats-hub/internal/infrastructure/external/habbo"
	"github.com/origins-hub/fishing-stats-hub/internal/infrastructure/messaging"
	"github.com/origins-hub/fishing-stats-hub/internal/infrastructure/persistence/postgres"
	"github.com/origins-hub/fishing-stats-hub/internal/infrastructure/persistence/redis"
	"github.com/origins-hub/fishing-stats-hub/internal/infrastructure/scheduler"
	"github.com/origins-hub/fishing-stats-hub/internal/infrastructure/scheduler/jobs"
	httpapi "github.com/origins-hub/fishing-stats-hub/internal/interface/http"
	"github.com/origins-hub/fishing-stats-hub/pkg/logger"
	"github.com/origins-hub/fishing-stats-hub/pkg/timeutil"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := setupLogger(cfg)
	slog.SetDefault(log)

	log.Info("starting fishing stats hub",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────
	db, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if err := postgres.NewMigrator(db, postgres.GetMigrations()).Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("database ready")

	rankings := postgres.NewRankingRepository(db)
	history := postgres.NewXPHistoryRepository(db)
	achievers := postgres.NewAchieverRepository(db)
	cursors := postgres.NewCursorRepository(db)

	// ─────────────────────────────────────────────────────────────────────────
	// Redis (optional; caching and recent searches degrade gracefully)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		cache            *redis.Cache
		leaderboardCache *redis.LeaderboardCache
	)
	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		cache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("redis unavailable, continuing without cache", "error", err)
			cache = nil
		} else {
			defer cache.Close()
			leaderboardCache = redis.NewLeaderboardCache(cache)
			log.Info("redis ready", "addr", redisCfg.Addr())
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Event bus
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer bus.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// Origins API client
	// ─────────────────────────────────────────────────────────────────────────
	clientCfg := habbo.DefaultClientConfig()
	clientCfg.Timeout = cfg.Habbo.RequestTimeout
	clientCfg.UserAgent = cfg.Habbo.UserAgent
	clientCfg.Logger = log
	clientCfg.Debug = cfg.App.Debug
	clientCfg.RateLimiterConfig.RequestsPerSecond = float64(cfg.Habbo.RateLimit) / 60.0
	clientCfg.RateLimiterConfig.BurstSize = cfg.Habbo.RateLimitBurst
	clientCfg.RetryConfig.MaxRetries = cfg.Habbo.MaxRetries
	clientCfg.RetryConfig.InitialBackoff = cfg.Habbo.RetryBaseDelay
	clientCfg.RetryConfig.MaxBackoff = cfg.Habbo.RetryMaxDelay
	originsClient := habbo.NewClient(clientCfg)

	// ─────────────────────────────────────────────────────────────────────────
	// Application services
	// ─────────────────────────────────────────────────────────────────────────
	var searchRecorder command.SearchRecorder
	if leaderboardCache != nil && cfg.Features.IsEnabled(config.FeatureSearchRecentList, nil) {
		searchRecorder = leaderboardCache
	}

	playerSync := command.NewPlayerSync(
		originsClient, rankings, history, achievers, searchRecorder, bus, log)

	gains := query.NewGainsCalculator(history)

	var pageCache query.PageCache
	var recentSource query.RecentSearchesSource
	if leaderboardCache != nil {
		pageCache = leaderboardCache
		if searchRecorder != nil {
			recentSource = leaderboardCache
		}
	}
	leaderboard := query.NewLeaderboard(rankings, achievers, gains, pageCache, recentSource, log)
	players := query.NewPlayerQuery(rankings, history, achievers, gains)

	// ─────────────────────────────────────────────────────────────────────────
	// Scheduler
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
			Logger:            log,
			Timezone:          timeutil.BrasiliaTZ,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
		})

		if cfg.Features.IsEnabled(config.FeatureSyncRotation, nil) {
			var invalidator jobs.CacheInvalidator
			if leaderboardCache != nil {
				invalidator = leaderboardCache
			}
			syncJob := jobs.NewSyncPlayersJob(
				playerSync, rankings, cursors, invalidator, bus, log,
				jobs.SyncPlayersConfig{
					BatchSize:           cfg.Scheduler.SyncBatchSize,
					DelayBetweenPlayers: cfg.Scheduler.SyncDelay,
					ListStaleAfter:      cfg.Scheduler.SyncListStaleAfter,
				})
			if err := sched.Register(syncJob, scheduler.NewIntervalSchedule(cfg.Scheduler.SyncInterval)); err != nil {
				return fmt.Errorf("register sync job: %w", err)
			}
		}

		if cfg.Features.IsEnabled(config.FeatureSyncBackfill, nil) {
			backfillJob := jobs.NewBackfillAchieversJob(history, achievers, bus, log)
			backfillSchedule := scheduler.NewDailySchedule(
				cfg.Scheduler.BackfillHour, cfg.Scheduler.BackfillMinute, timeutil.BrasiliaTZ)
			if err := sched.Register(backfillJob, backfillSchedule); err != nil {
				return fmt.Errorf("register backfill job: %w", err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer func() { _ = sched.Stop() }()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP API
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.EnableCORS = cfg.HTTP.EnableCORS
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverCfg.SearchRateLimitPerMinute = cfg.HTTP.SearchRateLimitPerMinute

	checkers := []httpapi.HealthChecker{postgresChecker{db}}
	if cache != nil {
		checkers = append(checkers, redisChecker{cache})
	}

	var eventSource shared.EventSubscriber
	if cfg.Features.IsEnabled(config.FeatureEventsSSE, nil) {
		eventSource = bus
	}

	server := httpapi.NewServer(serverCfg, httpapi.Dependencies{
		Leaderboard:    leaderboard,
		Players:        players,
		Searcher:       playerSync,
		Events:         eventSource,
		HealthCheckers: checkers,
		Logger: logger.New(logger.Options{
			Level:     logger.ParseLevel(cfg.Observability.LogLevel),
			AddCaller: cfg.Observability.AddCaller,
		}),
	})
	serverErr := server.StartAsync()
	log.Info("http server started", "address", server.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// Shutdown
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}

	log.Info("shutdown complete")
	return nil
}

// setupLogger builds the process-wide slog logger from the observability
// config: JSON in production, text for local runs.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.Observability.AddCaller,
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With("service", cfg.App.Name)
}

// postgresChecker adapts the database connection to the readiness endpoint.
type postgresChecker struct {
	db *postgres.Connection
}

func (c postgresChecker) Name() string                   { return "postgres" }
func (c postgresChecker) Ping(ctx context.Context) error { return c.db.Ping(ctx) }

// redisChecker adapts the cache connection to the readiness endpoint.
type redisChecker struct {
	cache *redis.Cache
}

func (c redisChecker) Name() string                   { return "redis" }
func (c redisChecker) Ping(ctx context.Context) error { return c.cache.Ping(ctx) }
