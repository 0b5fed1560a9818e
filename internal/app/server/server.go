package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"hsdash/internal/domain/audit"
	"hsdash/internal/domain/auth"
	"hsdash/internal/domain/core"
	"hsdash/internal/domain/ranking"
	"hsdash/internal/domain/reports"
	"hsdash/internal/platform/cache"
	"hsdash/internal/platform/config"
	"hsdash/internal/platform/db"
	"hsdash/internal/platform/jobs"
	"hsdash/internal/platform/logging"
	"hsdash/internal/platform/metrics"
	"hsdash/internal/platform/tracing"
	"hsdash/internal/transport/http/middleware"
)

const (
	shutdownTimeout       = 15 * time.Second
	rankingCacheNamespace = "hsdash:ranking:"
)

type App struct {
	Config   *config.Config
	DB       *pgxpool.Pool
	Redis    redis.UniversalClient
	Rankings *ranking.Service
	Jobs     *jobs.Service
	Tracing  *tracing.Provider
	Router   http.Handler
}

// New connects every dependency and assembles the router. The caller owns
// the returned App and must Close it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &App{Config: cfg}

	tp, err := tracing.NewProvider(ctx, tracing.Options{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.TracingEndpoint,
		Environment: cfg.Environment,
		SampleRate:  cfg.TracingSampleRate,
		Insecure:    !cfg.IsProduction(),
	})
	if err != nil {
		return nil, err
	}
	app.Tracing = tp

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.DB = pool

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			app.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}
	if cfg.RunSeed {
		tenantID, err := db.Seed(ctx, pool, db.SeedOptions{
			TenantName:    cfg.SeedTenantName,
			AdminEmail:    cfg.SeedAdminEmail,
			AdminPassword: cfg.SeedAdminPassword,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
		slog.Info("seed complete", "tenantId", tenantID)
	}

	if cfg.RedisAddr != "" {
		app.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}

	var m *metrics.Metrics
	var registry *prometheus.Registry
	if cfg.MetricsEnabled {
		m = metrics.New()
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		if err := m.Register(registry); err != nil {
			app.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	snapshotCache, err := newRankingCache(cfg, app.Redis)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Rankings = ranking.NewService(ranking.NewStore(pool),
		ranking.WithCache(snapshotCache, cfg.RankingCacheTTL),
		ranking.WithBatchSize(cfg.RankingBatchSize),
		ranking.WithMetrics(m),
	)
	app.Jobs = jobs.New(pool, app.Rankings, cfg.RankingRecomputeInterval, m)

	authService := auth.NewService(auth.NewStore(pool), cfg.JWTSecret)
	auditService := audit.New(pool)

	checks := map[string]ReadinessCheck{"database": pool.Ping}
	if app.Redis != nil {
		client := app.Redis
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	app.Router = NewRouter(Deps{
		JWTSecret:          cfg.JWTSecret,
		Production:         cfg.IsProduction(),
		FrontendDir:        cfg.FrontendDir,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Tracing:            tp.Enabled(),
		Login:              authService,
		Perms:              authService,
		Rankings:           app.Rankings,
		Recompute:          app.Jobs,
		Idempotency:        middleware.NewIdempotencyStore(pool),
		Employees:          core.NewService(core.NewStore(pool), app.Rankings),
		Reports:            reports.NewService(reports.NewStore(pool), jobs.JobRankingRecompute),
		AuditLog:           auditService,
		Auditor:            auditService,
		Metrics:            m,
		Registry:           registry,
		Checks:             checks,
	})
	return app, nil
}

// newRankingCache picks the snapshot cache backend named in the config.
func newRankingCache(cfg *config.Config, client redis.UniversalClient) (cache.Store[ranking.Snapshot], error) {
	switch cfg.RankingCacheBackend {
	case config.CacheBackendNone:
		return cache.Noop[ranking.Snapshot]{}, nil
	case config.CacheBackendRedis:
		if client == nil {
			return nil, fmt.Errorf("%w: redis cache backend requires redis_addr", config.ErrInvalidConfig)
		}
		return cache.NewRedis[ranking.Snapshot](client, rankingCacheNamespace), nil
	default:
		return cache.NewMemory[ranking.Snapshot](cfg.RankingCacheCapacity, cache.WithClone(ranking.Snapshot.Clone)), nil
	}
}

func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.Tracing != nil {
		if err := a.Tracing.Shutdown(ctx); err != nil {
			slog.Warn("tracing shutdown failed", "err", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Warn("redis close failed", "err", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// Serve starts the background jobs and the HTTP server, and blocks until ctx
// is cancelled or the listener fails.
func (a *App) Serve(ctx context.Context) error {
	a.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", a.Config.Addr, "environment", a.Config.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// Run is the process entry point used by cmd/server.
func Run() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if err := RunWithConfig(cfg); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func RunWithConfig(cfg *config.Config) error {
	if err := logging.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Serve(ctx)
}
