// Command server starts the CV assistant HTTP server.
package main

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
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/cv-assistant/internal/adapter/events"
	"github.com/fairyhunter13/cv-assistant/internal/adapter/events/redpanda"
	httpserver "github.com/fairyhunter13/cv-assistant/internal/adapter/httpserver"
	"github.com/fairyhunter13/cv-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/cv-assistant/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/cv-assistant/internal/app"
	"github.com/fairyhunter13/cv-assistant/internal/config"
	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var infra app.Infra

	// Redis backs shared sessions and the shared turn limiter.
	var rdb *redis.Client
	if cfg.UseRedisSessions() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("op=main.redis: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("op=main.redis_ping: %w", err)
		}
		infra.Redis = rdb
	}

	var pool *pgxpool.Pool
	if cfg.DBURL != "" {
		pool, err = postgres.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("op=main.db: %w", err)
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("op=main.db_schema: %w", err)
		}
		infra.DB = pool
	} else {
		slog.Info("DB_URL not set; generated documents kept in memory")
	}

	var publisher domain.EventPublisher = events.Noop{}
	if cfg.EventsEnabled() {
		pub, err := redpanda.NewPublisher(ctx, cfg.KafkaBrokers, cfg.EventsTopic)
		if err != nil {
			return fmt.Errorf("op=main.events: %w", err)
		}
		defer pub.Close()
		publisher = pub
	}
	infra.Events = publisher

	svcs, err := app.BuildServices(cfg, infra)
	if err != nil {
		return err
	}

	var dbPinger app.Pinger
	if pool != nil {
		dbPinger = pool
	}
	var redisPinger app.RedisPinger
	if rdb != nil {
		redisPinger = rdb
	}
	dbCheck, redisCheck := app.BuildReadinessChecks(dbPinger, redisPinger)

	srv := httpserver.NewServer(cfg, svcs.Chat, svcs.Documents, svcs.Sessions, dbCheck, redisCheck)
	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.BuildRouter(cfg, srv),
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if svcs.Janitor != nil {
		g.Go(func() error {
			svcs.Janitor.RunJanitor(gctx, cfg.SessionSweepInterval)
			return nil
		})
	}
	g.Go(func() error {
		app.ReportActiveSessions(gctx, svcs.Store, 30*time.Second)
		return nil
	})
	if pool != nil && cfg.DocumentRetention > 0 {
		cleanup := postgres.NewCleanupService(pool, cfg.DocumentRetention)
		g.Go(func() error {
			cleanup.RunPeriodic(gctx, cfg.DocumentCleanupInterval)
			return nil
		})
		slog.Info("document cleanup started",
			slog.Duration("retention", cfg.DocumentRetention),
			slog.Duration("interval", cfg.DocumentCleanupInterval))
	}
	g.Go(func() error {
		slog.Info("http server starting",
			slog.Int("port", cfg.Port),
			slog.String("session_backend", cfg.SessionBackend),
			slog.Bool("search_enabled", cfg.SearchEnabled),
			slog.Bool("events_enabled", cfg.EventsEnabled()),
			slog.Bool("admin_enabled", cfg.AdminEnabled()))
		if err := srvHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("op=main.http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
		defer cancel()
		return srvHTTP.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
