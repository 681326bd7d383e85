package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/user-management/api"
	"github.com/angelmondragon/user-management/api/routes"
	"github.com/angelmondragon/user-management/internal/health"
	"github.com/angelmondragon/user-management/internal/users"
	"github.com/angelmondragon/user-management/pkg/config"
	"github.com/angelmondragon/user-management/pkg/db"
	"github.com/angelmondragon/user-management/pkg/env"
	"github.com/angelmondragon/user-management/pkg/instance"
	"github.com/angelmondragon/user-management/pkg/logger"
	"github.com/angelmondragon/user-management/pkg/metrics"
	"github.com/angelmondragon/user-management/pkg/redis"
)

const serviceName = "user-management-api"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"env": cfg.App.Env},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	startedAt := time.Now()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if cfg.DB.IsSQLite() {
		if err := dbClient.EnsureSQLiteSchema(ctx); err != nil {
			return err
		}
	}

	deps := routes.Dependencies{}
	var redisPinger health.Pinger
	if cfg.Redis.Enabled() {
		redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
		if redisErr != nil {
			return redisErr
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		deps.RateStore = redisClient
		redisPinger = redisClient
	}

	poolStats, err := dbClient.StatsCollector("users")
	if err != nil {
		return err
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		poolStats,
	)
	deps.HTTPMetrics = metrics.NewHTTPMetrics(registry)
	deps.Gatherer = registry

	repo := users.NewRepository(dbClient.DB(), cfg.DB.QueryTimeout)
	deps.Users, err = users.NewService(repo, logg, metrics.NewUserMetrics(registry))
	if err != nil {
		return err
	}
	deps.Health, err = health.NewService(dbClient, redisPinger, startedAt, cfg.DB.QueryTimeout, logg)
	if err != nil {
		return err
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
		"driver":   cfg.DB.Driver,
		"redis":    cfg.Redis.Enabled(),
	})
	logg.Info(logCtx, "starting api server")

	server := api.NewServer(addr, routes.NewRouter(cfg, logg, deps), cfg.App.ShutdownTimeout, logg)
	return server.Run(ctx)
}
