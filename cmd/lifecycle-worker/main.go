package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cythro/cythrodash-core/internal/cron"
	"github.com/cythro/cythrodash-core/internal/ledger"
	"github.com/cythro/cythrodash-core/internal/lifecycle"
	"github.com/cythro/cythrodash-core/internal/servers"
	"github.com/cythro/cythrodash-core/internal/users"
	"github.com/cythro/cythrodash-core/pkg/config"
	"github.com/cythro/cythrodash-core/pkg/db"
	"github.com/cythro/cythrodash-core/pkg/logger"
	"github.com/cythro/cythrodash-core/pkg/metrics"
	"github.com/cythro/cythrodash-core/pkg/migrate"
	"github.com/cythro/cythrodash-core/pkg/pterodactyl"
	"github.com/cythro/cythrodash-core/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "lifecycle-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "lifecycle-worker"

	logg = logger.New(logger.Options{
		ServiceName: "lifecycle-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	panelClient, err := pterodactyl.NewClient(cfg.Panel.BaseURL, cfg.Panel.APIKey,
		pterodactyl.WithTimeout(cfg.Panel.Timeout))
	if err != nil {
		logg.Error(context.Background(), "failed to create panel client", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	userRepo := users.NewRepository(dbClient.DB())
	serverRepo := servers.NewRepository(dbClient.DB())
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), userRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	controller, err := lifecycle.NewController(lifecycle.Params{
		Logger:       logg,
		DB:           dbClient,
		Servers:      serverRepo,
		Ledger:       ledgerSvc,
		Panel:        panelClient,
		Metrics:      metricsCollector,
		BillingCycle: cfg.Lifecycle.BillingCycle,
		GracePeriod:  cfg.Lifecycle.GracePeriod,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create lifecycle controller", err)
		os.Exit(1)
	}

	lifecycleJob, err := cron.NewLifecycleJob(cron.LifecycleJobParams{Controller: controller})
	if err != nil {
		logg.Error(context.Background(), "failed to create lifecycle job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("lifecycle-worker"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(lifecycleJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Lifecycle.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting lifecycle worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "lifecycle worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "lifecycle worker shutting down gracefully")
}
