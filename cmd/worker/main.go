package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/artfolio/storefront-backend/internal/cron"
	"github.com/artfolio/storefront-backend/internal/notifications"
	"github.com/artfolio/storefront-backend/pkg/circuitbreaker"
	"github.com/artfolio/storefront-backend/pkg/config"
	"github.com/artfolio/storefront-backend/pkg/db"
	"github.com/artfolio/storefront-backend/pkg/logger"
	"github.com/artfolio/storefront-backend/pkg/metrics"
	"github.com/artfolio/storefront-backend/pkg/outbox"
	"github.com/artfolio/storefront-backend/pkg/outbox/idempotency"
	"github.com/artfolio/storefront-backend/pkg/outbox/registry"
	"github.com/artfolio/storefront-backend/pkg/pubsub"
	"github.com/artfolio/storefront-backend/pkg/redis"
	"github.com/artfolio/storefront-backend/pkg/sendgrid"
)

const maintenanceLockKey = "storefront:lock:maintenance"

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	pubsubClient, err := pubsub.NewClient(bootCtx, cfg.GCP, cfg.PubSub, pubsub.RoleSubscriber, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, pubsubClient.Close()) }()

	reg := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(reg)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return err
	}
	claims, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return err
	}
	mailer, err := sendgrid.NewClient(cfg.Sendgrid)
	if err != nil {
		return err
	}
	breaker := circuitbreaker.New(circuitbreaker.Settings{
		Name:                "sendgrid",
		Timeout:             cfg.Sendgrid.BreakerTimeout,
		ConsecutiveFailures: cfg.Sendgrid.BreakerFailures,
	}, logg)
	sender, err := notifications.NewBreakerSender(mailer, breaker)
	if err != nil {
		return err
	}
	consumer, err := notifications.NewConsumer(pubsubClient.NotificationSubscription(), eventRegistry, claims, sender, pipelineMetrics, logg)
	if err != nil {
		return err
	}

	maintenance, err := newMaintenance(cfg, logg, dbClient, redisClient, pipelineMetrics)
	if err != nil {
		return err
	}

	service, err := NewService(ServiceParams{
		Logger: logg,
		Dependencies: map[string]pinger{
			"database": dbClient,
			"redis":    redisClient,
			"pubsub":   pubsubClient,
		},
		Consumer:    consumer,
		Maintenance: maintenance,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	logg.Info(ctx, "starting worker")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return metrics.Serve(gctx, ":"+cfg.App.Port, reg) })
	g.Go(func() error { return service.Run(gctx) })
	if runErr := g.Wait(); runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	logg.Info(ctx, "worker shutting down gracefully")
	return nil
}

func newMaintenance(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, m *metrics.PipelineMetrics) (*cron.Service, error) {
	outboxJob, err := cron.NewOutboxRetentionJob(logg, dbClient, outbox.NewRepository(dbClient.DB()), cfg.Maintenance.OutboxRetention)
	if err != nil {
		return nil, err
	}
	notificationJob, err := cron.NewNotificationRetentionJob(logg, notifications.NewRepository(dbClient.DB()), cfg.Maintenance.NotificationRetention)
	if err != nil {
		return nil, err
	}
	lock, err := cron.NewRedisLock(redisClient, maintenanceLockKey, cfg.Maintenance.LockTTL)
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(outboxJob, notificationJob),
		Lock:     lock,
		Metrics:  m,
		Interval: cfg.Maintenance.Interval,
	})
}
