package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"

	"github.com/artfolio/storefront-backend/api/routes"
	"github.com/artfolio/storefront-backend/internal/checkout"
	"github.com/artfolio/storefront-backend/internal/notifications"
	"github.com/artfolio/storefront-backend/internal/orders"
	"github.com/artfolio/storefront-backend/internal/products"
	"github.com/artfolio/storefront-backend/internal/users"
	"github.com/artfolio/storefront-backend/pkg/config"
	"github.com/artfolio/storefront-backend/pkg/db"
	"github.com/artfolio/storefront-backend/pkg/logger"
	"github.com/artfolio/storefront-backend/pkg/metrics"
	"github.com/artfolio/storefront-backend/pkg/migrate"
	"github.com/artfolio/storefront-backend/pkg/outbox"
	"github.com/artfolio/storefront-backend/pkg/redis"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
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

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(reg)

	catalog, err := products.NewCatalog(products.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}
	profiles, err := users.NewService(users.NewRepository(dbClient.DB()), catalog)
	if err != nil {
		return err
	}
	orderService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		return err
	}

	notificationRepo := notifications.NewRepository(dbClient.DB())
	notificationService, err := notifications.NewService(notificationRepo)
	if err != nil {
		return err
	}
	dispatcher, err := notifications.NewDispatcher(dbClient, notificationRepo, outbox.NewService(outbox.NewRepository(dbClient.DB()), logg), logg)
	if err != nil {
		return err
	}

	resolver, err := checkout.NewResolver(catalog, profiles, logg)
	if err != nil {
		return err
	}
	guard, err := checkout.NewGuard(cfg.Checkout, orderService, dispatcher, logg,
		checkout.WithCartClearer(profiles),
		checkout.WithMetrics(checkoutMetrics),
	)
	if err != nil {
		return err
	}
	// Confirmation dispatches run detached from requests; let them drain.
	defer guard.Wait()

	sessions := checkout.NewRegistry(cfg.Checkout.SessionTTL, checkoutMetrics, logg)
	checkoutService, err := checkout.NewService(resolver, sessions, guard, logg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	go sessions.RunSweeper(ctx, cfg.Checkout.SweepInterval)

	router := routes.NewRouter(cfg, logg, dbClient, redisClient, reg, checkoutService, profiles, orderService, notificationService)
	server := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "storefront-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
