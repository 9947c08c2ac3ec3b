package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artfolio/storefront-backend/api/controllers"
	"github.com/artfolio/storefront-backend/api/middleware"
	"github.com/artfolio/storefront-backend/internal/notifications"
	"github.com/artfolio/storefront-backend/pkg/config"
	"github.com/artfolio/storefront-backend/pkg/logger"
)

// checkoutAPI is satisfied by *checkout.Service.
type checkoutAPI interface {
	controllers.CheckoutSessions
	controllers.CartPreviewer
}

// profileAPI is satisfied by *users.Service.
type profileAPI interface {
	controllers.CartWriter
	controllers.FavoritesStore
}

// redisStore is the slice of *redis.Client the HTTP layer relies on.
type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient redisStore,
	gatherer prometheus.Gatherer,
	checkoutService checkoutAPI,
	profiles profileAPI,
	ordersSvc controllers.OrderReader,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	apiPolicy := middleware.NewRateLimitPolicy("api", cfg.RateLimit.Window, cfg.RateLimit.UserLimit)
	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.Window, cfg.RateLimit.CheckoutLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}, logg))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(apiPolicy, redisClient, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/v1/checkout/sessions", func(r chi.Router) {
			r.Use(middleware.RateLimit(checkoutPolicy, redisClient, logg))
			r.Post("/", controllers.CheckoutStart(checkoutService, logg))
			r.Get("/{sessionId}", controllers.CheckoutGet(checkoutService, logg))
			r.Post("/{sessionId}/advance", controllers.CheckoutAdvance(checkoutService, logg))
			r.Post("/{sessionId}/retreat", controllers.CheckoutRetreat(checkoutService, logg))
			r.Patch("/{sessionId}/delivery", controllers.CheckoutUpdateDelivery(checkoutService, logg))
			r.Patch("/{sessionId}/payment", controllers.CheckoutUpdatePayment(checkoutService, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(ordersSvc, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersSvc, logg))
		})

		r.Route("/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(checkoutService, logg))
			r.Put("/items/{productId}", controllers.CartSetItem(profiles, checkoutService, logg))
		})

		r.Route("/v1/favorites", func(r chi.Router) {
			r.Get("/", controllers.FavoritesList(profiles, logg))
			r.Put("/{productId}", controllers.FavoriteSet(profiles, true, logg))
			r.Delete("/{productId}", controllers.FavoriteSet(profiles, false, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
