package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	checkoutsvc "github.com/artfolio/storefront-backend/internal/checkout"
	"github.com/artfolio/storefront-backend/internal/notifications"
	"github.com/artfolio/storefront-backend/internal/orders"
	"github.com/artfolio/storefront-backend/internal/users"
	"github.com/artfolio/storefront-backend/pkg/auth"
	"github.com/artfolio/storefront-backend/pkg/config"
	"github.com/artfolio/storefront-backend/pkg/db/models"
	"github.com/artfolio/storefront-backend/pkg/enums"
	"github.com/artfolio/storefront-backend/pkg/logger"
	"github.com/artfolio/storefront-backend/pkg/metrics"
	"github.com/artfolio/storefront-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	counts map[string]int64
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, counts: map[string]int64{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (f *fakeRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func (f *fakeRedis) Ping(context.Context) error {
	return nil
}

type stubCheckout struct {
	mu       sync.Mutex
	advances int
}

func (s *stubCheckout) view(id uuid.UUID, step enums.CheckoutStep) *checkoutsvc.SessionView {
	return &checkoutsvc.SessionView{ID: id, Mode: enums.CheckoutModeCart, Step: step, Subtotal: decimal.NewFromInt(200), Currency: enums.CurrencyUSD}
}

func (s *stubCheckout) Start(_ context.Context, _ *auth.Identity, _ enums.CheckoutMode, _ *uuid.UUID) (*checkoutsvc.SessionView, error) {
	return s.view(uuid.New(), enums.CheckoutStepReview), nil
}

func (s *stubCheckout) Get(_ context.Context, id uuid.UUID, _ *auth.Identity) (*checkoutsvc.SessionView, error) {
	return s.view(id, enums.CheckoutStepReview), nil
}

func (s *stubCheckout) Advance(_ context.Context, id uuid.UUID, _ *auth.Identity) (*checkoutsvc.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advances++
	return s.view(id, enums.CheckoutStepShipping), nil
}

func (s *stubCheckout) Retreat(_ context.Context, id uuid.UUID, _ *auth.Identity) (*checkoutsvc.SessionView, error) {
	return s.view(id, enums.CheckoutStepShipping), nil
}

func (s *stubCheckout) UpdateDelivery(_ context.Context, id uuid.UUID, _ *auth.Identity, _ checkoutsvc.DeliveryPatch) (*checkoutsvc.SessionView, error) {
	return s.view(id, enums.CheckoutStepShipping), nil
}

func (s *stubCheckout) UpdatePayment(_ context.Context, id uuid.UUID, _ *auth.Identity, _ checkoutsvc.PaymentPatch) (*checkoutsvc.SessionView, error) {
	return s.view(id, enums.CheckoutStepPayment), nil
}

func (s *stubCheckout) PreviewCart(context.Context, *auth.Identity) (*checkoutsvc.CartPreview, error) {
	return &checkoutsvc.CartPreview{Items: []checkoutsvc.LineItem{}, Subtotal: decimal.Zero, Currency: enums.CurrencyUSD}, nil
}

type stubProfiles struct{}

func (stubProfiles) EnsureProfile(context.Context, string, string) error {
	return nil
}

func (stubProfiles) SetCartItem(context.Context, string, uuid.UUID, int) error {
	return nil
}

func (stubProfiles) FavoriteProducts(context.Context, string) ([]users.FavoriteProduct, error) {
	return []users.FavoriteProduct{}, nil
}

func (stubProfiles) SetFavorite(context.Context, string, uuid.UUID, bool) error {
	return nil
}

type stubOrders struct{}

func (stubOrders) GetCustomerOrder(context.Context, string, uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: uuid.New()}, nil
}

func (stubOrders) ListCustomerOrders(context.Context, string, pagination.Params) (pagination.Page[orders.OrderDTO], error) {
	return pagination.Page[orders.OrderDTO]{Items: []orders.OrderDTO{}}, nil
}

type stubNotifications struct{}

func (stubNotifications) List(context.Context, notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{Items: []models.Notification{}}, nil
}

func (stubNotifications) MarkRead(context.Context, string, uuid.UUID) error {
	return nil
}

func (stubNotifications) MarkAllRead(context.Context, string) (int64, error) {
	return 0, nil
}

type routerFixture struct {
	handler  http.Handler
	checkout *stubCheckout
	redis    *fakeRedis
	token    string
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "storefront", ExpirationMinutes: 30},
		RateLimit: config.RateLimitConfig{
			Window:        time.Minute,
			UserLimit:     100,
			CheckoutLimit: 3,
		},
	}
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	reg := prometheus.NewRegistry()
	metrics.NewCheckoutMetrics(reg)

	fx := &routerFixture{checkout: &stubCheckout{}, redis: newFakeRedis()}
	fx.handler = NewRouter(cfg, logg, stubPinger{}, fx.redis, reg, fx.checkout, stubProfiles{}, stubOrders{}, stubNotifications{})

	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.Identity{UID: "buyer-1", Email: "buyer@example.com"})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	fx.token = token
	return fx
}

func (fx *routerFixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+fx.token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	fx := newRouterFixture(t)
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		fx.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	fx := newRouterFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestRoutesAreWired(t *testing.T) {
	fx := newRouterFixture(t)
	id := uuid.NewString()
	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodPost, "/api/v1/checkout/sessions", `{"mode":"cart"}`, http.StatusCreated},
		{http.MethodGet, "/api/v1/checkout/sessions/" + id, "", http.StatusOK},
		{http.MethodPatch, "/api/v1/checkout/sessions/" + id + "/delivery", `{"city":"Oaxaca"}`, http.StatusOK},
		{http.MethodGet, "/api/v1/orders", "", http.StatusOK},
		{http.MethodGet, "/api/v1/orders/" + id, "", http.StatusOK},
		{http.MethodGet, "/api/v1/cart", "", http.StatusOK},
		{http.MethodPut, "/api/v1/cart/items/" + id, `{"quantity":2}`, http.StatusOK},
		{http.MethodGet, "/api/v1/favorites", "", http.StatusOK},
		{http.MethodPut, "/api/v1/favorites/" + id, "", http.StatusNoContent},
		{http.MethodDelete, "/api/v1/favorites/" + id, "", http.StatusNoContent},
		{http.MethodGet, "/api/v1/notifications", "", http.StatusOK},
		{http.MethodPost, "/api/v1/notifications/" + id + "/read", "", http.StatusOK},
		{http.MethodPost, "/api/v1/notifications/read-all", "", http.StatusOK},
	}
	for _, tc := range cases {
		rec := fx.do(tc.method, tc.path, tc.body, nil)
		if rec.Code != tc.want {
			t.Fatalf("%s %s: expected %d got %d: %s", tc.method, tc.path, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestAdvanceRequiresIdempotencyKeyAndReplays(t *testing.T) {
	fx := newRouterFixture(t)
	path := "/api/v1/checkout/sessions/" + uuid.NewString() + "/advance"

	rec := fx.do(http.MethodPost, path, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key, got %d", rec.Code)
	}

	first := fx.do(http.MethodPost, path, "", map[string]string{"Idempotency-Key": "advance-1"})
	second := fx.do(http.MethodPost, path, "", map[string]string{"Idempotency-Key": "advance-1"})
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected 200s, got %d and %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replay body differs")
	}
	if fx.checkout.advances != 1 {
		t.Fatalf("expected one advance to reach the service, got %d", fx.checkout.advances)
	}
}

func TestCheckoutRoutesHaveTighterRateLimit(t *testing.T) {
	fx := newRouterFixture(t)
	path := "/api/v1/checkout/sessions/" + uuid.NewString()
	for i := 0; i < 3; i++ {
		if rec := fx.do(http.MethodGet, path, "", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, rec.Code)
		}
	}
	if rec := fx.do(http.MethodGet, path, "", nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
	if rec := fx.do(http.MethodGet, "/api/v1/cart", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("other routes keep their own budget, got %d", rec.Code)
	}
}
