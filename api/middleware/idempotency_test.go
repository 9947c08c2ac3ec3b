package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
)

const advancePattern = "/api/v1/checkout/sessions/{sessionId}/advance"

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.data[key]; taken {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "mem:" + scope + ":" + id
}

// routed attaches a chi route context so the middleware sees the matched
// pattern the way it does behind the real router.
func routed(method, path, pattern, body, key string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func advanceRequest(body, key string) *http.Request {
	return routed(http.MethodPost, "/api/v1/checkout/sessions/abc/advance", advancePattern, body, key)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestRouteRuleSelection(t *testing.T) {
	cases := map[string]struct {
		method   string
		pattern  string
		ttl      time.Duration
		required bool
		matched  bool
	}{
		"start session":   {http.MethodPost, "/api/v1/checkout/sessions", defaultIdempotencyTTL, false, true},
		"advance":         {http.MethodPost, advancePattern, criticalIdempotencyTTL, true, true},
		"advance by path": {http.MethodPost, "/api/v1/checkout/sessions/4f1c/advance", criticalIdempotencyTTL, true, true},
		"retreat":         {http.MethodPost, "/api/v1/checkout/sessions/{sessionId}/retreat", defaultIdempotencyTTL, false, true},
		"delivery":        {http.MethodPatch, "/api/v1/checkout/sessions/{sessionId}/delivery", defaultIdempotencyTTL, false, true},
		"cart item":       {http.MethodPut, "/api/v1/cart/items/{productId}", defaultIdempotencyTTL, false, true},
		"read all":        {http.MethodPost, "/api/v1/notifications/read-all", defaultIdempotencyTTL, false, true},
		"get session":     {http.MethodGet, "/api/v1/checkout/sessions/{sessionId}", 0, false, false},
		"list orders":     {http.MethodGet, "/api/v1/orders", 0, false, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rule, ok := routeRule(tc.method, tc.pattern)
			require.Equal(t, tc.matched, ok)
			if ok {
				assert.Equal(t, tc.ttl, rule.ttl)
				assert.Equal(t, tc.required, rule.required)
			}
		})
	}
}

func TestRoutePatternIgnoresMountWildcard(t *testing.T) {
	req := routed(http.MethodPost, "/api/v1/checkout/sessions/abc/advance", "/api/*", "", "")
	assert.Equal(t, "/api/v1/checkout/sessions/abc/advance", routePattern(req))
}

func TestIdempotencyWithoutKeyOnOptionalRoute(t *testing.T) {
	store := newMemoryStore()
	var calls int
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for range 2 {
		rec := serve(h, routed(http.MethodPost, "/api/v1/checkout/sessions", "/api/v1/checkout/sessions", `{"mode":"cart"}`, ""))
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyRequiredKeyMissing(t *testing.T) {
	reached := false
	h := Idempotency(newMemoryStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	rec := serve(h, advanceRequest(`{}`, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, reached)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	var calls int
	h := Idempotency(newMemoryStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"step":"shipping"}`))
	}))

	first := serve(h, advanceRequest(`{}`, "adv-1"))
	require.Equal(t, http.StatusAccepted, first.Code)
	assert.Empty(t, first.Header().Get("Idempotent-Replayed"))

	again := serve(h, advanceRequest(`{}`, "adv-1"))
	require.Equal(t, http.StatusAccepted, again.Code)
	assert.Equal(t, "application/json", again.Header().Get("Content-Type"))
	assert.Equal(t, "true", again.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, `{"step":"shipping"}`, again.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotencyRejectsDifferentBodyUnderSameKey(t *testing.T) {
	h := Idempotency(newMemoryStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve(h, advanceRequest(`{}`, "adv-2"))
	rec := serve(h, advanceRequest(`{"force":true}`, "adv-2"))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	var (
		calls int
		h     http.Handler
		dup   *httptest.ResponseRecorder
	)
	mw := Idempotency(newMemoryStore(), nil)
	h = mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			dup = serve(h, advanceRequest(`{}`, "adv-3"))
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := serve(h, advanceRequest(`{}`, "adv-3"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, dup)
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, dup))
	assert.Equal(t, 1, calls)
}

func TestIdempotencyReleasesKeyAfterServerError(t *testing.T) {
	store := newMemoryStore()
	statuses := []int{http.StatusServiceUnavailable, http.StatusOK}
	var calls int
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statuses[calls])
		calls++
	}))

	for _, want := range statuses {
		rec := serve(h, advanceRequest(`{}`, "adv-4"))
		require.Equal(t, want, rec.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Len(t, store.data, 1)
}
