package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/artfolio/storefront-backend/api/middleware"
	"github.com/artfolio/storefront-backend/pkg/auth"
	"github.com/artfolio/storefront-backend/pkg/logger"
)

var testBuyer = auth.Identity{UID: "buyer-1", Email: "buyer@example.com"}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test", Output: io.Discard})
}

// serve mounts handler on a chi router under pattern so URL params resolve,
// and seeds the caller identity unless anonymous is set.
func serve(t *testing.T, method, pattern string, handler http.HandlerFunc, req *http.Request, anonymous bool) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Method(method, pattern, handler)
	if !anonymous {
		req = req.WithContext(middleware.WithIdentity(req.Context(), testBuyer))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return env
}
