package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
)

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&bad=x&big=500", nil)

	if v, err := ParseQueryInt(req, "limit", 25, 1, 100); err != nil || v != 10 {
		t.Fatalf("expected 10, got %d %v", v, err)
	}
	if v, err := ParseQueryInt(req, "missing", 25, 1, 100); err != nil || v != 25 {
		t.Fatalf("expected default, got %d %v", v, err)
	}
	if _, err := ParseQueryInt(req, "bad", 25, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ParseQueryInt(req, "big", 25, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	withParam := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("sessionId", value)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}

	if _, err := ParseUUIDParam(withParam("9b2f7c4e-1d1a-4c55-9d0e-3f7a1c2b9e10"), "sessionId"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseUUIDParam(withParam("not-a-uuid"), "sessionId"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ParseUUIDParam(withParam(""), "sessionId"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var dest struct {
		Mode string `json:"mode" validate:"required"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"mode":"cart","extra":1}`))
	if err := DecodeJSONBody(req, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	err := DecodeJSONBody(req, &dest)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error")
	}
	details, _ := typed.Details().(map[string]string)
	if details["mode"] != "is required" {
		t.Fatalf("expected json field name in details, got %#v", typed.Details())
	}
}

func TestDecodeJSONBodyRejectsTrailingAndEmpty(t *testing.T) {
	var dest struct {
		Mode string `json:"mode" validate:"required,oneof=cart buy-now"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"mode":"cart"}{"mode":"cart"}`))
	if err := DecodeJSONBody(req, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected trailing data to fail, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	if err := DecodeJSONBody(req, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected empty body to fail, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"mode":"subscription"}`))
	typed := pkgerrors.As(DecodeJSONBody(req, &dest))
	if typed == nil {
		t.Fatal("expected typed error")
	}
	details, _ := typed.Details().(map[string]string)
	if details["mode"] != "must be one of [cart buy-now]" {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
}

func TestParsePage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5", nil)
	params, err := ParsePage(req)
	if err != nil || params.Limit != 5 || params.Cursor != "" {
		t.Fatalf("unexpected params %+v err=%v", params, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/?cursor=not-a-cursor", nil)
	if _, err := ParsePage(req); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected invalid cursor to fail, got %v", err)
	}
}

func TestParseQueryBool(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?unread_only=true&bad=maybe", nil)
	if v, err := ParseQueryBool(req, "unread_only"); err != nil || !v {
		t.Fatalf("expected true, got %v %v", v, err)
	}
	if v, err := ParseQueryBool(req, "missing"); err != nil || v {
		t.Fatalf("expected false default, got %v %v", v, err)
	}
	if _, err := ParseQueryBool(req, "bad"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
