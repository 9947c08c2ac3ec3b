package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/artfolio/storefront-backend/api/responses"
	"github.com/artfolio/storefront-backend/api/validators"
	checkoutsvc "github.com/artfolio/storefront-backend/internal/checkout"
	"github.com/artfolio/storefront-backend/pkg/auth"
	"github.com/artfolio/storefront-backend/pkg/enums"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/artfolio/storefront-backend/pkg/logger"
)

// CheckoutSessions is the checkout surface the HTTP layer drives.
type CheckoutSessions interface {
	Start(ctx context.Context, identity *auth.Identity, mode enums.CheckoutMode, productID *uuid.UUID) (*checkoutsvc.SessionView, error)
	Get(ctx context.Context, sessionID uuid.UUID, identity *auth.Identity) (*checkoutsvc.SessionView, error)
	Advance(ctx context.Context, sessionID uuid.UUID, identity *auth.Identity) (*checkoutsvc.SessionView, error)
	Retreat(ctx context.Context, sessionID uuid.UUID, identity *auth.Identity) (*checkoutsvc.SessionView, error)
	UpdateDelivery(ctx context.Context, sessionID uuid.UUID, identity *auth.Identity, patch checkoutsvc.DeliveryPatch) (*checkoutsvc.SessionView, error)
	UpdatePayment(ctx context.Context, sessionID uuid.UUID, identity *auth.Identity, patch checkoutsvc.PaymentPatch) (*checkoutsvc.SessionView, error)
}

type startCheckoutRequest struct {
	Mode      string     `json:"mode" validate:"required,oneof=cart buy-now"`
	ProductID *uuid.UUID `json:"product_id"`
}

// CheckoutStart opens a checkout session in cart or buy-now mode.
func CheckoutStart(svc CheckoutSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload startCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mode := enums.CheckoutMode(strings.TrimSpace(payload.Mode))
		view, err := svc.Start(r.Context(), identity, mode, payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// CheckoutGet returns the current view of a session.
func CheckoutGet(svc CheckoutSessions, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(svc, logg, func(ctx context.Context, id uuid.UUID, identity *auth.Identity, _ *http.Request) (*checkoutsvc.SessionView, error) {
		return svc.Get(ctx, id, identity)
	})
}

// CheckoutAdvance moves the session one step forward. From payment it
// commits the order; repeated calls after a save replay the same order.
func CheckoutAdvance(svc CheckoutSessions, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(svc, logg, func(ctx context.Context, id uuid.UUID, identity *auth.Identity, _ *http.Request) (*checkoutsvc.SessionView, error) {
		return svc.Advance(ctx, id, identity)
	})
}

// CheckoutRetreat moves the session from payment back to shipping.
func CheckoutRetreat(svc CheckoutSessions, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(svc, logg, func(ctx context.Context, id uuid.UUID, identity *auth.Identity, _ *http.Request) (*checkoutsvc.SessionView, error) {
		return svc.Retreat(ctx, id, identity)
	})
}

// CheckoutUpdateDelivery merges delivery fields into the session.
func CheckoutUpdateDelivery(svc CheckoutSessions, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(svc, logg, func(ctx context.Context, id uuid.UUID, identity *auth.Identity, r *http.Request) (*checkoutsvc.SessionView, error) {
		var patch checkoutsvc.DeliveryPatch
		if err := validators.DecodeJSONBody(r, &patch); err != nil {
			return nil, err
		}
		return svc.UpdateDelivery(ctx, id, identity, patch)
	})
}

// CheckoutUpdatePayment merges the payment selection into the session.
func CheckoutUpdatePayment(svc CheckoutSessions, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(svc, logg, func(ctx context.Context, id uuid.UUID, identity *auth.Identity, r *http.Request) (*checkoutsvc.SessionView, error) {
		var patch checkoutsvc.PaymentPatch
		if err := validators.DecodeJSONBody(r, &patch); err != nil {
			return nil, err
		}
		return svc.UpdatePayment(ctx, id, identity, patch)
	})
}

type sessionFunc func(ctx context.Context, id uuid.UUID, identity *auth.Identity, r *http.Request) (*checkoutsvc.SessionView, error)

func sessionAction(svc CheckoutSessions, logg *logger.Logger, fn sessionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSessionID(ctx, sessionID.String())
		}
		view, err := fn(ctx, sessionID, identity, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
