package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/artfolio/storefront-backend/api/responses"
	"github.com/artfolio/storefront-backend/api/validators"
	checkoutsvc "github.com/artfolio/storefront-backend/internal/checkout"
	"github.com/artfolio/storefront-backend/pkg/auth"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/artfolio/storefront-backend/pkg/logger"
)

// CartPreviewer resolves the customer's cart the same way checkout does.
type CartPreviewer interface {
	PreviewCart(ctx context.Context, identity *auth.Identity) (*checkoutsvc.CartPreview, error)
}

// CartWriter mutates cart entries on the customer profile.
type CartWriter interface {
	EnsureProfile(ctx context.Context, uid, email string) error
	SetCartItem(ctx context.Context, uid string, productID uuid.UUID, quantity int) error
}

type setCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=99"`
}

// CartGet returns the current cart as priced line items with a subtotal.
func CartGet(preview CartPreviewer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if preview == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := preview.PreviewCart(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// CartSetItem sets the quantity of one product in the cart. Zero removes it.
func CartSetItem(writer CartWriter, preview CartPreviewer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if writer == nil || preview == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := writer.EnsureProfile(r.Context(), identity.UID, identity.Email); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := writer.SetCartItem(r.Context(), identity.UID, productID, *payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := preview.PreviewCart(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}
