package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/artfolio/storefront-backend/api/responses"
	"github.com/artfolio/storefront-backend/api/validators"
	"github.com/artfolio/storefront-backend/internal/orders"
	"github.com/artfolio/storefront-backend/pkg/db/models"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/artfolio/storefront-backend/pkg/logger"
	"github.com/artfolio/storefront-backend/pkg/pagination"
)

// OrderReader is the customer-scoped order read path.
type OrderReader interface {
	GetCustomerOrder(ctx context.Context, uid string, orderID uuid.UUID) (*models.Order, error)
	ListCustomerOrders(ctx context.Context, uid string, params pagination.Params) (pagination.Page[orders.OrderDTO], error)
}

// OrdersList returns the caller's orders, newest first.
func OrdersList(svc OrderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListCustomerOrders(r.Context(), identity.UID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// OrderDetail returns one of the caller's orders. Orders owned by someone
// else are reported as not found.
func OrderDetail(svc OrderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		order, err := svc.GetCustomerOrder(ctx, identity.UID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.FromModel(order))
	}
}
