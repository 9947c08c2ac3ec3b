package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/artfolio/storefront-backend/api/responses"
	"github.com/artfolio/storefront-backend/api/validators"
	"github.com/artfolio/storefront-backend/internal/users"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/artfolio/storefront-backend/pkg/logger"
)

// FavoritesStore reads and toggles favorites on the customer profile.
type FavoritesStore interface {
	FavoriteProducts(ctx context.Context, uid string) ([]users.FavoriteProduct, error)
	SetFavorite(ctx context.Context, uid string, productID uuid.UUID, favorite bool) error
}

func FavoritesList(store FavoritesStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "favorites unavailable"))
			return
		}
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		favorites, err := store.FavoriteProducts(r.Context(), identity.UID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": favorites})
	}
}

// FavoriteSet adds (favorite=true) or removes the product from favorites.
// Both directions are idempotent and answer 204.
func FavoriteSet(store FavoritesStore, favorite bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "favorites unavailable"))
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

		if err := store.SetFavorite(r.Context(), identity.UID, productID, favorite); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
