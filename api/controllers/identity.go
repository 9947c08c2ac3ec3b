package controllers

import (
	"net/http"

	"github.com/artfolio/storefront-backend/api/middleware"
	"github.com/artfolio/storefront-backend/pkg/auth"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
)

func identityFromRequest(r *http.Request) (*auth.Identity, error) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	return identity, nil
}
