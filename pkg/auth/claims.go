package auth

import "github.com/golang-jwt/jwt/v5"

// Identity is the authenticated customer as seen by the storefront. The
// identity provider owns the uid; it is opaque here.
type Identity struct {
	UID   string
	Email string
}

// AccessTokenClaims represents the typed JWT presented by clients.
type AccessTokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity extracts the customer identity carried by the claims.
func (c AccessTokenClaims) Identity() Identity {
	return Identity{UID: c.UserID, Email: c.Email}
}
