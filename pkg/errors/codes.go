package errors

import "net/http"

// Code is the stable, client-visible error identifier.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// Checkout outcomes surfaced to the buyer.
	CodeEmptySelection Code = "EMPTY_SELECTION"
	CodeNotReady       Code = "NOT_READY"
	CodePersistence    Code = "PERSISTENCE_ERROR"
)

// Metadata maps a code onto its HTTP response. PublicMessage is used
// whenever the error's own message is not safe to show.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	terminal    = false
	canRetry    = true
	hideDetails = false
	showDetails = true
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:     {http.StatusBadRequest, terminal, "validation failed", showDetails},
	CodeUnauthorized:   {http.StatusUnauthorized, terminal, "authentication required", hideDetails},
	CodeForbidden:      {http.StatusForbidden, terminal, "access denied", hideDetails},
	CodeNotFound:       {http.StatusNotFound, terminal, "resource not found", hideDetails},
	CodeConflict:       {http.StatusConflict, terminal, "conflict detected", hideDetails},
	CodeStateConflict:  {http.StatusUnprocessableEntity, terminal, "state transition disallowed", showDetails},
	CodeIdempotency:    {http.StatusConflict, terminal, "idempotency key reused", showDetails},
	CodeRateLimit:      {http.StatusTooManyRequests, terminal, "rate limit exceeded", hideDetails},
	CodeInternal:       {http.StatusInternalServerError, canRetry, "internal server error", hideDetails},
	CodeDependency:     {http.StatusServiceUnavailable, canRetry, "dependency unavailable", showDetails},
	CodeEmptySelection: {http.StatusUnprocessableEntity, terminal, "no purchasable items selected", hideDetails},
	CodeNotReady:       {http.StatusUnprocessableEntity, terminal, "please complete all checkout steps", showDetails},
	CodePersistence:    {http.StatusServiceUnavailable, canRetry, "order could not be saved, please retry", showDetails},
}

// MetadataFor treats unknown codes as internal errors.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}
