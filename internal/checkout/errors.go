package checkout

import pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"

// Sentinels match with errors.Is. Callers get them wrapped with context and
// details; the sentinels themselves are never mutated.
var (
	ErrEmptySelection    = pkgerrors.New(pkgerrors.CodeEmptySelection, "no purchasable items")
	ErrNotReady          = pkgerrors.New(pkgerrors.CodeNotReady, "checkout is not ready to commit")
	ErrInvalidTransition = pkgerrors.New(pkgerrors.CodeStateConflict, "invalid transition")
)

func emptySelection(msg string) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeEmptySelection, ErrEmptySelection, msg)
}

func notReady(details map[string]any) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeNotReady, ErrNotReady, "please complete all checkout steps").WithDetails(details)
}

func invalidTransition(action string, step any) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrInvalidTransition, "invalid transition").WithDetails(map[string]any{
		"action": action,
		"step":   step,
	})
}
