package controllers

import (
	"context"
	"net/http"

	"github.com/artfolio/storefront-backend/api/responses"
	"github.com/artfolio/storefront-backend/api/validators"
	"github.com/artfolio/storefront-backend/internal/notifications"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/artfolio/storefront-backend/pkg/logger"
)

type inboxFunc func(ctx context.Context, uid string, r *http.Request) (any, error)

// inboxAction resolves the caller and hands their uid to fn; every inbox
// operation is scoped to the signed-in customer.
func inboxAction(svc notifications.Service, logg *logger.Logger, fn inboxFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		body, err := fn(ctx, identity.UID, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, body)
	}
}

// ListNotifications serves GET /notifications?limit=&cursor=&unread_only=.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxAction(svc, logg, func(ctx context.Context, uid string, r *http.Request) (any, error) {
		page, err := validators.ParsePage(r)
		if err != nil {
			return nil, err
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unread_only")
		if err != nil {
			return nil, err
		}
		return svc.List(ctx, notifications.ListParams{
			UserUID:    uid,
			Limit:      page.Limit,
			Cursor:     page.Cursor,
			UnreadOnly: unreadOnly,
		})
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxAction(svc, logg, func(ctx context.Context, uid string, r *http.Request) (any, error) {
		id, err := validators.ParseUUIDParam(r, "notificationId")
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(ctx, uid, id); err != nil {
			return nil, err
		}
		return map[string]any{"id": id, "read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxAction(svc, logg, func(ctx context.Context, uid string, _ *http.Request) (any, error) {
		updated, err := svc.MarkAllRead(ctx, uid)
		if err != nil {
			return nil, err
		}
		return map[string]any{"updated": updated}, nil
	})
}
