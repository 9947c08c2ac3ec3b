package middleware

import (
	"context"

	"github.com/artfolio/storefront-backend/pkg/auth"
)

type contextKey int

const (
	ctxIdentity contextKey = iota
	ctxRequestInfo
)

// requestInfo is shared by pointer so values set deep in the chain are
// visible to the access log after the handler returns.
type requestInfo struct {
	userID string
}

func withRequestInfo(ctx context.Context) (context.Context, *requestInfo) {
	info := &requestInfo{}
	return context.WithValue(ctx, ctxRequestInfo, info), info
}

func noteUser(ctx context.Context, uid string) {
	if info, ok := ctx.Value(ctxRequestInfo).(*requestInfo); ok {
		info.userID = uid
	}
}

// WithIdentity stores the authenticated customer on the context.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, identity)
}

// IdentityFromContext returns nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *auth.Identity {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxIdentity).(auth.Identity); ok && v.UID != "" {
		return &v
	}
	return nil
}

func UserIDFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.UID
	}
	return ""
}
