package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/artfolio/storefront-backend/api/responses"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/artfolio/storefront-backend/pkg/logger"
)

type windowCounter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy is a named request budget per fixed window. A zero window
// or limit disables it.
type RateLimitPolicy struct {
	name   string
	window time.Duration
	limit  int64
}

func NewRateLimitPolicy(name string, window time.Duration, limit int) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "api"
	}
	return RateLimitPolicy{name: name, window: window, limit: int64(limit)}
}

func (p RateLimitPolicy) disabled() bool {
	return p.window <= 0 || p.limit <= 0
}

// subject buckets authenticated traffic by customer and everything else by
// client address.
func (p RateLimitPolicy) subject(r *http.Request) (scope, kind string) {
	if uid := UserIDFromContext(r.Context()); uid != "" {
		return p.name + ":user:" + uid, "user"
	}
	return p.name + ":ip:" + clientIP(r), "ip"
}

// RateLimit rejects requests beyond the policy budget with RATE_LIMIT_EXCEEDED
// and a Retry-After hint. Counter failures fail closed.
func RateLimit(policy RateLimitPolicy, counter windowCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if policy.disabled() || counter == nil {
			return next
		}
		retryAfter := strconv.Itoa(int(policy.window.Seconds()))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			scope, kind := policy.subject(r)

			allowed, seen, err := counter.FixedWindowAllow(ctx, scope, policy.limit, policy.window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			if logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{
					"policy":   policy.name,
					"bucket":   kind,
					"attempts": seen,
					"limit":    policy.limit,
				}), "api.rate_limit.blocked")
			}
			w.Header().Set("Retry-After", retryAfter)
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
