package checkout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artfolio/storefront-backend/pkg/enums"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/artfolio/storefront-backend/pkg/logger"
	"github.com/artfolio/storefront-backend/pkg/metrics"
)

// Registry holds the live checkout sessions of this process. Lock order is
// registry before session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	ttl     time.Duration
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
}

// NewRegistry builds an empty registry. Sessions idle longer than ttl are
// removed by Sweep.
func NewRegistry(ttl time.Duration, m *metrics.CheckoutMetrics, logg *logger.Logger) *Registry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Registry{
		sessions: map[uuid.UUID]*Session{},
		ttl:      ttl,
		metrics:  m,
		logg:     logg,
	}
}

// Put stores s under its id, replacing any session with the same id.
func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	r.sessions[s.id] = s
	n := len(r.sessions)
	r.mu.Unlock()
	r.metrics.SetActiveSessions(n)
}

// Get returns the session when it exists and belongs to uid. Sessions owned
// by someone else are reported as missing.
func (r *Registry) Get(id uuid.UUID, uid string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok || strings.TrimSpace(uid) == "" || s.owner.UID != uid {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	return s, nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions idle past the ttl and returns how many were removed.
// A session with a commit in flight is always kept.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	removed := 0
	for id, s := range r.sessions {
		s.mu.Lock()
		expired := s.commit.status != enums.CommitStatusSaving && now.Sub(s.lastSeen) > r.ttl
		s.mu.Unlock()
		if expired {
			delete(r.sessions, id)
			removed++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetActiveSessions(n)
	return removed
}

// RunSweeper sweeps every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := r.Sweep(now); removed > 0 && r.logg != nil {
				r.logg.Debug(r.logg.WithField(ctx, "removed", removed), "checkout.sessions.swept")
			}
		}
	}
}
