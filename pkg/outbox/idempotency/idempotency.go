package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/artfolio/storefront-backend/pkg/redis"
)

const (
	markerInFlight = "in_flight"
	markerDone     = "done"

	defaultClaimTTL = 5 * time.Minute
)

// Manager dedupes event handling per consumer. A claim is a short-lived
// in-flight marker; Complete upgrades it to a done marker that lives for the
// full TTL. A worker that dies mid-handler leaves only the short claim, so
// redelivery after claimTTL is processed again.
// Keys follow `sf:idempotency:evt:<consumer>:<event_id>`.
type Manager struct {
	store    redis.IdempotencyStore
	ttl      time.Duration
	claimTTL time.Duration
}

// NewManager builds a manager that keeps done markers for ttl.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	claimTTL := defaultClaimTTL
	if ttl > 0 && ttl < claimTTL {
		claimTTL = ttl
	}
	return &Manager{store: store, ttl: ttl, claimTTL: claimTTL}, nil
}

// Claim returns true when the caller owns the event and should handle it.
// false means another delivery finished it or is still working on it.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return m.store.SetNX(ctx, key, markerInFlight, m.claimTTL)
}

// Complete records the event as handled for the configured TTL.
func (m *Manager) Complete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, key, markerDone, m.ttl)
}

// Release drops the claim so a redelivery is handled again.
func (m *Manager) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// IsDone reports whether the event was completed.
func (m *Manager) IsDone(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	val, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return val == markerDone, nil
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey(fmt.Sprintf("evt:%s", consumer), eventID.String()), nil
}
