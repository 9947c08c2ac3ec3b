package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/artfolio/storefront-backend/pkg/logger"
)

// Settings tunes a Breaker. Zero values fall back to gobreaker defaults
// except ConsecutiveFailures, which defaults to 5.
type Settings struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// Breaker guards calls to a flaky downstream. Errors that carry a
// non-retryable code do not count as failures.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func New(settings Settings, logg *logger.Logger) *Breaker {
	threshold := settings.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	st := gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			typed := pkgerrors.As(err)
			return typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logg == nil {
				return
			}
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "circuitbreaker.state_changed")
		},
	}

	return &Breaker{name: settings.Name, cb: gobreaker.NewCircuitBreaker[struct{}](st)}
}

// Do runs fn unless the breaker is open. A rejected call returns a
// DEPENDENCY_ERROR wrapping gobreaker's sentinel.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, b.name+" circuit open")
	}
	return err
}

// State reports the breaker state as closed, half-open or open.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// IsOpen reports whether err came from a rejected call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
