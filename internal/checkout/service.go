package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artfolio/storefront-backend/pkg/auth"
	"github.com/artfolio/storefront-backend/pkg/enums"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/artfolio/storefront-backend/pkg/logger"
)

type selectionResolver interface {
	ResolveLineItems(ctx context.Context, mode enums.CheckoutMode, identity *auth.Identity, singleProductID *uuid.UUID) ([]LineItem, error)
}

type committer interface {
	Commit(ctx context.Context, s *Session) (uuid.UUID, error)
	Currency() enums.Currency
}

// Service drives checkout sessions through review, shipping, payment and
// confirmation.
type Service struct {
	resolver selectionResolver
	registry *Registry
	guard    committer
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the checkout state machine.
func NewService(resolver selectionResolver, registry *Registry, guard committer, logg *logger.Logger) (*Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("selection resolver required")
	}
	if registry == nil {
		return nil, fmt.Errorf("session registry required")
	}
	if guard == nil {
		return nil, fmt.Errorf("commit guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{resolver: resolver, registry: registry, guard: guard, logg: logg, now: time.Now}, nil
}

// Start resolves the selection and opens a session at review. An empty
// selection still opens the session; the error is carried in the view and
// returned again by Advance.
func (s *Service) Start(ctx context.Context, identity *auth.Identity, mode enums.CheckoutMode, productID *uuid.UUID) (*SessionView, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout mode").WithDetails(map[string]string{
			"mode": "must be cart or buy-now",
		})
	}

	items, err := s.resolver.ResolveLineItems(ctx, mode, identity, productID)
	var selectionErr error
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeEmptySelection) {
			return nil, err
		}
		selectionErr = err
		items = nil
	}

	session := newSession(*identity, mode, items, selectionErr, s.now())
	s.registry.Put(session)

	logCtx := s.logg.WithFields(s.logg.WithSessionID(ctx, session.id.String()), map[string]any{
		"mode":  mode.String(),
		"items": len(items),
	})
	s.logg.Info(logCtx, "checkout.session.started")

	view := session.View(s.guard.Currency())
	return &view, nil
}

// Get returns the caller's view of a session.
func (s *Service) Get(ctx context.Context, sessionID uuid.UUID, identity *auth.Identity) (*SessionView, error) {
	session, err := s.session(sessionID, identity)
	if err != nil {
		return nil, err
	}
	view := session.View(s.guard.Currency())
	return &view, nil
}

// Advance moves the session one step forward. From payment it commits the
// order; from confirmation it replays the saved result.
func (s *Service) Advance(ctx context.Context, sessionID uuid.UUID, identity *auth.Identity) (*SessionView, error) {
	session, err := s.session(sessionID, identity)
	if err != nil {
		return nil, err
	}
	commit, err := session.advance(s.now())
	if err != nil {
		return nil, err
	}
	if commit {
		if _, err := s.guard.Commit(ctx, session); err != nil {
			return nil, err
		}
	}
	view := session.View(s.guard.Currency())
	return &view, nil
}

// Retreat goes back from payment to shipping. No other backward move exists.
func (s *Service) Retreat(ctx context.Context, sessionID uuid.UUID, identity *auth.Identity) (*SessionView, error) {
	session, err := s.session(sessionID, identity)
	if err != nil {
		return nil, err
	}
	if err := session.retreat(s.now()); err != nil {
		return nil, err
	}
	view := session.View(s.guard.Currency())
	return &view, nil
}

// UpdateDelivery merges patch into the delivery details; only allowed on shipping.
func (s *Service) UpdateDelivery(ctx context.Context, sessionID uuid.UUID, identity *auth.Identity, patch DeliveryPatch) (*SessionView, error) {
	session, err := s.session(sessionID, identity)
	if err != nil {
		return nil, err
	}
	if err := session.applyDelivery(patch, s.now()); err != nil {
		return nil, err
	}
	view := session.View(s.guard.Currency())
	return &view, nil
}

// UpdatePayment merges patch into the payment details; only allowed on payment.
func (s *Service) UpdatePayment(ctx context.Context, sessionID uuid.UUID, identity *auth.Identity, patch PaymentPatch) (*SessionView, error) {
	session, err := s.session(sessionID, identity)
	if err != nil {
		return nil, err
	}
	if err := session.applyPayment(patch, s.now()); err != nil {
		return nil, err
	}
	view := session.View(s.guard.Currency())
	return &view, nil
}

// PreviewCart resolves the stored cart without opening a session. An empty
// cart is an empty preview, not an error.
func (s *Service) PreviewCart(ctx context.Context, identity *auth.Identity) (*CartPreview, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	items, err := s.resolver.ResolveLineItems(ctx, enums.CheckoutModeCart, identity, nil)
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeEmptySelection) {
		return nil, err
	}

	preview := &CartPreview{Items: []LineItem{}, Subtotal: decimal.Zero, Currency: s.guard.Currency()}
	for _, item := range items {
		preview.Items = append(preview.Items, item)
		preview.ItemCount += item.Quantity
		preview.Subtotal = preview.Subtotal.Add(item.LineTotal())
	}
	return preview, nil
}

func (s *Service) session(sessionID uuid.UUID, identity *auth.Identity) (*Session, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	session, err := s.registry.Get(sessionID, identity.UID)
	if err != nil {
		return nil, err
	}
	session.touch(s.now())
	return session, nil
}

func requireIdentity(identity *auth.Identity) error {
	if identity == nil || strings.TrimSpace(identity.UID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}
