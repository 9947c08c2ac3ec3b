package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	lineitems "github.com/artfolio/storefront-backend/pkg/checkout"
	"github.com/artfolio/storefront-backend/pkg/config"
	"github.com/artfolio/storefront-backend/pkg/db/models"
	"github.com/artfolio/storefront-backend/pkg/enums"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/artfolio/storefront-backend/pkg/logger"
	"github.com/artfolio/storefront-backend/pkg/metrics"
	"github.com/artfolio/storefront-backend/pkg/types"
)

// OrderPersistence writes a finalized order and returns its id. It does not
// retry.
type OrderPersistence interface {
	CreateOrder(ctx context.Context, order *models.Order) (uuid.UUID, error)
}

// Notifier is told about every committed order, off the request path.
type Notifier interface {
	NotifyOrderConfirmed(ctx context.Context, order *models.Order) error
}

// CartClearer removes purchased products from a customer's stored cart after
// a cart-mode order. Entries added since the session resolved its items stay.
type CartClearer interface {
	RemoveCartItems(ctx context.Context, uid string, productIDs []uuid.UUID) error
}

// Guard persists the order of a session at most once. Concurrent commits for
// the same session join the attempt already in flight; a saved session
// replays its order id forever after.
type Guard struct {
	orders   OrderPersistence
	notifier Notifier
	carts    CartClearer
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger

	commitTimeout time.Duration
	notifyTimeout time.Duration
	currency      enums.Currency
	source        enums.OrderSource

	now func() time.Time
	wg  sync.WaitGroup
}

// GuardOption customizes a Guard.
type GuardOption func(*Guard)

// WithCartClearer drops the ordered products from the customer's cart after a
// committed cart-mode order.
func WithCartClearer(c CartClearer) GuardOption {
	return func(g *Guard) {
		g.carts = c
	}
}

// WithMetrics records commit and notification outcomes.
func WithMetrics(m *metrics.CheckoutMetrics) GuardOption {
	return func(g *Guard) {
		g.metrics = m
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) {
		g.now = now
	}
}

// NewGuard wires the commit guard.
func NewGuard(cfg config.CheckoutConfig, orders OrderPersistence, notifier Notifier, logg *logger.Logger, opts ...GuardOption) (*Guard, error) {
	if orders == nil {
		return nil, fmt.Errorf("order persistence required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	currency, err := enums.ParseCurrency(cfg.Currency)
	if err != nil {
		return nil, err
	}
	source := enums.OrderSource(strings.ToLower(strings.TrimSpace(cfg.OrderSource)))
	if !source.IsValid() {
		return nil, fmt.Errorf("invalid order source %q", cfg.OrderSource)
	}

	g := &Guard{
		orders:        orders,
		notifier:      notifier,
		logg:          logg,
		commitTimeout: cfg.CommitTimeout,
		notifyTimeout: cfg.NotifyTimeout,
		currency:      currency,
		source:        source,
		now:           time.Now,
	}
	if g.commitTimeout <= 0 {
		g.commitTimeout = 15 * time.Second
	}
	if g.notifyTimeout <= 0 {
		g.notifyTimeout = 10 * time.Second
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Currency is the single currency orders are recorded in.
func (g *Guard) Currency() enums.Currency {
	return g.currency
}

// Commit persists the session's order. A saved session returns its order id
// without touching storage. A failed attempt releases the latch so the next
// explicit call retries.
func (g *Guard) Commit(ctx context.Context, s *Session) (uuid.UUID, error) {
	logCtx := g.logg.WithSessionID(ctx, s.id.String())

	s.mu.Lock()
	switch s.commit.status {
	case enums.CommitStatusSaved:
		orderID := s.commit.orderID
		s.mu.Unlock()
		g.metrics.IncCommit(metrics.CommitReplayed)
		return orderID, nil
	case enums.CommitStatusSaving:
		call := s.commit.inflight
		s.mu.Unlock()
		g.metrics.IncCommit(metrics.CommitJoined)
		return g.join(ctx, call)
	}

	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		g.metrics.IncCommit(metrics.CommitNotReady)
		g.logg.Warn(logCtx, "checkout.commit.not_ready")
		return uuid.Nil, err
	}
	// The step is re-read under the same lock that sets the latch; a retreat
	// between Advance's step check and here must not commit from shipping.
	if s.step != enums.CheckoutStepPayment {
		step := s.step
		s.mu.Unlock()
		g.logg.Warn(g.logg.WithField(logCtx, "step", string(step)), "checkout.commit.wrong_step")
		return uuid.Nil, invalidTransition("advance", step)
	}

	order := g.assembleLocked(s)
	call := &commitCall{done: make(chan struct{})}
	s.commit.inflight = call
	s.commit.err = nil
	s.setStatusLocked(enums.CommitStatusSaving)
	s.changedLocked(g.now())
	s.mu.Unlock()

	start := time.Now()
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.commitTimeout)
	orderID, err := g.orders.CreateOrder(persistCtx, order)
	cancel()
	g.metrics.ObserveCommit(time.Since(start))

	if err != nil {
		err = persistenceError(err)
	}

	s.mu.Lock()
	if err != nil {
		s.commit.err = err
		s.setStatusLocked(enums.CommitStatusFailed)
	} else {
		s.commit.orderID = orderID
		s.setStatusLocked(enums.CommitStatusSaved)
		s.step = enums.CheckoutStepConfirmation
	}
	s.commit.inflight = nil
	s.changedLocked(g.now())
	call.orderID, call.err = orderID, err
	close(call.done)
	s.mu.Unlock()

	if err != nil {
		g.metrics.IncCommit(metrics.CommitFailed)
		g.logg.Error(logCtx, "checkout.commit.failed", err)
		return uuid.Nil, err
	}

	g.metrics.IncCommit(metrics.CommitSaved)
	g.logg.Info(g.logg.WithOrderID(logCtx, orderID.String()), "checkout.commit.saved")

	order.ID = orderID
	g.dispatch(logCtx, s, order)
	return orderID, nil
}

// Wait blocks until every background confirmation dispatch has returned.
func (g *Guard) Wait() {
	g.wg.Wait()
}

func (g *Guard) join(ctx context.Context, call *commitCall) (uuid.UUID, error) {
	if call == nil {
		return uuid.Nil, savingConflict()
	}
	select {
	case <-call.done:
		return call.orderID, call.err
	case <-ctx.Done():
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ctx.Err(), "order is still being saved")
	}
}

// dispatch runs the confirmation side effects in the background. Their
// outcome is recorded on the session and never alters the commit state.
func (g *Guard) dispatch(ctx context.Context, s *Session, order *models.Order) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.notifyTimeout)
		defer cancel()
		logCtx := g.logg.WithOrderID(notifyCtx, order.ID.String())

		err := g.notify(notifyCtx, order)
		s.recordNotification(err, g.now())
		if err != nil {
			g.metrics.IncNotification(metrics.NotifyFailed)
			g.logg.Error(logCtx, "checkout.notify.failed", err)
		} else {
			g.metrics.IncNotification(metrics.NotifySent)
			g.logg.Info(logCtx, "checkout.notify.sent")
		}

		if order.OrderType != enums.OrderTypeCart || g.carts == nil {
			return
		}
		purchased := make([]uuid.UUID, 0, len(order.Items))
		for _, item := range order.Items {
			purchased = append(purchased, item.ProductID)
		}
		if err := g.carts.RemoveCartItems(notifyCtx, order.CustomerUID, purchased); err != nil {
			g.logg.Warn(g.logg.WithField(logCtx, "error", err.Error()), "checkout.cart.clear_failed")
		}
	}()
}

func (g *Guard) notify(ctx context.Context, order *models.Order) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()
	return g.notifier.NotifyOrderConfirmed(ctx, order)
}

// readyLocked checks the commit preconditions without changing any state.
func (s *Session) readyLocked() error {
	details := map[string]any{}

	if err := lineitems.ValidateLineItems(s.lineItemInputsLocked()); err != nil {
		details["items"] = detailsOf(err)
	}
	if s.delivery == nil {
		details["delivery"] = "is required"
	} else if err := ValidateDelivery(s.delivery); err != nil {
		details["delivery"] = detailsOf(err)
	}
	if s.payment == nil || !s.payment.Method.IsValid() {
		details["payment"] = "is required"
	}

	if len(details) == 0 {
		return nil
	}
	return notReady(details)
}

// assembleLocked builds the order payload from the session.
func (g *Guard) assembleLocked(s *Session) *models.Order {
	d := s.delivery.trimmed()
	address := types.Address{
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		Line1:      d.Address,
		City:       d.City,
		State:      d.State,
		PostalCode: d.ZipCode,
		Phone:      d.Phone,
	}

	contactMethod := d.CommunicationPreference
	contactValue := d.CommunicationContact
	if contactMethod == "" {
		contactMethod = enums.ContactMethodEmail
	}
	if contactValue == "" && contactMethod == enums.ContactMethodEmail {
		contactValue = s.owner.Email
	}

	items := make([]models.OrderLineItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, models.OrderLineItem{
			ProductID:  item.ProductID,
			Title:      item.Snapshot.Title,
			ImageURL:   item.Snapshot.ImageURL,
			CategoryID: item.Snapshot.CategoryID,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			LineTotal:  item.LineTotal(),
		})
	}

	subtotal := s.subtotalLocked()
	return &models.Order{
		CheckoutSessionID: s.id,
		CustomerUID:       s.owner.UID,
		CustomerName:      address.FullName(),
		CustomerEmail:     s.owner.Email,
		CustomerPhone:     d.Phone,
		ContactMethod:     contactMethod,
		ContactValue:      optionalString(contactValue),
		Subtotal:          subtotal,
		TotalAmount:       subtotal,
		Currency:          g.currency,
		ShippingAddress:   address,
		BillingAddress:    address,
		PaymentMethod:     s.payment.Method,
		PaymentStatus:     enums.PaymentStatusPending,
		CustomerNotes:     optionalString(strings.TrimSpace(s.payment.Notes)),
		OrderStatus:       enums.OrderStatusPending,
		FulfillmentStatus: enums.FulfillmentStatusPending,
		OrderSource:       g.source,
		OrderType:         s.mode.OrderType(),
		Items:             items,
	}
}

func persistenceError(err error) error {
	if pkgerrors.IsCode(err, pkgerrors.CodePersistence) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "order could not be saved").WithDetails(map[string]any{"retry": true})
}

func detailsOf(err error) any {
	if typed := pkgerrors.As(err); typed != nil && typed.Details() != nil {
		return typed.Details()
	}
	return "is invalid"
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
