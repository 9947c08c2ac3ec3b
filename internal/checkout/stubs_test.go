package checkout

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artfolio/storefront-backend/internal/users"
	"github.com/artfolio/storefront-backend/pkg/auth"
	"github.com/artfolio/storefront-backend/pkg/config"
	"github.com/artfolio/storefront-backend/pkg/db/models"
	"github.com/artfolio/storefront-backend/pkg/enums"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/artfolio/storefront-backend/pkg/logger"
)

type stubCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
	errs     map[uuid.UUID]error
	calls    int
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{products: map[uuid.UUID]*models.Product{}, errs: map[uuid.UUID]error{}}
}

func (c *stubCatalog) GetProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if err, ok := c.errs[id]; ok {
		return nil, err
	}
	if p, ok := c.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (c *stubCatalog) add(title string, price int64, status enums.ProductStatus) uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uuid.New()
	c.products[id] = &models.Product{ID: id, Title: title, Price: decimal.NewFromInt(price), Status: status}
	return id
}

func (c *stubCatalog) setPrice(id uuid.UUID, price int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[id].Price = decimal.NewFromInt(price)
}

type stubProfiles struct {
	mu    sync.Mutex
	carts map[string][]users.CartEntry
	err   error
}

func newStubProfiles() *stubProfiles {
	return &stubProfiles{carts: map[string][]users.CartEntry{}}
}

func (p *stubProfiles) GetUserProfile(_ context.Context, uid string) (*users.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &users.Profile{UID: uid, Cart: append([]users.CartEntry{}, p.carts[uid]...), Favorites: []uuid.UUID{}}, nil
}

func (p *stubProfiles) RemoveCartItems(_ context.Context, uid string, productIDs []uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.carts[uid][:0]
	for _, entry := range p.carts[uid] {
		if !slices.Contains(productIDs, entry.ProductID) {
			kept = append(kept, entry)
		}
	}
	p.carts[uid] = kept
	return nil
}

func (p *stubProfiles) addToCart(uid string, entry users.CartEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.carts[uid] = append(p.carts[uid], entry)
}

func (p *stubProfiles) setCart(uid string, entries ...users.CartEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.carts[uid] = entries
}

func (p *stubProfiles) cartLen(uid string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.carts[uid])
}

// stubOrders fails the first failures calls, then stores orders. When gate is
// set every call blocks on it after signalling entered.
type stubOrders struct {
	mu       sync.Mutex
	failures int
	calls    int
	orders   []*models.Order
	bySess   map[uuid.UUID]uuid.UUID

	entered chan struct{}
	gate    chan struct{}
}

func newStubOrders() *stubOrders {
	return &stubOrders{bySess: map[uuid.UUID]uuid.UUID{}}
}

func (o *stubOrders) CreateOrder(_ context.Context, order *models.Order) (uuid.UUID, error) {
	if o.entered != nil {
		o.entered <- struct{}{}
	}
	if o.gate != nil {
		<-o.gate
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.failures > 0 {
		o.failures--
		return uuid.Nil, errors.New("connection reset by peer")
	}
	if id, ok := o.bySess[order.CheckoutSessionID]; ok {
		return id, nil
	}
	id := uuid.New()
	order.ID = id
	o.orders = append(o.orders, order)
	o.bySess[order.CheckoutSessionID] = id
	return id, nil
}

func (o *stubOrders) stored() []*models.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*models.Order(nil), o.orders...)
}

func (o *stubOrders) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

type stubNotifier struct {
	mu     sync.Mutex
	err    error
	panics bool
	orders []uuid.UUID
}

func (n *stubNotifier) NotifyOrderConfirmed(_ context.Context, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order.ID)
	if n.panics {
		panic("template exploded")
	}
	return n.err
}

func (n *stubNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.orders)
}

type harness struct {
	catalog  *stubCatalog
	profiles *stubProfiles
	orders   *stubOrders
	notifier *stubNotifier
	registry *Registry
	guard    *Guard
	svc      *Service
	buyer    *auth.Identity
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		SessionTTL:    30 * time.Minute,
		SweepInterval: time.Minute,
		CommitTimeout: 5 * time.Second,
		NotifyTimeout: 5 * time.Second,
		Currency:      "USD",
		OrderSource:   "web",
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logg := testLogger()
	h := &harness{
		catalog:  newStubCatalog(),
		profiles: newStubProfiles(),
		orders:   newStubOrders(),
		notifier: &stubNotifier{},
		buyer:    &auth.Identity{UID: "buyer-1", Email: "buyer@example.com"},
	}
	resolver, err := NewResolver(h.catalog, h.profiles, logg)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	h.guard, err = NewGuard(testCheckoutConfig(), h.orders, h.notifier, logg, WithCartClearer(h.profiles))
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	h.registry = NewRegistry(30*time.Minute, nil, logg)
	h.svc, err = NewService(resolver, h.registry, h.guard, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return h
}

func strPtr(v string) *string {
	return &v
}

func validDeliveryPatch() DeliveryPatch {
	return DeliveryPatch{
		FirstName: strPtr("Frida"),
		LastName:  strPtr("Kahlo"),
		Address:   strPtr("247 Londres"),
		City:      strPtr("Coyoacan"),
		State:     strPtr("CDMX"),
		ZipCode:   strPtr("04100"),
		Phone:     strPtr("+52 55 5554 5999"),
	}
}

// toPayment drives a fresh session from review to payment with valid data.
func (h *harness) toPayment(t *testing.T, id uuid.UUID) *SessionView {
	t.Helper()
	ctx := context.Background()
	if _, err := h.svc.Advance(ctx, id, h.buyer); err != nil {
		t.Fatalf("advance to shipping: %v", err)
	}
	if _, err := h.svc.UpdateDelivery(ctx, id, h.buyer, validDeliveryPatch()); err != nil {
		t.Fatalf("update delivery: %v", err)
	}
	if _, err := h.svc.Advance(ctx, id, h.buyer); err != nil {
		t.Fatalf("advance to payment: %v", err)
	}
	view, err := h.svc.UpdatePayment(ctx, id, h.buyer, PaymentPatch{Method: strPtr("online"), Notes: strPtr("  ship framed  ")})
	if err != nil {
		t.Fatalf("update payment: %v", err)
	}
	return view
}

func (h *harness) startBuyNow(t *testing.T, price int64) *SessionView {
	t.Helper()
	productID := h.catalog.add("Still Life", price, enums.ProductStatusPublished)
	view, err := h.svc.Start(context.Background(), h.buyer, enums.CheckoutModeBuyNow, &productID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return view
}
