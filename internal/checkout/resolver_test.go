package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artfolio/storefront-backend/internal/users"
	"github.com/artfolio/storefront-backend/pkg/auth"
	"github.com/artfolio/storefront-backend/pkg/db/models"
	"github.com/artfolio/storefront-backend/pkg/enums"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
)

func newTestResolver(t *testing.T) (*Resolver, *stubCatalog, *stubProfiles) {
	t.Helper()
	catalog := newStubCatalog()
	profiles := newStubProfiles()
	r, err := NewResolver(catalog, profiles, testLogger())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r, catalog, profiles
}

func TestResolveBuyNowSnapshotsCurrentPrice(t *testing.T) {
	r, catalog, _ := newTestResolver(t)
	productID := catalog.add("Blue Nude", 75, enums.ProductStatusPublished)

	items, err := r.ResolveLineItems(context.Background(), enums.CheckoutModeBuyNow, nil, &productID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	item := items[0]
	if item.ProductID != productID || item.Quantity != 1 || !item.UnitPrice.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("unexpected line item %+v", item)
	}
	if item.Snapshot.Title != "Blue Nude" {
		t.Fatalf("expected snapshot title, got %q", item.Snapshot.Title)
	}

	catalog.setPrice(productID, 500)
	if !items[0].UnitPrice.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("resolved price must not follow catalog changes")
	}
}

func TestResolveBuyNowRequiresProduct(t *testing.T) {
	r, catalog, _ := newTestResolver(t)

	_, err := r.ResolveLineItems(context.Background(), enums.CheckoutModeBuyNow, nil, nil)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	missing := uuid.New()
	_, err = r.ResolveLineItems(context.Background(), enums.CheckoutModeBuyNow, nil, &missing)
	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected empty selection for missing product, got %v", err)
	}

	draft := catalog.add("Sketch", 10, enums.ProductStatusDraft)
	_, err = r.ResolveLineItems(context.Background(), enums.CheckoutModeBuyNow, nil, &draft)
	if !pkgerrors.IsCode(err, pkgerrors.CodeEmptySelection) {
		t.Fatalf("expected empty selection for unpublished product, got %v", err)
	}
}

func TestResolveCartMergesAndDropsEntries(t *testing.T) {
	r, catalog, profiles := newTestResolver(t)
	buyer := &auth.Identity{UID: "buyer-1"}

	first := catalog.add("Print", 100, enums.ProductStatusPublished)
	second := catalog.add("Etching", 50, enums.ProductStatusPublished)
	archived := catalog.add("Old", 30, enums.ProductStatusArchived)
	profiles.setCart(buyer.UID,
		users.CartEntry{ProductID: second, Quantity: 1},
		users.CartEntry{ProductID: uuid.New(), Quantity: 1},
		users.CartEntry{ProductID: first, Quantity: 1},
		users.CartEntry{ProductID: archived, Quantity: 2},
		users.CartEntry{ProductID: second, Quantity: 1},
		users.CartEntry{ProductID: first, Quantity: 0},
	)

	items, err := r.ResolveLineItems(context.Background(), enums.CheckoutModeCart, buyer, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected two items, got %+v", items)
	}
	if items[0].ProductID != second || items[0].Quantity != 2 {
		t.Fatalf("expected merged first-seen entry, got %+v", items[0])
	}
	if items[1].ProductID != first || items[1].Quantity != 1 {
		t.Fatalf("unexpected second entry %+v", items[1])
	}
}

func TestResolveCartEmptySelection(t *testing.T) {
	r, catalog, profiles := newTestResolver(t)
	buyer := &auth.Identity{UID: "buyer-1"}

	_, err := r.ResolveLineItems(context.Background(), enums.CheckoutModeCart, buyer, nil)
	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected empty selection for empty cart, got %v", err)
	}

	gone := catalog.add("Gone", 10, enums.ProductStatusArchived)
	profiles.setCart(buyer.UID, users.CartEntry{ProductID: gone, Quantity: 1})
	_, err = r.ResolveLineItems(context.Background(), enums.CheckoutModeCart, buyer, nil)
	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected empty selection when every entry is dropped, got %v", err)
	}
}

func TestResolveCartRequiresIdentity(t *testing.T) {
	r, _, _ := newTestResolver(t)
	_, err := r.ResolveLineItems(context.Background(), enums.CheckoutModeCart, nil, nil)
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestResolveCartPropagatesCatalogOutage(t *testing.T) {
	r, catalog, profiles := newTestResolver(t)
	buyer := &auth.Identity{UID: "buyer-1"}

	ok := catalog.add("Print", 100, enums.ProductStatusPublished)
	broken := uuid.New()
	catalog.errs[broken] = errors.New("dial tcp: i/o timeout")
	profiles.setCart(buyer.UID,
		users.CartEntry{ProductID: ok, Quantity: 1},
		users.CartEntry{ProductID: broken, Quantity: 1},
	)

	_, err := r.ResolveLineItems(context.Background(), enums.CheckoutModeCart, buyer, nil)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestResolveRejectsUnknownMode(t *testing.T) {
	r, _, _ := newTestResolver(t)
	_, err := r.ResolveLineItems(context.Background(), enums.CheckoutMode("layaway"), &auth.Identity{UID: "u"}, nil)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// gatedCatalog blocks every lookup until gate closes and reports the lookup
// context's error, so a cancellation that leaks into the call is visible.
type gatedCatalog struct {
	product *models.Product
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedCatalog) GetProduct(ctx context.Context, _ uuid.UUID) (*models.Product, error) {
	g.entered <- struct{}{}
	<-g.gate
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cp := *g.product
	return &cp, nil
}

func TestResolveSharedLookupSurvivesOneCallerCancelling(t *testing.T) {
	productID := uuid.New()
	catalog := &gatedCatalog{
		product: &models.Product{ID: productID, Title: "Nocturne", Price: decimal.NewFromInt(90), Status: enums.ProductStatusPublished},
		entered: make(chan struct{}, 2),
		gate:    make(chan struct{}),
	}
	r, err := NewResolver(catalog, newStubProfiles(), testLogger())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	impatient, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.ResolveLineItems(impatient, enums.CheckoutModeBuyNow, nil, &productID)
		firstErr <- err
	}()
	<-catalog.entered

	type outcome struct {
		items []LineItem
		err   error
	}
	second := make(chan outcome, 1)
	go func() {
		items, err := r.ResolveLineItems(context.Background(), enums.CheckoutModeBuyNow, nil, &productID)
		second <- outcome{items, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller should see its own cancellation, got %v", err)
	}

	close(catalog.gate)
	got := <-second
	if got.err != nil {
		t.Fatalf("other caller must not inherit the cancellation: %v", got.err)
	}
	if len(got.items) != 1 || got.items[0].ProductID != productID {
		t.Fatalf("unexpected items %+v", got.items)
	}
}
