package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/artfolio/storefront-backend/internal/users"
	"github.com/artfolio/storefront-backend/pkg/auth"
	"github.com/artfolio/storefront-backend/pkg/db/models"
	"github.com/artfolio/storefront-backend/pkg/enums"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/artfolio/storefront-backend/pkg/logger"
)

// ProductCatalog resolves catalog rows. Missing rows come back as NOT_FOUND.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// ProfileStore loads the customer's stored profile and cart.
type ProfileStore interface {
	GetUserProfile(ctx context.Context, uid string) (*users.Profile, error)
}

// Resolver materializes the line items of a checkout from either the
// customer's cart or a single product.
const catalogLookupTimeout = 5 * time.Second

type Resolver struct {
	catalog  ProductCatalog
	profiles ProfileStore
	logg     *logger.Logger
	lookups  singleflight.Group
}

// NewResolver wires the selection resolver.
func NewResolver(catalog ProductCatalog, profiles ProfileStore, logg *logger.Logger) (*Resolver, error) {
	if catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Resolver{catalog: catalog, profiles: profiles, logg: logg}, nil
}

// ResolveLineItems returns the line items for the given mode. Prices and
// product snapshots are captured now and never re-read.
func (r *Resolver) ResolveLineItems(ctx context.Context, mode enums.CheckoutMode, identity *auth.Identity, singleProductID *uuid.UUID) ([]LineItem, error) {
	switch mode {
	case enums.CheckoutModeBuyNow:
		if singleProductID == nil || *singleProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required for buy-now").WithDetails(map[string]string{
				"product_id": "is required",
			})
		}
		return r.resolveBuyNow(ctx, *singleProductID)
	case enums.CheckoutModeCart:
		if identity == nil || strings.TrimSpace(identity.UID) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to check out your cart")
		}
		return r.resolveCart(ctx, identity.UID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout mode").WithDetails(map[string]string{
			"mode": "must be cart or buy-now",
		})
	}
}

func (r *Resolver) resolveBuyNow(ctx context.Context, productID uuid.UUID) ([]LineItem, error) {
	product, err := r.lookup(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, emptySelection("product is no longer available")
	}
	return []LineItem{lineItemFor(product, 1)}, nil
}

func (r *Resolver) resolveCart(ctx context.Context, uid string) ([]LineItem, error) {
	profile, err := r.profiles.GetUserProfile(ctx, uid)
	if err != nil {
		return nil, err
	}
	if profile == nil || len(profile.Cart) == 0 {
		return nil, emptySelection("cart is empty")
	}

	items := make([]LineItem, 0, len(profile.Cart))
	positions := make(map[uuid.UUID]int, len(profile.Cart))
	for _, entry := range profile.Cart {
		if entry.Quantity < 1 {
			continue
		}
		if idx, ok := positions[entry.ProductID]; ok {
			items[idx].Quantity += entry.Quantity
			continue
		}
		product, err := r.lookup(ctx, entry.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			r.logg.Debug(r.logg.WithField(ctx, "product_id", entry.ProductID.String()), "checkout.resolve.cart_entry_dropped")
			continue
		}
		positions[entry.ProductID] = len(items)
		items = append(items, lineItemFor(product, entry.Quantity))
	}

	if len(items) == 0 {
		return nil, emptySelection("no cart items are available for purchase")
	}
	return items, nil
}

// lookup returns nil without error when the product is gone or unpublished.
// The shared catalog call runs detached from any one caller; each caller only
// stops waiting on its own context.
func (r *Resolver) lookup(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	ch := r.lookups.DoChan(productID.String(), func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogLookupTimeout)
		defer cancel()
		return r.catalog.GetProduct(lookupCtx, productID)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "load product")
	}
	v, err := res.Val, res.Err
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		return nil, err
	}
	product, _ := v.(*models.Product)
	if !product.IsPurchasable() {
		return nil, nil
	}
	// Callers may share the result; hand each one its own copy.
	cp := *product
	return &cp, nil
}

func lineItemFor(product *models.Product, quantity int) LineItem {
	return LineItem{
		ProductID: product.ID,
		Quantity:  quantity,
		UnitPrice: product.Price,
		Snapshot: ProductSnapshot{
			Title:      product.Title,
			ImageURL:   product.ImageURL,
			CategoryID: product.CategoryID,
		},
	}
}
