package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/artfolio/storefront-backend/pkg/db/models"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/google/uuid"
)

// MaxCartQuantity bounds a single cart entry.
const MaxCartQuantity = 99

type store interface {
	FindProfile(ctx context.Context, uid string) (*models.UserProfile, error)
	UpsertProfile(ctx context.Context, profile *models.UserProfile) error
	ListCartEntries(ctx context.Context, uid string) ([]models.CartEntry, error)
	SetCartQuantity(ctx context.Context, uid string, productID uuid.UUID, quantity int) error
	RemoveCartItems(ctx context.Context, uid string, productIDs []uuid.UUID) error
	ListFavorites(ctx context.Context, uid string) ([]models.Favorite, error)
	AddFavorite(ctx context.Context, uid string, productID uuid.UUID) error
	RemoveFavorite(ctx context.Context, uid string, productID uuid.UUID) error
}

// ProductLookup resolves catalog rows for cart and favorite writes.
type ProductLookup interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// Service is the profile store: profile, cart and favorites for one uid.
type Service struct {
	repo    store
	catalog ProductLookup
}

// NewService wires the profile store.
func NewService(repo store, catalog ProductLookup) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	return &Service{repo: repo, catalog: catalog}, nil
}

// GetUserProfile loads the profile with its cart and favorites. A uid with no
// stored profile yields an empty profile.
func (s *Service) GetUserProfile(ctx context.Context, uid string) (*Profile, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "uid is required")
	}
	row, err := s.repo.FindProfile(ctx, uid)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	cart, err := s.repo.ListCartEntries(ctx, uid)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	favorites, err := s.repo.ListFavorites(ctx, uid)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load favorites")
	}
	return profileFromModels(uid, row, cart, favorites), nil
}

// EnsureProfile records the identity's e-mail the first time it is seen.
func (s *Service) EnsureProfile(ctx context.Context, uid, email string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "uid is required")
	}
	if err := s.repo.UpsertProfile(ctx, &models.UserProfile{UID: uid, Email: strings.TrimSpace(email)}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save profile")
	}
	return nil
}

// SetCartItem sets the quantity for a product; zero removes it. Only
// published products can be added.
func (s *Service) SetCartItem(ctx context.Context, uid string, productID uuid.UUID, quantity int) error {
	if quantity < 0 || quantity > MaxCartQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid quantity").WithDetails(map[string]any{
			"quantity": fmt.Sprintf("must be between 0 and %d", MaxCartQuantity),
		})
	}
	if quantity > 0 {
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if !product.IsPurchasable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product is not available")
		}
	}
	if err := s.repo.SetCartQuantity(ctx, uid, productID, quantity); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart")
	}
	return nil
}

// RemoveCartItems drops the given products from the user's cart, typically
// the ones just ordered.
func (s *Service) RemoveCartItems(ctx context.Context, uid string, productIDs []uuid.UUID) error {
	if err := s.repo.RemoveCartItems(ctx, uid, productIDs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart items")
	}
	return nil
}

// SetFavorite adds or removes a favorite.
func (s *Service) SetFavorite(ctx context.Context, uid string, productID uuid.UUID, favorite bool) error {
	var err error
	if favorite {
		if _, lookupErr := s.catalog.GetProduct(ctx, productID); lookupErr != nil {
			return lookupErr
		}
		err = s.repo.AddFavorite(ctx, uid, productID)
	} else {
		err = s.repo.RemoveFavorite(ctx, uid, productID)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update favorites")
	}
	return nil
}

// FavoriteProducts returns the customer's favorites, newest first. Products deleted from the catalog are skipped; unpublished ones are
// kept and flagged unavailable.
func (s *Service) FavoriteProducts(ctx context.Context, uid string) ([]FavoriteProduct, error) {
	favorites, err := s.repo.ListFavorites(ctx, uid)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load favorites")
	}
	out := make([]FavoriteProduct, 0, len(favorites))
	if len(favorites) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, 0, len(favorites))
	for _, fav := range favorites {
		ids = append(ids, fav.ProductID)
	}
	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, fav := range favorites {
		product, ok := products[fav.ProductID]
		if !ok {
			continue
		}
		out = append(out, favoriteFromProduct(&product, fav.CreatedAt))
	}
	return out, nil
}
