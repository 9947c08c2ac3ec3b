package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/artfolio/storefront-backend/pkg/db/models"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// Catalog is the read-only product lookup used by checkout and the cart.
type Catalog struct {
	repo productReader
}

// NewCatalog builds the catalog lookup.
func NewCatalog(repo productReader) (*Catalog, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &Catalog{repo: repo}, nil
}

// GetProduct returns the product or a NOT_FOUND coded error when it does
// not exist. Any other failure is a DEPENDENCY_ERROR.
func (c *Catalog) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := c.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// GetProducts loads the products that exist among ids. Missing ids are absent
// from the result.
func (c *Catalog) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	rows, err := c.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	return rows, nil
}
