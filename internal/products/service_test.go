package products

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/artfolio/storefront-backend/pkg/db/models"
	"github.com/artfolio/storefront-backend/pkg/enums"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Product{}))
	return conn
}

func TestCatalogGetProduct(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	catalog, err := NewCatalog(repo)
	require.NoError(t, err)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Product{
		Title:  "Harbor at Dusk",
		Price:  decimal.RequireFromString("250.00"),
		Status: enums.ProductStatusPublished,
	})
	require.NoError(t, err)

	got, err := catalog.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Harbor at Dusk", got.Title)
	require.True(t, got.Price.Equal(decimal.RequireFromString("250")))
	require.True(t, got.IsPurchasable())

	_, err = catalog.GetProduct(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = catalog.GetProduct(ctx, uuid.Nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCatalogGetProducts(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	catalog, err := NewCatalog(repo)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := repo.Create(ctx, &models.Product{Title: "A", Price: decimal.NewFromInt(10), Status: enums.ProductStatusPublished})
	require.NoError(t, err)
	b, err := repo.Create(ctx, &models.Product{Title: "B", Price: decimal.NewFromInt(20), Status: enums.ProductStatusDraft})
	require.NoError(t, err)

	rows, err := catalog.GetProducts(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.False(t, (&models.Product{Status: rows[b.ID].Status}).IsPurchasable())
}

type failingReader struct{}

func (failingReader) FindByID(context.Context, uuid.UUID) (*models.Product, error) {
	return nil, errors.New("connection reset")
}

func (failingReader) FindByIDs(context.Context, []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	return nil, errors.New("connection reset")
}

func TestCatalogMapsInfrastructureErrorsToDependency(t *testing.T) {
	catalog, err := NewCatalog(failingReader{})
	require.NoError(t, err)

	_, err = catalog.GetProduct(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	_, err = catalog.GetProducts(context.Background(), []uuid.UUID{uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
