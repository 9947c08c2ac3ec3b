package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artfolio/storefront-backend/pkg/db"
	"github.com/artfolio/storefront-backend/pkg/db/models"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/artfolio/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const checkoutSessionConstraint = "ux_orders_checkout_session_id"

// sqlite reports the offending column instead of the index name.
const checkoutSessionColumn = "orders.checkout_session_id"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the order persistence client used by checkout and the order
// read path.
type Service interface {
	CreateOrder(ctx context.Context, order *models.Order) (uuid.UUID, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetCustomerOrder(ctx context.Context, uid string, orderID uuid.UUID) (*models.Order, error)
	ListCustomerOrders(ctx context.Context, uid string, params pagination.Params) (pagination.Page[OrderDTO], error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the orders service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// CreateOrder inserts the order and its line items in one transaction. A
// second insert for the same checkout session resolves to the order that is
// already stored. Every other failure is PERSISTENCE_ERROR; nothing is retried
// here.
func (s *service) CreateOrder(ctx context.Context, order *models.Order) (uuid.UUID, error) {
	if order == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if order.CheckoutSessionID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id is required")
	}
	if len(order.Items) == 0 {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no line items")
	}

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now().UTC()
	items := make([]models.OrderLineItem, len(order.Items))
	for i, item := range order.Items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		item.Position = i
		item.LineTotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		item.CreatedAt = now
		items[i] = item
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		return repo.CreateLineItems(ctx, items)
	})
	if err == nil {
		order.Items = items
		return order.ID, nil
	}

	if db.IsUniqueViolation(err, checkoutSessionConstraint) || db.IsUniqueViolation(err, checkoutSessionColumn) {
		existing, findErr := s.repo.FindByCheckoutSession(ctx, order.CheckoutSessionID)
		if findErr == nil {
			return existing.ID, nil
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodePersistence, findErr, "load existing order").WithDetails(map[string]any{"retry": true})
	}
	return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create order").WithDetails(map[string]any{"retry": true})
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// GetCustomerOrder hides orders owned by other customers behind NOT_FOUND.
func (s *service) GetCustomerOrder(ctx context.Context, uid string, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerUID != uid {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListCustomerOrders(ctx context.Context, uid string, params pagination.Params) (pagination.Page[OrderDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByCustomer(ctx, uid, cursor, params.Limit)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return pagination.Build(dtos, params.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}
