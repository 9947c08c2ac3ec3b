package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/artfolio/storefront-backend/pkg/db/models"
	"github.com/artfolio/storefront-backend/pkg/enums"
	"github.com/artfolio/storefront-backend/pkg/logger"
	"github.com/artfolio/storefront-backend/pkg/outbox"
	"github.com/artfolio/storefront-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// inAppNamespace derives stable notification ids so a repeated dispatch for
// the same order does not create a second row.
var inAppNamespace = uuid.MustParse("6f1c7f0e-3c2a-4f59-9a57-0c7e2d1b8a41")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Dispatcher records the order confirmation for the customer: an in-app
// notification plus an outbox event that the worker turns into an e-mail.
type Dispatcher struct {
	tx     txRunner
	repo   Repository
	outbox outboxEmitter
	logg   *logger.Logger
}

// NewDispatcher wires the notification dispatcher.
func NewDispatcher(tx txRunner, repo Repository, emitter outboxEmitter, logg *logger.Logger) (*Dispatcher, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Dispatcher{tx: tx, repo: repo, outbox: emitter, logg: logg}, nil
}

// NotifyOrderConfirmed is safe to call more than once per order.
func (d *Dispatcher) NotifyOrderConfirmed(ctx context.Context, order *models.Order) error {
	if order == nil || order.ID == uuid.Nil {
		return fmt.Errorf("order is required")
	}

	link := fmt.Sprintf("/orders/%s", order.ID)
	notification := &models.Notification{
		ID:      uuid.NewSHA1(inAppNamespace, []byte(string(enums.NotificationTypeOrderConfirmed)+":"+order.ID.String())),
		UserUID: order.CustomerUID,
		Type:    enums.NotificationTypeOrderConfirmed,
		Title:   "Order confirmed",
		Message: fmt.Sprintf("Order %s for %s %s was received.", ShortOrderRef(order.ID), order.TotalAmount.StringFixed(2), order.Currency),
		Link:    &link,
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderConfirmed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.Actor{UserUID: order.CustomerUID, Email: order.CustomerEmail},
		Data: payloads.OrderConfirmedEvent{
			OrderID:       order.ID,
			CustomerUID:   order.CustomerUID,
			CustomerEmail: order.CustomerEmail,
			CustomerName:  order.CustomerName,
			TotalAmount:   order.TotalAmount,
			Currency:      order.Currency,
			ItemCount:     order.ItemCount(),
			PaymentMethod: order.PaymentMethod,
		},
	}

	err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := d.repo.WithTx(tx).CreateIfAbsent(ctx, notification); err != nil {
			return fmt.Errorf("create in-app notification: %w", err)
		}
		return d.outbox.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	if d.logg != nil {
		d.logg.Info(d.logg.WithOrderID(ctx, order.ID.String()), "notifications.order_confirmed.dispatched")
	}
	return nil
}

// ShortOrderRef is the customer-facing order reference.
func ShortOrderRef(id uuid.UUID) string {
	return "#" + strings.ToUpper(id.String()[:8])
}
