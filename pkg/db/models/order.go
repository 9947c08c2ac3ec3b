package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artfolio/storefront-backend/pkg/enums"
	"github.com/artfolio/storefront-backend/pkg/types"
)

// Order is the persisted result of one committed checkout session.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	CheckoutSessionID uuid.UUID               `gorm:"column:checkout_session_id;type:uuid;not null;uniqueIndex:ux_orders_checkout_session_id"`
	CustomerUID       string                  `gorm:"column:customer_uid;not null;index"`
	CustomerName      string                  `gorm:"column:customer_name;not null"`
	CustomerEmail     string                  `gorm:"column:customer_email;not null"`
	CustomerPhone     string                  `gorm:"column:customer_phone;not null"`
	ContactMethod     enums.ContactMethod     `gorm:"column:contact_method"`
	ContactValue      *string                 `gorm:"column:contact_value"`
	Subtotal          decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TotalAmount       decimal.Decimal         `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency          enums.Currency          `gorm:"column:currency;not null"`
	ShippingAddress   types.Address           `gorm:"column:shipping_address;type:jsonb;not null"`
	BillingAddress    types.Address           `gorm:"column:billing_address;type:jsonb;not null"`
	PaymentMethod     enums.PaymentMethod     `gorm:"column:payment_method;not null"`
	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;not null"`
	CustomerNotes     *string                 `gorm:"column:customer_notes"`
	OrderStatus       enums.OrderStatus       `gorm:"column:order_status;not null"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;not null"`
	OrderSource       enums.OrderSource       `gorm:"column:order_source;not null"`
	OrderType         enums.OrderType         `gorm:"column:order_type;not null"`
	Items             []OrderLineItem         `gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// ItemCount sums quantities across line items.
func (o *Order) ItemCount() int {
	if o == nil {
		return 0
	}
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}
