package orders

import (
	"time"

	"github.com/artfolio/storefront-backend/pkg/db/models"
	"github.com/artfolio/storefront-backend/pkg/enums"
	"github.com/artfolio/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemDTO is the read shape of an order line.
type LineItemDTO struct {
	ProductID  uuid.UUID       `json:"product_id"`
	Title      string          `json:"title"`
	ImageURL   *string         `json:"image_url,omitempty"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// OrderDTO is the customer-facing order representation.
type OrderDTO struct {
	ID                uuid.UUID               `json:"id"`
	CheckoutSessionID uuid.UUID               `json:"checkout_session_id"`
	CustomerName      string                  `json:"customer_name"`
	CustomerEmail     string                  `json:"customer_email"`
	CustomerPhone     string                  `json:"customer_phone"`
	ContactMethod     enums.ContactMethod     `json:"contact_method,omitempty"`
	ContactValue      *string                 `json:"contact_value,omitempty"`
	Items             []LineItemDTO           `json:"items"`
	Subtotal          decimal.Decimal         `json:"subtotal"`
	TotalAmount       decimal.Decimal         `json:"total_amount"`
	Currency          enums.Currency          `json:"currency"`
	ShippingAddress   types.Address           `json:"shipping_address"`
	BillingAddress    types.Address           `json:"billing_address"`
	PaymentMethod     enums.PaymentMethod     `json:"payment_method"`
	PaymentStatus     enums.PaymentStatus     `json:"payment_status"`
	CustomerNotes     *string                 `json:"customer_notes,omitempty"`
	OrderStatus       enums.OrderStatus       `json:"order_status"`
	FulfillmentStatus enums.FulfillmentStatus `json:"fulfillment_status"`
	OrderSource       enums.OrderSource       `json:"order_source"`
	OrderType         enums.OrderType         `json:"order_type"`
	CreatedAt         time.Time               `json:"created_at"`
}

// FromModel maps a persisted order to its DTO.
func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := make([]LineItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, LineItemDTO{
			ProductID:  item.ProductID,
			Title:      item.Title,
			ImageURL:   item.ImageURL,
			CategoryID: item.CategoryID,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			LineTotal:  item.LineTotal,
		})
	}
	return &OrderDTO{
		ID:                o.ID,
		CheckoutSessionID: o.CheckoutSessionID,
		CustomerName:      o.CustomerName,
		CustomerEmail:     o.CustomerEmail,
		CustomerPhone:     o.CustomerPhone,
		ContactMethod:     o.ContactMethod,
		ContactValue:      o.ContactValue,
		Items:             items,
		Subtotal:          o.Subtotal,
		TotalAmount:       o.TotalAmount,
		Currency:          o.Currency,
		ShippingAddress:   o.ShippingAddress,
		BillingAddress:    o.BillingAddress,
		PaymentMethod:     o.PaymentMethod,
		PaymentStatus:     o.PaymentStatus,
		CustomerNotes:     o.CustomerNotes,
		OrderStatus:       o.OrderStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		OrderSource:       o.OrderSource,
		OrderType:         o.OrderType,
		CreatedAt:         o.CreatedAt,
	}
}
