package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artfolio/storefront-backend/pkg/enums"
)

// OrderConfirmedEvent asks the notification worker to e-mail the order confirmation.
type OrderConfirmedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	CustomerUID   string              `json:"customer_uid"`
	CustomerEmail string              `json:"customer_email"`
	CustomerName  string              `json:"customer_name"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Currency      enums.Currency      `json:"currency"`
	ItemCount     int                 `json:"item_count"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
}
