package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artfolio/storefront-backend/pkg/enums"
)

// ProductSnapshot is the denormalized catalog data captured when a line item
// is resolved.
type ProductSnapshot struct {
	Title      string     `json:"title"`
	ImageURL   *string    `json:"image_url,omitempty"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
}

// LineItem is one product/quantity pair of a checkout session. Its price and
// snapshot are fixed at resolution time.
type LineItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Snapshot  ProductSnapshot `json:"product_snapshot"`
}

// LineTotal is unit price times quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// DeliveryInfo is captured during the shipping step.
type DeliveryInfo struct {
	FirstName               string              `json:"first_name" validate:"required,max=100"`
	LastName                string              `json:"last_name" validate:"required,max=100"`
	Address                 string              `json:"address" validate:"required,max=300"`
	City                    string              `json:"city" validate:"required,max=100"`
	State                   string              `json:"state" validate:"required,max=100"`
	ZipCode                 string              `json:"zip_code" validate:"required,max=20"`
	Phone                   string              `json:"phone" validate:"required,max=40"`
	CommunicationPreference enums.ContactMethod `json:"communication_preference,omitempty"`
	CommunicationContact    string              `json:"communication_contact,omitempty" validate:"max=200"`
}

// DeliveryPatch carries a partial delivery update. Nil fields are left as is.
type DeliveryPatch struct {
	FirstName               *string `json:"first_name"`
	LastName                *string `json:"last_name"`
	Address                 *string `json:"address"`
	City                    *string `json:"city"`
	State                   *string `json:"state"`
	ZipCode                 *string `json:"zip_code"`
	Phone                   *string `json:"phone"`
	CommunicationPreference *string `json:"communication_preference"`
	CommunicationContact    *string `json:"communication_contact"`
}

// PaymentSelection is captured during the payment step.
type PaymentSelection struct {
	Method enums.PaymentMethod `json:"method"`
	Notes  string              `json:"notes,omitempty"`
}

// PaymentPatch carries a partial payment update.
type PaymentPatch struct {
	Method *string `json:"method"`
	Notes  *string `json:"notes"`
}

// CommitView reports the commit latch of a session.
type CommitView struct {
	Status  enums.CommitStatus   `json:"status"`
	OrderID *uuid.UUID           `json:"order_id,omitempty"`
	Error   string               `json:"error,omitempty"`
	History []enums.CommitStatus `json:"history"`
}

// SessionView is the read model of a checkout session returned to clients.
type SessionView struct {
	ID             uuid.UUID          `json:"id"`
	Mode           enums.CheckoutMode `json:"mode"`
	Step           enums.CheckoutStep `json:"step"`
	Items          []LineItem         `json:"items"`
	ItemCount      int                `json:"item_count"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	Currency       enums.Currency     `json:"currency"`
	Delivery       *DeliveryInfo      `json:"delivery,omitempty"`
	Payment        *PaymentSelection  `json:"payment,omitempty"`
	Commit         CommitView         `json:"commit"`
	SelectionError string             `json:"selection_error,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// CartPreview is the customer's stored cart resolved against the catalog.
type CartPreview struct {
	Items     []LineItem      `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Currency  enums.Currency  `json:"currency"`
}
