package checkout

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
)

// LineItemInput describes the data required to verify a line item can be ordered.
type LineItemInput struct {
	ProductID uuid.UUID
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineItemViolation exposes the data returned to callers when a validation fails.
type LineItemViolation struct {
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title,omitempty"`
	Reason    string    `json:"reason"`
}

// ValidateLineItems ensures every line item carries a positive quantity and a
// non-negative unit price. An empty list is reported as NOT_READY as well.
func ValidateLineItems(items []LineItemInput) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeNotReady, "order has no line items").WithDetails(map[string]any{
			"items": "is required",
		})
	}

	var violations []LineItemViolation
	for _, item := range items {
		switch {
		case item.ProductID == uuid.Nil:
			violations = append(violations, LineItemViolation{Title: item.Title, Reason: "missing product id"})
		case item.Quantity < 1:
			violations = append(violations, LineItemViolation{ProductID: item.ProductID, Title: item.Title, Reason: "quantity must be at least 1"})
		case item.UnitPrice.IsNegative():
			violations = append(violations, LineItemViolation{ProductID: item.ProductID, Title: item.Title, Reason: "unit price must not be negative"})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotReady, fmt.Sprintf("%d line item(s) cannot be ordered", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}

// Subtotal sums unit price times quantity across the items.
func Subtotal(items []LineItemInput) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
