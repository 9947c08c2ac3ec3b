package enums

import "slices"

// PaymentMethod is the customer's chosen settlement route. Settlement itself
// happens offline after the order is placed.
type PaymentMethod string

const (
	PaymentMethodCrypto PaymentMethod = "crypto"
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodMixed  PaymentMethod = "mixed"
)

var paymentMethods = []PaymentMethod{PaymentMethodCrypto, PaymentMethodOnline, PaymentMethodMixed}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool {
	return slices.Contains(paymentMethods, p)
}

// ParsePaymentMethod is case-insensitive and ignores surrounding blanks.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parseValue(value, paymentMethods, "payment method")
}

// PaymentStatus tracks settlement of an order's payment. Orders are created
// pending; the later states are written by back-office tooling.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var paymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool {
	return slices.Contains(paymentStatuses, p)
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parseValue(value, paymentStatuses, "payment status")
}
