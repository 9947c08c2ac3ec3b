package enums

import "fmt"

// CheckoutMode selects how the line items of a checkout session are resolved.
type CheckoutMode string

const (
	CheckoutModeCart   CheckoutMode = "cart"
	CheckoutModeBuyNow CheckoutMode = "buy-now"
)

var validCheckoutModes = []CheckoutMode{
	CheckoutModeCart,
	CheckoutModeBuyNow,
}

func (m CheckoutMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known CheckoutMode.
func (m CheckoutMode) IsValid() bool {
	for _, candidate := range validCheckoutModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseCheckoutMode converts raw input into a CheckoutMode.
func ParseCheckoutMode(value string) (CheckoutMode, error) {
	for _, candidate := range validCheckoutModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout mode %q", value)
}

// OrderType maps the checkout mode onto the persisted order type.
func (m CheckoutMode) OrderType() OrderType {
	if m == CheckoutModeBuyNow {
		return OrderTypeBuyNow
	}
	return OrderTypeCart
}

// CheckoutStep is a position in the linear checkout flow.
type CheckoutStep string

const (
	CheckoutStepReview       CheckoutStep = "review"
	CheckoutStepShipping     CheckoutStep = "shipping"
	CheckoutStepPayment      CheckoutStep = "payment"
	CheckoutStepConfirmation CheckoutStep = "confirmation"
)

var checkoutStepOrder = []CheckoutStep{
	CheckoutStepReview,
	CheckoutStepShipping,
	CheckoutStepPayment,
	CheckoutStepConfirmation,
}

func (s CheckoutStep) IsValid() bool {
	return s.Index() >= 0
}

// Index returns the position of the step in the flow, or -1.
func (s CheckoutStep) Index() int {
	for i, candidate := range checkoutStepOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// CommitStatus is the order commit latch state of a checkout session.
type CommitStatus string

const (
	CommitStatusIdle   CommitStatus = "idle"
	CommitStatusSaving CommitStatus = "saving"
	CommitStatusSaved  CommitStatus = "saved"
	CommitStatusFailed CommitStatus = "failed"
)

func (s CommitStatus) IsValid() bool {
	switch s {
	case CommitStatusIdle, CommitStatusSaving, CommitStatusSaved, CommitStatusFailed:
		return true
	}
	return false
}

// ContactMethod is the customer's preferred channel for order follow-up.
type ContactMethod string

const (
	ContactMethodEmail    ContactMethod = "email"
	ContactMethodPhone    ContactMethod = "phone"
	ContactMethodWhatsApp ContactMethod = "whatsapp"
	ContactMethodTelegram ContactMethod = "telegram"
)

var validContactMethods = []ContactMethod{
	ContactMethodEmail,
	ContactMethodPhone,
	ContactMethodWhatsApp,
	ContactMethodTelegram,
}

func (c ContactMethod) IsValid() bool {
	for _, candidate := range validContactMethods {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContactMethod converts raw input into a ContactMethod.
func ParseContactMethod(value string) (ContactMethod, error) {
	for _, candidate := range validContactMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contact method %q", value)
}
