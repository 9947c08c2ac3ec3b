package checkout

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// trimmed returns a copy of the delivery info with surrounding whitespace
// removed from every free-text field.
func (d DeliveryInfo) trimmed() DeliveryInfo {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Address = strings.TrimSpace(d.Address)
	d.City = strings.TrimSpace(d.City)
	d.State = strings.TrimSpace(d.State)
	d.ZipCode = strings.TrimSpace(d.ZipCode)
	d.Phone = strings.TrimSpace(d.Phone)
	d.CommunicationContact = strings.TrimSpace(d.CommunicationContact)
	return d
}

// ValidateDelivery checks the required delivery fields. A nil delivery
// reports every required field. Field details use JSON names.
func ValidateDelivery(d *DeliveryInfo) error {
	var candidate DeliveryInfo
	if d != nil {
		candidate = d.trimmed()
	}
	if err := validate.Struct(candidate); err != nil {
		return deliveryValidationError(err)
	}
	return nil
}

func deliveryValidationError(err error) *pkgerrors.Error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "delivery validation failed")
	}
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = validationMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "delivery details are incomplete").WithDetails(details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid"
}
