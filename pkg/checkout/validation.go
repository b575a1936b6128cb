package checkout

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
)

const (
	TagPhone10  = "phone10"
	TagPincode6 = "pincode6"
)

var (
	phonePattern   = regexp.MustCompile(`^[0-9]{10}$`)
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
	phoneStripper  = strings.NewReplacer(" ", "", "-", "")
)

var validate = NewValidator()

// ContactInput is the phase-one checkout form.
type ContactInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Phone    string `json:"phone" validate:"required,phone10"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
}

// ShippingInput is the phase-two checkout form.
type ShippingInput struct {
	Address string `json:"address" validate:"required,max=500"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	Pincode string `json:"pincode" validate:"required,pincode6"`
	Country string `json:"country" validate:"required,max=100"`
}

// NewValidator returns a validator that reports json field names and knows
// the checkout tags.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	RegisterRules(v)
	return v
}

// RegisterRules adds the phone10 and pincode6 tags to v.
func RegisterRules(v *validator.Validate) {
	_ = v.RegisterValidation(TagPhone10, func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(NormalizePhone(fl.Field().String()))
	})
	_ = v.RegisterValidation(TagPincode6, func(fl validator.FieldLevel) bool {
		return pincodePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
}

// NormalizePhone strips spaces and dashes.
func NormalizePhone(phone string) string {
	return phoneStripper.Replace(strings.TrimSpace(phone))
}

// Normalize trims every field and canonicalizes the phone and email.
func (c ContactInput) Normalize() ContactInput {
	return ContactInput{
		Name:     strings.TrimSpace(c.Name),
		Email:    strings.ToLower(strings.TrimSpace(c.Email)),
		Phone:    NormalizePhone(c.Phone),
		Password: c.Password,
	}
}

// Normalize trims every field.
func (s ShippingInput) Normalize() ShippingInput {
	return ShippingInput{
		Address: strings.TrimSpace(s.Address),
		City:    strings.TrimSpace(s.City),
		State:   strings.TrimSpace(s.State),
		Pincode: strings.TrimSpace(s.Pincode),
		Country: strings.TrimSpace(s.Country),
	}
}

// ValidateContact returns a VALIDATION_ERROR naming each bad field.
func ValidateContact(in ContactInput) error {
	return validateStruct(in)
}

// ValidateShipping returns a VALIDATION_ERROR naming each bad field.
func ValidateShipping(in ShippingInput) error {
	return validateStruct(in)
}

// ValidateQuotedAmount rejects a client-quoted amount that differs from the
// snapshot total. A nil quote is accepted.
func ValidateQuotedAmount(quoted *decimal.Decimal, total decimal.Decimal) error {
	if quoted == nil {
		return nil
	}
	if !quoted.Equal(total) {
		return pkgerrors.ValidationField("amount", fmt.Sprintf("must equal the cart total %s", total.StringFixed(2)))
	}
	return nil
}

func validateStruct(in any) error {
	if err := validate.Struct(in); err != nil {
		return FieldErrors(err)
	}
	return nil
}

// FieldErrors converts validator output into a typed VALIDATION_ERROR.
func FieldErrors(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	fields := pkgerrors.FieldErrors{}
	for _, fe := range errs {
		fields[fe.Field()] = Message(fe)
	}
	return pkgerrors.Validation(fields)
}

// Message renders a validator failure for API clients.
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	case TagPhone10:
		return "must be 10 digits"
	case TagPincode6:
		return "must be 6 digits"
	}
	return "is invalid"
}
