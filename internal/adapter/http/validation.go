package http

import (
	"regexp"

	"p2p-lending-backend/pkg/money"

	"github.com/go-playground/validator/v10"
)

// Reusable error payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
type ErrorResponse struct {
	Error   string       `json:"error"`
	LoanID  uint64       `json:"loan_id,omitempty"`
	Details []FieldError `json:"details,omitempty"`
}

var reEthAddr = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()

	// party id = 0x-prefixed 40-char hex address
	_ = v.RegisterValidation("ethaddr", func(fl validator.FieldLevel) bool {
		return reEthAddr.MatchString(fl.Field().String())
	})
	// fixed-point decimal string, at most 6 decimal places, non-negative
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := money.Parse(fl.Field().String())
		return err == nil
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// Map validator.ValidationErrors → []FieldError with readable messages.
func ToFieldErrors(err error) []FieldError {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "ethaddr":
			out = append(out, FieldError{Field: field, Message: "must be a 0x-prefixed 40-char hex address"})
		case "amount":
			out = append(out, FieldError{Field: field, Message: "must be a non-negative decimal with at most 6 decimal places"})
		case "gt":
			out = append(out, FieldError{Field: field, Message: "must be greater than " + e.Param()})
		case "gte":
			out = append(out, FieldError{Field: field, Message: "must be greater than or equal to " + e.Param()})
		case "lte":
			out = append(out, FieldError{Field: field, Message: "must be less than or equal to " + e.Param()})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
