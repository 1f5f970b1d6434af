package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// requestValidator plugs go-playground/validator into echo (c.Validate).
type requestValidator struct {
	v *validator.Validate
}

// fieldViolations lists every rule a request body broke, in field order.
type fieldViolations []string

func (f fieldViolations) Error() string {
	return strings.Join(f, "; ")
}

// NewValidator returns the echo.Validator used by every handler. Messages
// name fields by their JSON key, which is what the client sent.
func NewValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := make(fieldViolations, 0, len(ve))
	for _, fe := range ve {
		out = append(out, describe(fe))
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gte":
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
}
