// Package validation checks decoded request bodies against struct tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/supportdesk/helpdesk-service/pkg/util/errorutil"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Get returns the shared validator. Field names in errors are the json names.
func Get() *validator.Validate {
	once.Do(initValidator)
	return validate
}

func initValidator() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Struct validates v and returns a ValidationError with one detail per field.
func Struct(v any) error {
	err := Get().Struct(v)
	if err == nil {
		return nil
	}
	return apperrors.NewValidationError("invalid request", ParseErrors(err))
}

// ParseErrors maps validator failures to field -> message.
func ParseErrors(err error) map[string]any {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]any{"body": "invalid"}
	}

	details := make(map[string]any, len(validationErrors))
	for _, e := range validationErrors {
		details[e.Field()] = prettyError(e)
	}
	return details
}

func prettyError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "required"
	case "email":
		return "valid email required"
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(e.Param()), ", ")
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	default:
		return e.Error()
	}
}
