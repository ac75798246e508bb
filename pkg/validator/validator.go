package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/hospital-api/pkg/clock"
)

// FieldError is one failed rule, keyed by the JSON or form field name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var messages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email",
	"min":      "is too short",
	"max":      "is too long",
	"oneof":    "is not an allowed value",
	"uuid":     "must be a UUID",
	"date":     "must be a date in YYYY-MM-DD format",
	"hhmm":     "must be a time in HH:MM format",
}

// Register adds the custom tags and reports field names by their json or
// form tag.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return fld.Name
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	if err := v.RegisterValidation("date", isDate); err != nil {
		return fmt.Errorf("failed to register date validator: %w", err)
	}
	if err := v.RegisterValidation("hhmm", isClockTime); err != nil {
		return fmt.Errorf("failed to register hhmm validator: %w", err)
	}
	return nil
}

// RegisterGin installs the custom tags on gin's binding validator.
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	return Register(v)
}

func isDate(fl validator.FieldLevel) bool {
	_, err := clock.ParseDate(fl.Field().String())
	return err == nil
}

func isClockTime(fl validator.FieldLevel) bool {
	_, err := clock.Parse(fl.Field().String())
	return err == nil
}

// Fields flattens validator errors into field messages.
func Fields(errs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		msg, ok := messages[e.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed on %s", e.Tag())
		}
		out = append(out, FieldError{Field: e.Field(), Message: msg})
	}
	return out
}
