// Package validation wraps go-playground/validator with the tags and
// messages shared by every request DTO.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "clinicbook/pkg/errors"
	"clinicbook/pkg/logger"

	"github.com/go-playground/validator/v10"
)

const TagClock = "clock"

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Add appends a business-rule failure next to the tag failures.
func (v ValidationErrors) Add(field, message string) ValidationErrors {
	return append(v, ValidationError{Field: field, Message: message})
}

type Validator struct {
	validate *validator.Validate
}

func New(log *logger.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so messages match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	if err := v.RegisterValidation(TagClock, validateClock); err != nil {
		log.Fatal("Failed to register 'clock' validator", "error", err)
	}

	return &Validator{validate: v}
}

// validateClock accepts a 24h "HH:MM" with two-digit fields.
func validateClock(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &hour, &minute); err != nil {
		return false
	}
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}

// Struct validates s and returns ValidationErrors for tag failures.
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translate(validationErrs)
		}
		return err
	}
	return nil
}

func translate(errs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors

	for _, err := range errs {
		field := fieldPath(err)
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", field, err.Param())
		case "e164":
			message = fmt.Sprintf("%s must be a phone number in international format", field)
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", field)
		case "timezone":
			message = fmt.Sprintf("%s must be an IANA time zone such as Asia/Jerusalem", field)
		case "datetime":
			message = fmt.Sprintf("%s must match the layout %s", field, err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", field, strings.ToLower(err.Param()))
		case TagClock:
			message = fmt.Sprintf("%s must be in HH:MM 24-hour format", field)
		}

		out = append(out, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return out
}

// fieldPath drops the root struct name: "HoldRequest.customer.phone" becomes
// "customer.phone".
func fieldPath(err validator.FieldError) string {
	ns := err.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return err.Field()
}

// ToAppError converts validation failures to a 422 with field details.
// Other errors pass through unchanged.
func ToAppError(err error) error {
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	details := make([]map[string]string, 0, len(verrs))
	for _, e := range verrs {
		details = append(details, map[string]string{"field": e.Field, "message": e.Message})
	}
	return apperrors.Validation("Invalid input", map[string]any{"errors": details})
}
