package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// AdvertisementInput carries the editable fields submitted through the create and
// edit forms. Version is optional and only meaningful on edit.
type AdvertisementInput struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content" validate:"required,max=65535,maxbytes=65535"`
	Version string `json:"version,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ByField indexes the errors by field name, keeping the first message per field.
func (v ValidationErrors) ByField() map[string]string {
	out := make(map[string]string, len(v))
	for _, fe := range v {
		if _, ok := out[fe.Field]; !ok {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// MySQL TEXT columns are limited in bytes, while "max" counts runes.
	v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return v
}

// Normalize trims surrounding whitespace so that blank titles fail "required".
func (in AdvertisementInput) Normalize() AdvertisementInput {
	return AdvertisementInput{
		Title:   strings.TrimSpace(in.Title),
		Content: strings.TrimSpace(in.Content),
		Version: strings.TrimSpace(in.Version),
	}
}

// Validate checks every field and returns nil when the input is acceptable.
// The input is expected to be normalized already.
func (in AdvertisementInput) Validate() ValidationErrors {
	var out ValidationErrors

	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return ValidationErrors{{Field: "", Message: err.Error()}}
		}
		for _, fe := range fieldErrs {
			out = append(out, FieldError{Field: fe.Field(), Message: messageFor(fe)})
		}
	}

	if _, err := in.ExpectedVersion(); err != nil {
		out = append(out, FieldError{Field: "version", Message: "This value is not a valid version."})
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// ExpectedVersion parses Version. A blank version yields nil, meaning last write wins.
func (in AdvertisementInput) ExpectedVersion() (*time.Time, error) {
	if in.Version == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, in.Version)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This value should not be blank."
	case "max":
		return fmt.Sprintf("This value is too long. It should have %s characters or less.", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("This value is too long. It should have %s bytes or less.", fe.Param())
	default:
		return fmt.Sprintf("This value failed the %q check.", fe.Tag())
	}
}
