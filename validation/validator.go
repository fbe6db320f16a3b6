package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/vaultkit/errors"
)

// Validator accumulates field errors from chained checks:
//
//	err := validation.New().Required("path", p).Duration("ttl", ttl).Validate()
type Validator struct {
	errors []FieldError
}

// FieldError names the offending field by its config or request key.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func New() *Validator { return &Validator{} }

// AddError records a failure a built-in check does not cover.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

func (v *Validator) HasErrors() bool { return len(v.errors) > 0 }

// Errors returns the failures in the order they were recorded.
func (v *Validator) Errors() []FieldError { return v.errors }

// Validate returns a KindValidation error listing every field error, or nil.
func (v *Validator) Validate() error {
	if !v.HasErrors() {
		return nil
	}
	return fieldsError(v.errors)
}

func fieldsError(fields []FieldError) *errors.VaultError {
	messages := make([]string, len(fields))
	for i, e := range fields {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return errors.New(errors.KindValidation, strings.Join(messages, "; ")).
		WithDetail("fields", fields)
}

// Required fails on an empty or all-whitespace value.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// Duration checks that a non-empty value is a Vault duration string.
func (v *Validator) Duration(field, value string) *Validator {
	if value == "" {
		return v
	}
	if _, err := ParseTTL(value); err != nil {
		v.AddError(field, "must be a duration such as 30s, 5m or 3600")
	}
	return v
}

// Min fails when value is below minVal.
func (v *Validator) Min(field string, value, minVal int) *Validator {
	if value < minVal {
		v.AddError(field, fmt.Sprintf("must be at least %d", minVal))
	}
	return v
}

// Required is the one-field form of Validator.Required.
func Required(field, value string) error {
	return New().Required(field, value).Validate()
}

// ParseTTL parses a Vault duration: a Go duration string ("90s", "1h30m")
// or a bare number of seconds ("3600").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New(errors.KindValidation, "empty duration")
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs < 0 {
			return 0, errors.Newf(errors.KindValidation, "negative duration %q", s)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrap(errors.KindValidation, err, fmt.Sprintf("invalid duration %q", s))
	}
	if d < 0 {
		return 0, errors.Newf(errors.KindValidation, "negative duration %q", s)
	}
	return d, nil
}
