package validation

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/fuisce/errors"
)

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects the checks that struct tags cannot express, such as
// durations and limits between fields. Fields are named with their config
// keys, e.g. "server.port".
type Validator struct {
	section string
	errors  []FieldError
}

// New returns a Validator whose fields are reported under section, which may
// be empty.
func New(section string) *Validator {
	return &Validator{section: section}
}

// AddError records a failed check of field.
func (v *Validator) AddError(field, message string) {
	if v.section != "" {
		field = v.section + "." + field
	}
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// Errors returns the failed checks.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns a validation AppError listing every failed check, or nil.
func (v *Validator) Validate() error {
	if len(v.errors) == 0 {
		return nil
	}
	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = e.Field + ": " + e.Message
	}
	return errors.Validation(strings.Join(messages, "; ")).WithDetail("fields", v.errors)
}

// Range checks minVal <= value <= maxVal.
func (v *Validator) Range(field string, value, minVal, maxVal int) *Validator {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("must be between %d and %d (got: %d)", minVal, maxVal, value))
	}
	return v
}

// NonNegative checks value >= 0.
func (v *Validator) NonNegative(field string, value int) *Validator {
	if value < 0 {
		v.AddError(field, fmt.Sprintf("must be non-negative (got: %d)", value))
	}
	return v
}

// Duration checks that a non-empty value parses with time.ParseDuration.
func (v *Validator) Duration(field, value string) *Validator {
	if value == "" {
		return v
	}
	if _, err := time.ParseDuration(value); err != nil {
		v.AddError(field, fmt.Sprintf("must be a duration such as 5s (got: %q)", value))
	}
	return v
}

// OneOf checks that value, ignoring case, is one of allowed. Empty values pass.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" || slices.Contains(allowed, strings.ToLower(value)) {
		return v
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
	return v
}

// Custom records message for field unless ok.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}
