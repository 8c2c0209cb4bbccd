package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kbukum/apikit/errors"
)

// Validator collects validation errors.
type Validator struct {
	errors []FieldError
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{errors: make([]FieldError, 0)}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Merge appends the field errors carried by err, which is usually the result
// of Validate on a nested structure. Fields are prefixed with prefix.
func (v *Validator) Merge(prefix string, err error) *Validator {
	if err == nil {
		return v
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		v.AddError(prefix, err.Error())
		return v
	}
	fields, _ := appErr.Details["fields"].([]FieldError)
	if len(fields) == 0 {
		v.AddError(prefix, appErr.Message)
		return v
	}
	for _, f := range fields {
		name := f.Field
		if prefix != "" {
			name = prefix + "." + name
		}
		v.AddError(name, f.Message)
	}
	return v
}

// Validate returns an AppError if there are validation errors, nil otherwise.
func (v *Validator) Validate() error {
	if !v.HasErrors() {
		return nil
	}

	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}

	appErr := errors.Validation(strings.Join(messages, "; "))
	appErr.Details = map[string]any{"fields": v.errors}
	return appErr
}

// Required checks if a string is non-empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// OneOf checks if a value is one of the allowed values.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" || slices.Contains(allowed, value) {
		return v
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Custom applies a custom validation condition.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}
