package model

import (
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Fields returns the names of all fields that failed validation, in order.
func (e *ValidationError) Fields() []string {
	names := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		names[i] = fe.Field
	}
	return names
}

// Validate checks the settings needed before any data access happens.
// Every missing required field is reported, not just the first one.
// It returns a *ValidationError if any rule fails, or nil.
func (s Settings) Validate() error {
	var ve ValidationError

	if s.PublicGroup <= 0 {
		ve.Errors = append(ve.Errors, FieldError{Field: KeyPublicGroup, Message: "is required"})
	}
	if s.RegisteredGroup <= 0 {
		ve.Errors = append(ve.Errors, FieldError{Field: KeyRegisteredGroup, Message: "is required"})
	}
	if s.PublicGroup > 0 && s.PublicGroup == s.RegisteredGroup {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   KeyRegisteredGroup,
			Message: "must differ from " + KeyPublicGroup,
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
