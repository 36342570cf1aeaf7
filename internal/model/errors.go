package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the calendar core and the HTTP layer.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

// FieldError describes a validation failure for a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field-level failures. It unwraps to ErrValidation.
type ValidationError struct {
	Errors []FieldError
	// Notice is the user-facing text shown in place of the field list.
	Notice string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	fields := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		fields = append(fields, fe.Field)
	}
	return fmt.Sprintf("validation: %d errors (%s)", len(e.Errors), strings.Join(fields, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Message returns the notification text for the failure.
func (e *ValidationError) Message() string {
	if e.Notice != "" {
		return e.Notice
	}
	if len(e.Errors) > 0 {
		return e.Errors[0].Message
	}
	return "Invalid input"
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}
