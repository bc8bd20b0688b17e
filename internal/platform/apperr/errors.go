// Package apperr defines the error taxonomy shared by every domain service
// and its translation into HTTP responses.
package apperr

import (
	"errors"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrProfileIncomplete = errors.New("practitioner profile is incomplete")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

// FieldError describes a single offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field-level failures. Nothing is persisted when a
// service returns one.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a failure for field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Has reports whether field already has a recorded failure.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Err returns e when at least one field failed, nil otherwise.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Invalid is shorthand for a ValidationError with a single field.
func Invalid(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// ProfileIncompleteError lists the profile fields that block document
// composition. It matches ErrProfileIncomplete under errors.Is.
type ProfileIncompleteError struct {
	Missing []string
}

func (e *ProfileIncompleteError) Error() string {
	if len(e.Missing) == 0 {
		return ErrProfileIncomplete.Error()
	}
	return ErrProfileIncomplete.Error() + ": missing " + strings.Join(e.Missing, ", ")
}

func (e *ProfileIncompleteError) Is(target error) bool {
	return target == ErrProfileIncomplete
}

// AsValidation unwraps err into a *ValidationError when possible.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
