package models

import "fmt"

// ValidationErrorKind identifies which input rule a request broke.
type ValidationErrorKind string

const (
	ValidationTooShort         ValidationErrorKind = "TooShort"
	ValidationTooLong          ValidationErrorKind = "TooLong"
	ValidationInvalidTone      ValidationErrorKind = "InvalidTone"
	ValidationInvalidIntensity ValidationErrorKind = "InvalidIntensity"
)

// ValidationError is returned by ValidateHumanizeInput. Message is safe to
// show to end users.
type ValidationError struct {
	Kind    ValidationErrorKind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(kind ValidationErrorKind, field, message string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Message: message}
}
