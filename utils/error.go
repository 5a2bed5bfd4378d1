package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError is a caller mistake: missing field, bad enum value,
// out-of-range number. Surfaced as a 400 and never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CorruptDataError means a stored payload failed to parse. Surfaced as a 422;
// there is no automatic recovery.
type CorruptDataError struct {
	Message string
	Cause   error
}

func (e *CorruptDataError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *CorruptDataError) Unwrap() error { return e.Cause }

func NewCorruptDataError(message string, cause error) error {
	return &CorruptDataError{Message: message, Cause: cause}
}

func IsCorruptDataError(err error) bool {
	var ce *CorruptDataError
	return errors.As(err, &ce)
}
