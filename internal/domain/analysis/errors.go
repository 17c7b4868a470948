package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the analysis id is unknown to the store.
	ErrNotFound = errors.New("analysis not found")
	// ErrInvalidInput marks a malformed or missing request field.
	ErrInvalidInput = errors.New("invalid input")
)

// Invalidf builds an ErrInvalidInput with a short client-facing message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
