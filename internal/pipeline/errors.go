package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors pipelines use to classify invocation failures. The envelope
// carries the wrapped error text; callers use errors.Is to branch.
var (
	ErrMissingInput   = errors.New("No input provided")
	ErrInvalidJSON    = errors.New("Invalid JSON input")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInputTooLarge  = errors.New("Input too large")
	ErrReadInput      = errors.New("failed to read input")
	ErrParse          = errors.New("Failed to parse email")
	ErrDepthExceeded  = errors.New("maximum nesting depth exceeded")
	errUnknownFailure = errors.New("unknown failure")
)

// Wrap annotates err with a sentinel so callers can detect its class. A nil
// err yields the bare sentinel.
func Wrap(sentinel, err error) error {
	if err == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

// IsInputError reports whether err was caused by malformed top-level input
// rather than by the pipeline itself.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingInput) ||
		errors.Is(err, ErrInvalidJSON) ||
		errors.Is(err, ErrInputTooLarge) ||
		errors.Is(err, ErrReadInput)
}
