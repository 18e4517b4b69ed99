package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrTemporary         = errors.New("temporary failure")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrBatchFailed       = errors.New("every item in batch failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// InvalidInput builds a caller-facing validation error.
func InvalidInput(operation, message string) error {
	return fmt.Errorf("%s: %w: %s", operation, ErrInvalidInput, message)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
