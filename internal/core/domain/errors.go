package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNoRoute          = errors.New("no workflow configured")
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrSessionEnded     = errors.New("session ended")
	ErrNonRetryable     = errors.New("non-retryable failure")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
