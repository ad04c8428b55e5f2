package tools

import (
	"context"
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying at the turn level: network
// flakes, upstream timeouts, 5xx responses. Everything else is treated as a
// definitive tool outcome.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// MarkTransient wraps err so IsTransient recognizes it. A nil err stays nil.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether a failure should trigger the single turn-level
// retry. Context cancellation is not transient: retrying a canceled turn
// only doubles the damage.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var transient *TransientError
	return errors.As(err, &transient)
}
