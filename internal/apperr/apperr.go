// Package apperr holds error kinds shared across the storage and service
// layers that are not owned by a single domain package.
package apperr

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrTransient marks a failure the caller may retry, typically a
	// datastore call that hit its deadline.
	ErrTransient = errors.New("temporary failure, try again")
)

// Classify wraps timeouts into ErrTransient and leaves other errors alone.
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrTransient) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	return errors.Is(Classify(err), ErrTransient)
}
