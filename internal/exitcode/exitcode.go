// Package exitcode defines exit codes for the CLI.
package exitcode

import (
	"errors"

	"tasktree/internal/config"
	"tasktree/internal/move"
	"tasktree/internal/mutation"
	"tasktree/internal/service"
)

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates bad arguments, an unknown list or task, or a move
	// refused before reaching the store.
	UserError = 1

	// AuthError indicates a lost session or missing credentials.
	AuthError = 2

	// BackendError indicates a store, network or timeout failure.
	BackendError = 3
)

// For maps an error to its exit code.
func For(err error) int {
	var r *move.Rejection
	switch {
	case err == nil:
		return Success
	case errors.Is(err, mutation.ErrSessionLost), errors.Is(err, service.ErrUnauthorized):
		return AuthError
	case errors.As(err, &r),
		errors.Is(err, mutation.ErrInvalid),
		errors.Is(err, config.ErrInvalid),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrAmbiguous),
		errors.Is(err, service.ErrRejected):
		return UserError
	default:
		return BackendError
	}
}
