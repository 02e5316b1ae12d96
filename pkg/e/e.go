package e

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func Wrap(message string, err error) error {
	return fmt.Errorf("%s: %w", message, err)
}

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternal           = errors.New("internal error")
	ErrDeadline           = errors.New("deadline exceeded")
	ErrCanceled           = errors.New("context canceled")
	ErrUniqueViolation    = errors.New("unique violation")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrForbidden          = errors.New("forbidden")
	ErrNoCandidates       = errors.New("no candidates")

	// ErrInvalidTransition is the umbrella for every state-machine guard
	// violation. Handlers must still be able to tell the guards apart, so
	// each reason below wraps it.
	ErrInvalidTransition = errors.New("invalid transition")

	ErrAlreadyAssigned = fmt.Errorf("emergency already assigned: %w", ErrInvalidTransition)
	ErrAlreadyResolved = fmt.Errorf("emergency already resolved: %w", ErrInvalidTransition)
	ErrAlreadyCanceled = fmt.Errorf("emergency already canceled: %w", ErrInvalidTransition)
	ErrNotAssigned     = fmt.Errorf("emergency not yet assigned: %w", ErrInvalidTransition)
)

// Reason returns a stable machine-readable code for an error, used as the
// "code" field of error responses so clients can branch on the exact guard.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyAssigned):
		return "already_assigned"
	case errors.Is(err, ErrAlreadyResolved):
		return "already_resolved"
	case errors.Is(err, ErrAlreadyCanceled):
		return "already_canceled"
	case errors.Is(err, ErrNotAssigned):
		return "not_assigned"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNoCandidates):
		return "no_candidates"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCoordinates):
		return "invalid_coordinates"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}

func WrapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrDeadline)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, ErrCanceled)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, ErrUniqueViolation)
		case "23503", "23514":
			return fmt.Errorf("%s: %w", op, ErrInvalidInput)
		default:
			return fmt.Errorf("%s: pg error %s: %w", op, pgErr.Code, ErrInternal)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, ErrInternal)
}
