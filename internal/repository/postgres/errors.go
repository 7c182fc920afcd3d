package postgres

import (
	"errors"
	"fmt"

	"thoughtbox/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories react to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pgCode(err error) (string, *pgconn.PgError) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr
	}
	return "", nil
}

// MapError translates a driver error into a domain error. resource and id
// name the row the statement was about.
//
//   - no rows: ErrNotFound
//   - foreign key violation: ErrNotFound, the parent thought is gone
//   - unique violation: *domain.ConflictError
//
// Anything else is wrapped unchanged.
func MapError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", resource, id, domain.ErrNotFound)
	}
	switch code, pgErr := pgCode(err); code {
	case codeForeignKeyViolation:
		return fmt.Errorf("%s %s references a missing thought: %w", resource, id, domain.ErrNotFound)
	case codeUniqueViolation:
		return &domain.ConflictError{
			Message:      fmt.Sprintf("%s %s conflicts with an existing row (%s)", resource, id, pgErr.ConstraintName),
			ResourceType: resource,
			ResourceID:   id,
		}
	}
	return fmt.Errorf("%s %s: %w", resource, id, err)
}

// isRetryable reports whether a transaction failed only because it raced
// another one and may succeed when run again.
func isRetryable(err error) bool {
	code, _ := pgCode(err)
	return code == codeSerializationFailure || code == codeDeadlockDetected
}
