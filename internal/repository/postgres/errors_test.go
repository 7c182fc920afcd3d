package postgres

import (
	"errors"
	"fmt"
	"testing"

	"thoughtbox/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil, "thought", "t1"))

	err := MapError(fmt.Errorf("scan: %w", pgx.ErrNoRows), "thought", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "thought t1")

	err = MapError(&pgconn.PgError{Code: codeForeignKeyViolation}, "version", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = MapError(&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "dev_thought_versions_number_unique"}, "version", "t1/3")
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "version", conflict.ResourceType)
	assert.Equal(t, "t1/3", conflict.ResourceID)
	assert.Contains(t, conflict.Message, "dev_thought_versions_number_unique")
	assert.ErrorIs(t, err, domain.ErrConflict)

	boom := errors.New("connection reset")
	err = MapError(boom, "thought", "t1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(fmt.Errorf("commit: %w", &pgconn.PgError{Code: codeSerializationFailure})))
	assert.True(t, isRetryable(&pgconn.PgError{Code: codeDeadlockDetected}))
	assert.False(t, isRetryable(&pgconn.PgError{Code: codeUniqueViolation}))
	assert.False(t, isRetryable(errors.New("other")))
}
