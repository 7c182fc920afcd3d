package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"thoughtbox/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxTxAttempts bounds reruns of a transaction that lost a race.
const maxTxAttempts = 3

// TransactionManager runs service closures in pgx transactions
type TransactionManager struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(pool *pgxpool.Pool, logger *slog.Logger) repositories.TransactionManager {
	return &TransactionManager{pool: pool, logger: logger}
}

// ExecTx runs fn in a transaction. Serialization failures and deadlocks
// rerun fn from the start, so fn must not have side effects outside the
// transaction. Version renumbering relies on a deferred unique constraint,
// which surfaces conflicts at commit; those map to *domain.ConflictError.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = tm.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) || ctx.Err() != nil {
			break
		}
		tm.logger.Debug("transaction conflicted, retrying", "attempt", attempt, "error", err)
	}
	return err
}

func (tm *TransactionManager) runOnce(ctx context.Context, fn repositories.TxFn) error {
	tx, err := tm.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// Rollback after a successful commit returns ErrTxClosed
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			tm.logger.Warn("rollback failed", "error", err)
		}
	}()

	if err := fn(repositories.SetTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isRetryable(err) {
			return err
		}
		return MapError(err, "transaction", "commit")
	}
	return nil
}
