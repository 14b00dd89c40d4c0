package tx

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dErrors "barangay/pkg/domain-errors"
)

// Postgres runs units of work in a *sql.Tx carried through the context.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgres returns a runner; timeout 0 selects DefaultTimeout.
func NewPostgres(db *sql.DB, timeout time.Duration) *Postgres {
	return &Postgres{db: db, timeout: timeout}
}

func (t *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is a no-op
	}()

	txCtx, j := withJournal(WithTx(ctx, tx))
	if err := fn(txCtx); err != nil {
		j.rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		j.rollback()
		return fmt.Errorf("commit tx: %w", err)
	}
	j.commit(ctx)
	return nil
}
