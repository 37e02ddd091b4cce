package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type contextKey string

// DBTxKey carries an open transaction through a context so repositories
// route their queries into it instead of the pool.
const DBTxKey contextKey = "db_tx"

// Beginner is anything a transaction can be started on. Satisfied by
// *pgxpool.Pool and by pgx.Tx (a nested Begin becomes a savepoint).
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxFromContext retrieves the transaction stored in ctx, or nil when the
// context carries none.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// WithTx returns a copy of ctx carrying tx.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, DBTxKey, tx)
}

// RunInTx begins a transaction on db and calls fn with a context carrying it.
// The transaction commits when fn returns nil; any error from fn rolls it
// back and is returned unwrapped so sentinel matches still work.
func RunInTx(ctx context.Context, db Beginner, fn func(ctx context.Context) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
