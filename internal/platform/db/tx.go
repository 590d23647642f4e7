package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Writes run at repeatable read. When two transactions touch the same row,
// the invoice counter or a hot product, the loser surfaces a serialization
// failure after the winner commits. The callback is then rerun on a fresh
// snapshot, so it must not carry state between attempts.
const txAttempts = 3

// WithTx executes fn inside a repeatable-read transaction, retrying
// serialization failures in a fresh transaction.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return retrySerialization(func() error {
		return runTx(ctx, pool, fn)
	})
}

func runTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

func retrySerialization(attempt func() error) error {
	var err error
	for i := 0; i < txAttempts; i++ {
		err = attempt()
		if !SerializationFailure(err) {
			return err
		}
	}
	return err
}

// SerializationFailure reports whether err is a PostgreSQL serialization or
// deadlock error that a fresh transaction can resolve.
func SerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
