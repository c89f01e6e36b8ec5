package db

import (
	"context"
	"database/sql"
	"errors"
)

// WithTx runs `fn` inside a transaction, committing when it returns nil.
func WithTx(ctx context.Context, conn *sql.DB, fn func(q *Queries) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(New(tx)); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}
