package database

import (
	"context"
	"database/sql"
	"fmt"
)

// WithTx runs fn inside a single transaction: it begins before fn reads any
// shared state and commits only after every write succeeded. Any error (or
// panic) from fn rolls the whole unit of work back.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
