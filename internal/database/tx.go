package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TxRunner wraps a *sql.DB and runs functions inside a single transaction.
// Every multi-step mutation in the service goes through WithTx so that the
// seat check, coupon decrement, credit debit and ticket insert either all
// commit or all roll back. The *sql.Tx handed to fn is the unit of work;
// repositories receive it explicitly instead of sharing connection state.
type TxRunner struct {
	db *sql.DB
}

// NewTxRunner returns a TxRunner bound to the given database.
func NewTxRunner(db *sql.DB) *TxRunner { return &TxRunner{db: db} }

// WithTx begins a transaction, invokes fn and commits when fn returns nil.
// Any error from fn (or from commit) rolls the transaction back and is
// returned to the caller. There are no retries: a conflicting writer
// surfaces immediately as the typed error fn produced.
func (r *TxRunner) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
