// Package postgres implements the glyph adapter for PostgreSQL. This file
// adapts pgx.Tx to the core.Transaction interface, so adapter operations
// can join a transaction carried in context.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// transaction wraps a pgx.Tx and implements core.Transaction.
type transaction struct {
	tx pgx.Tx
}

// Commit finalizes the transaction, making all changes permanent.
func (transaction *transaction) Commit(ctx context.Context) error {
	return transaction.tx.Commit(ctx)
}

// Rollback aborts the transaction, discarding all changes made during it.
func (transaction *transaction) Rollback(ctx context.Context) error {
	return transaction.tx.Rollback(ctx)
}
