// Package mongo implements the glyph adapter for MongoDB over the official
// driver. This file adapts a driver session to the core.Transaction
// interface.
package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// transaction wraps a mongo.Session and implements core.Transaction.
type transaction struct {
	session mongo.Session
}

// Commit finalizes the transaction and ends the session.
func (transaction *transaction) Commit(ctx context.Context) error {
	defer transaction.session.EndSession(ctx)
	return transaction.session.CommitTransaction(ctx)
}

// Rollback aborts the transaction and ends the session.
func (transaction *transaction) Rollback(ctx context.Context) error {
	defer transaction.session.EndSession(ctx)
	return transaction.session.AbortTransaction(ctx)
}
