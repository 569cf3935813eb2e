// Package core provides the storage-agnostic building blocks of the glyph
// record store adapter. This file defines transaction plumbing: helpers for
// carrying a transaction handle in context and an ergonomic callback runner.
package core

import "context"

// transactionKey is an unexported type used as the context key for a
// Transaction. A private type prevents collisions with other context values.
type transactionKey struct{}

// WithTransaction injects a Transaction into the given context, letting
// adapter operations detect and join an ongoing transaction automatically.
//
// Example:
//
//	tx, _ := adapter.Begin(ctx)
//	txCtx := core.WithTransaction(ctx, tx)
//	adapter.Create(txCtx, "user", records)
func WithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, transactionKey{}, tx)
}

// TransactionFrom extracts the Transaction from the given context, or nil
// when the context carries none.
func TransactionFrom(ctx context.Context) Transaction {
	if v, ok := ctx.Value(transactionKey{}).(Transaction); ok {
		return v
	}
	return nil
}

// TransactionFunc is the callback signature used by RunTransaction. A
// returned error rolls the transaction back; nil commits it.
type TransactionFunc func(txCtx context.Context) error

// RunTransaction executes fn inside a transaction obtained from the adapter,
// handling commit and rollback automatically.
//
// Example:
//
//	err := core.RunTransaction(ctx, adapter, func(txCtx context.Context) error {
//		if _, err := adapter.Create(txCtx, "user", userRecords); err != nil {
//			return err
//		}
//		_, err := adapter.Create(txCtx, "account", accountRecords)
//		return err
//	})
func RunTransaction(ctx context.Context, adapter Adapter, fn TransactionFunc) error {
	tx, err := adapter.Begin(ctx)
	if err != nil {
		return err
	}
	txCtx := WithTransaction(ctx, tx)

	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx) // rollback on error
		return err
	}
	return tx.Commit(ctx)
}
