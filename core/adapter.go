// Package core provides the storage-agnostic building blocks of the glyph
// record store adapter. This file defines the adapter capability set that
// every driver implements and the host framework depends on.
package core

import "context"

// Transaction is an isolated unit of work obtained from Adapter.Begin.
// Operations join it by carrying the handle in their context, see
// WithTransaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Adapter is the capability set of a record store driver.
//
// One adapter instance exclusively owns one store handle; requests are
// driven by the caller and run to completion or first unrecoverable error.
type Adapter interface {
	// Connect acquires the store handle, validates the schema and applies
	// non-destructive column migration. It must be called before any other
	// operation.
	Connect(ctx context.Context) error
	// Disconnect releases the store handle.
	Disconnect(ctx context.Context) error

	// Find returns the records of recordType selected by ids and options,
	// together with the total count for the same filter. A non-nil empty
	// ids slice short-circuits to an empty result without a store
	// round-trip; a nil ids slice applies no id restriction.
	Find(ctx context.Context, recordType string, ids []any, options *Options) (*Result, error)
	// Create inserts the records and returns them with primary keys
	// assigned. Inserting nothing is a no-op. A uniqueness violation is
	// reported as a ConflictError.
	Create(ctx context.Context, recordType string, records []Record) ([]Record, error)
	// Update applies each sparse update and returns the summed count of
	// affected rows. The batch is not atomic: a failure partway through
	// leaves prior updates applied.
	Update(ctx context.Context, recordType string, updates []Update) (int64, error)
	// Delete removes the records named by ids, or every record of the type
	// when ids is nil. A non-nil empty ids slice is a no-op returning zero.
	Delete(ctx context.Context, recordType string, ids []any) (int64, error)

	// Begin opens a transaction bound to an isolated handle. Run operations
	// inside it by wrapping their context with WithTransaction.
	Begin(ctx context.Context) (Transaction, error)
}
