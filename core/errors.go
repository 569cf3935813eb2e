// Package core provides the storage-agnostic building blocks of the glyph
// record store adapter. This file defines the error taxonomy shared by all
// drivers: schema misuse, uniqueness conflicts, and pass-through store
// failures.
package core

import "fmt"

// SchemaError reports a reference to an undeclared field or record type, or
// an invalid schema at setup. It is fatal and never retried.
type SchemaError struct {
	RecordType string
	Field      string
	Message    string
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema: %s.%s: %s", e.RecordType, e.Field, e.Message)
	}
	return fmt.Sprintf("schema: %s: %s", e.RecordType, e.Message)
}

// ConflictError reports an insert that violated a uniqueness constraint.
// Callers are expected to handle it, typically by retrying with a new key.
// The store's raw error is available through Unwrap.
type ConflictError struct {
	RecordType string
	Err        error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s: %v", e.RecordType, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }
