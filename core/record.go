// Package core provides the storage-agnostic building blocks of the glyph
// record store adapter. This file defines the record value model exchanged
// between the application and the drivers.
package core

// Record is one row of a record type, keyed by field name. Array fields hold
// an ordered []any; every other field holds a scalar or nil.
type Record map[string]any

// Clone returns a shallow copy of the record. Drivers clone before encoding
// so the caller's map is never mutated in place.
func (r Record) Clone() Record {
	clone := make(Record, len(r))
	for fieldName, value := range r {
		clone[fieldName] = value
	}
	return clone
}

// Result is the outcome of a find: the matching page of records plus the
// total count of records matching the same filter without pagination.
type Result struct {
	Records []Record
	Count   int64
}

// Clone returns a copy of the result with its own record maps, so the copy
// can be mutated without reaching the original.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	clone := &Result{Count: r.Count}
	if r.Records != nil {
		clone.Records = make([]Record, len(r.Records))
		for i, record := range r.Records {
			clone.Records[i] = record.Clone()
		}
	}
	return clone
}
