// Package core provides the storage-agnostic building blocks of the glyph
// record store adapter. This file defines the find options: projection,
// filter, ordering and pagination.
package core

// Sort orders a result set by one field.
type Sort struct {
	FieldName  string
	Descending bool
}

// Options shapes a find request. The embedded Filter carries the selection
// condition; the remaining fields control projection, ordering and paging.
type Options struct {
	Filter

	// Fields is the column projection. When every value is true it is an
	// inclusion list, otherwise an exclusion list; the primary key is always
	// included. A nil map selects every declared field.
	Fields map[string]bool

	// Sort entries apply in order. Array fields sort by element count
	// rather than by value.
	Sort []Sort

	// Limit caps the number of returned records when positive.
	Limit int
	// Offset skips that many records when positive.
	Offset int
}
