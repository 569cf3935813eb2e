// Package core provides the storage-agnostic building blocks of the glyph
// record store adapter. This file defines the filter specification, the
// structured description of a WHERE condition that drivers compile to their
// native query form.
package core

// Bounds is an inclusive range with nullable ends. A nil end leaves that
// side of the range open; both ends nil yields no predicate at all.
type Bounds struct {
	Low  any
	High any
}

// Filter is a structured description of a selection condition.
//
// The leaf operators (Match, Range, Exists, Contains) are keyed by field
// name; every referenced field must be declared in the target record type,
// otherwise compilation fails with a SchemaError. And, Or and Not nest
// whole filters recursively.
//
// Example:
//
//	filter := &core.Filter{
//		Match: map[string]any{"status": "active"},
//		Or: []*core.Filter{
//			{Range: map[string]core.Bounds{"age": {Low: 21}}},
//			{Exists: map[string]bool{"guardian": true}},
//		},
//	}
type Filter struct {
	// Match selects records whose field equals the value. A sequence value
	// means membership (any of); for array fields it means containment of
	// every listed element.
	Match map[string]any
	// Range selects records whose field falls inside the inclusive bounds.
	// For array fields the bounds apply to the element count.
	Range map[string]Bounds
	// Exists selects records by field presence: true requires a non-null
	// value (non-empty for array fields), false the opposite.
	Exists map[string]bool
	// Contains selects records whose text field contains the substring,
	// case-insensitively. The substring is taken literally; pattern
	// metacharacters are not escaped.
	Contains map[string]string

	// And requires every child filter to hold.
	And []*Filter
	// Or requires at least one child filter to hold.
	Or []*Filter
	// Not negates the child filter.
	Not *Filter
}

// IsZero reports whether the filter carries no condition at all.
func (f *Filter) IsZero() bool {
	if f == nil {
		return true
	}
	return len(f.Match) == 0 && len(f.Range) == 0 && len(f.Exists) == 0 &&
		len(f.Contains) == 0 && len(f.And) == 0 && len(f.Or) == 0 && f.Not == nil
}
