// Package core provides the storage-agnostic building blocks of the glyph
// record store adapter. This file defines the sparse update specification.
package core

// Update is a sparse, per-record mutation addressed by primary key.
//
// Replace sets fields directly and is valid for any field. Push and Pull
// are only meaningful for array fields: Push appends (concatenating when
// the value is itself a sequence), Pull removes matching elements (every
// match of every listed value when the value is a sequence).
type Update struct {
	ID      any
	Replace map[string]any
	Push    map[string]any
	Pull    map[string]any
}

// IsZero reports whether the update changes nothing.
func (u Update) IsZero() bool {
	return len(u.Replace) == 0 && len(u.Push) == 0 && len(u.Pull) == 0
}
