// Package core provides the storage-agnostic building blocks of the glyph
// record store adapter. This file defines the field schema: value kinds,
// per-field metadata, and the record type catalog consumed by every driver.
package core

import "fmt"

// Kind identifies the value kind of a field.
//
// The set is closed: drivers map each kind to a concrete storage type
// through an explicit table rather than inspecting Go types at runtime.
type Kind int

const (
	// KindText is a character string.
	KindText Kind = iota
	// KindNumber is a double-precision floating point number.
	KindNumber
	// KindInteger is a 64-bit whole number.
	KindInteger
	// KindBoolean is a true/false value.
	KindBoolean
	// KindTimestamp is a point in time.
	KindTimestamp
	// KindStructured is an arbitrary document, stored as JSON.
	KindStructured
	// KindBinary is a raw byte string. Binary values are hex-encoded on the
	// way into the store and decoded back to raw bytes on the way out.
	KindBinary
)

// String returns the kind name, for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindTimestamp:
		return "timestamp"
	case KindStructured:
		return "structured"
	case KindBinary:
		return "binary"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// FieldDefinition describes a single field of a record type.
//
// It is immutable after the schema is validated at connect time.
type FieldDefinition struct {
	Kind    Kind   // Value kind of the field
	IsArray bool   // Whether the field holds an ordered sequence of values
	Link    string // Name of the linked record type, if this field is a foreign key
	// IsInverse marks a denormalized inverse of a link field. Inverse values
	// pass through the codec without inspection and are stored like any
	// other field; keeping both sides of a link consistent is the caller's
	// responsibility.
	IsInverse bool
}

// Zero returns the value assigned to the field when an input record omits
// it: an empty sequence for array fields, nil otherwise.
func (f FieldDefinition) Zero() any {
	if f.IsArray {
		return []any{}
	}
	return nil
}

// RecordType describes one store table: its name, primary-key field,
// and the definition of every declared field.
type RecordType struct {
	Name       string
	PrimaryKey string
	Fields     map[string]FieldDefinition
}

// Field returns the definition for the named field. The primary key is
// not listed in Fields; looking it up yields a plain text definition.
func (t *RecordType) Field(name string) (FieldDefinition, bool) {
	if name == t.PrimaryKey {
		return FieldDefinition{Kind: KindText}, true
	}
	definition, ok := t.Fields[name]
	return definition, ok
}

// Schema is the catalog of record types known to an adapter, keyed by type
// name. It is loaded once at connect time and read-only thereafter.
type Schema map[string]*RecordType

// Type returns the record type registered under name.
func (s Schema) Type(name string) (*RecordType, error) {
	recordType, ok := s[name]
	if !ok {
		return nil, &SchemaError{RecordType: name, Message: "record type not registered"}
	}
	return recordType, nil
}

/// Validate checks the catalog for internal consistency: every type needs a
// primary-key field, every link must point at a registered type, and no
// field may shadow the primary key. An empty Name defaults to the map key.
func (s Schema) Validate() error {
	for name, recordType := range s {
		if recordType == nil {
			return &SchemaError{RecordType: name, Message: "record type is nil"}
		}
		if recordType.Name == "" {
			recordType.Name = name
		}
		if recordType.PrimaryKey == "" {
			return &SchemaError{RecordType: name, Message: "record type has no primary key field"}
		}
		for fieldName, definition := range recordType.Fields {
			if fieldName == recordType.PrimaryKey {
				return &SchemaError{RecordType: name, Field: fieldName, Message: "field shadows the primary key"}
			}
			if definition.Link != "" {
				if _, ok := s[definition.Link]; !ok {
					return &SchemaError{RecordType: name, Field: fieldName,
						Message: fmt.Sprintf("link target %q not registered", definition.Link)}
				}
			}
		}
	}
	return nil
}
