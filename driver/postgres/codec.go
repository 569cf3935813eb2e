// Package postgres implements the glyph adapter for PostgreSQL over pgx.
// This file defines the value codec: the pure transformation between the
// application value model and the wire representation of the store.
package postgres

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/leandroluk/glyph/core"
)

// binaryMarker prefixes hex-encoded binary values on the way into the
// store. It matches the PostgreSQL hex bytea literal form, so the encoded
// string casts cleanly to the bytea storage type.
const binaryMarker = `\x`

// encodeValue maps one application value to a storage-safe scalar. Binary
// values become marker-prefixed hex strings; sequences encode element-wise;
// everything else passes through unchanged.
func encodeValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return binaryMarker + hex.EncodeToString(v)
	case []any:
		encodedList := make([]any, len(v))
		for i, element := range v {
			encodedList[i] = encodeValue(element)
		}
		return encodedList
	default:
		return value
	}
}

// decodeValue maps one storage value back to the application model for a
// field of the given definition. Binary strings carrying the marker prefix
// are hex-decoded; raw byte strings pass through; sequences decode
// element-wise.
func decodeValue(definition core.FieldDefinition, storageValue any) (any, error) {
	if list, ok := storageValue.([]any); ok {
		element := definition
		element.IsArray = false
		decodedList := make([]any, len(list))
		for i, item := range list {
			decoded, err := decodeValue(element, item)
			if err != nil {
				return nil, err
			}
			decodedList[i] = decoded
		}
		return decodedList, nil
	}

	if definition.Kind == core.KindBinary {
		if text, ok := storageValue.(string); ok && strings.HasPrefix(text, binaryMarker) {
			raw, err := hex.DecodeString(strings.TrimPrefix(text, binaryMarker))
			if err != nil {
				return nil, fmt.Errorf("postgres: decode binary value: %w", err)
			}
			return raw, nil
		}
	}
	return storageValue, nil
}

// encodeRecord prepares one input record for insertion: absent declared
// fields are filled with their zero value, the primary key is generated
// when absent and a generator is configured, and every present field is
// encoded. The input record is not mutated.
func (adapter *Adapter) encodeRecord(recordType *core.RecordType, record core.Record) core.Record {
	encoded := record.Clone()

	for fieldName, definition := range recordType.Fields {
		if _, present := encoded[fieldName]; !present {
			encoded[fieldName] = definition.Zero()
		}
	}
	if _, present := encoded[recordType.PrimaryKey]; !present {
		if adapter.keyGenerator != nil {
			encoded[recordType.PrimaryKey] = adapter.keyGenerator()
		}
	}

	for fieldName, value := range encoded {
		encoded[fieldName] = encodeValue(value)
	}
	return encoded
}

// decodeRecord shapes one result row into a record: only schema-declared
// fields are copied, binary fields are decoded, denormalized inverse fields
// pass through without value inspection, and the primary key is always
// included.
func decodeRecord(recordType *core.RecordType, row map[string]any) (core.Record, error) {
	record := make(core.Record, len(recordType.Fields)+1)

	if id, ok := row[recordType.PrimaryKey]; ok {
		record[recordType.PrimaryKey] = id
	}
	for fieldName, definition := range recordType.Fields {
		value, ok := row[fieldName]
		if !ok {
			continue
		}
		if definition.IsInverse {
			record[fieldName] = value
			continue
		}
		decoded, err := decodeValue(definition, value)
		if err != nil {
			return nil, err
		}
		record[fieldName] = decoded
	}
	return record, nil
}

// sortedFieldNames returns the declared field names of the record type in a
// stable order. Statement builders rely on it to keep column lists and
// multi-row VALUES aligned.
func sortedFieldNames(recordType *core.RecordType) []string {
	nameList := make([]string, 0, len(recordType.Fields))
	for fieldName := range recordType.Fields {
		nameList = append(nameList, fieldName)
	}
	sort.Strings(nameList)
	return nameList
}
