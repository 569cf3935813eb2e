// Package postgres implements the glyph adapter for PostgreSQL. This file
// defines connect-time schema bookkeeping: the kind to storage type mapping
// and non-destructive table/column creation.
package postgres

import (
	"context"
	"fmt"

	"github.com/leandroluk/glyph/core"
)

// storageTypeByKind maps each value kind to its storage type. The kind set
// is closed, so lookups never miss.
var storageTypeByKind = map[core.Kind]string{
	core.KindText:       "text",
	core.KindNumber:     "double precision",
	core.KindInteger:    "bigint",
	core.KindBoolean:    "boolean",
	core.KindTimestamp:  "timestamptz",
	core.KindStructured: "jsonb",
	core.KindBinary:     "bytea",
}

// primaryKeyTypes is the set of storage types accepted for the primary key
// column. Anything else is a setup error.
var primaryKeyTypes = map[string]bool{
	"text":   true,
	"uuid":   true,
	"bigint": true,
}

// storageType returns the column type for a field definition, with the
// array suffix when applicable. Inverse link fields store the linked keys.
func storageType(definition core.FieldDefinition) string {
	base := storageTypeByKind[definition.Kind]
	if definition.Link != "" || definition.IsInverse {
		base = "text"
	}
	if definition.IsArray {
		return base + "[]"
	}
	return base
}

// ensureSchema creates missing tables and adds missing columns. Creation is
// strictly additive: existing columns are never altered or dropped.
func (adapter *Adapter) ensureSchema(ctx context.Context) error {
	for _, typeName := range sortedKeys(adapter.schema) {
		recordType := adapter.schema[typeName]

		createSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%q %s PRIMARY KEY)",
			recordType.Name, recordType.PrimaryKey, adapter.primaryKeyType)
		if _, err := adapter.runner(ctx).Exec(ctx, createSQL); err != nil {
			return err
		}

		for _, fieldName := range sortedFieldNames(recordType) {
			alterSQL := fmt.Sprintf("ALTER TABLE %q ADD COLUMN IF NOT EXISTS %q %s",
				recordType.Name, fieldName, storageType(recordType.Fields[fieldName]))
			if _, err := adapter.runner(ctx).Exec(ctx, alterSQL); err != nil {
				return err
			}
		}
	}
	return nil
}
