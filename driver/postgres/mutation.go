// Package postgres implements the glyph adapter for PostgreSQL. This file
// defines the mutation builder: batched inserts, per-record sparse updates,
// and deletes.
package postgres

import (
	"fmt"
	"strings"

	"github.com/leandroluk/glyph/core"
)

// insertStatement is the compiled form of one insert batch. When the key
// column is omitted, returning is true and the statement yields the
// store-assigned primary keys in input order.
type insertStatement struct {
	sql       string
	argList   []any
	returning bool
}

// buildInsert assembles one multi-row INSERT for the already encoded
// records. Columns are ordered deterministically (primary key first, then
// the remaining fields in a stable sort) so the VALUES rows stay aligned.
// If every record carries a primary key the keys are supplied literally;
// otherwise the key column is omitted and the statement asks the store for
// the assigned keys back.
func buildInsert(recordType *core.RecordType, encodedList []core.Record) *insertStatement {
	withKeys := true
	for _, encoded := range encodedList {
		if encoded[recordType.PrimaryKey] == nil {
			withKeys = false
			break
		}
	}

	columnList := []string{}
	if withKeys {
		columnList = append(columnList, recordType.PrimaryKey)
	}
	columnList = append(columnList, sortedFieldNames(recordType)...)

	quotedList := make([]string, len(columnList))
	for i, column := range columnList {
		quotedList[i] = fmt.Sprintf("%q", column)
	}

	state := &paramState{}
	rowList := make([]string, len(encodedList))
	for i, encoded := range encodedList {
		placeholderList := make([]string, len(columnList))
		for j, column := range columnList {
			placeholderList[j] = state.next(encoded[column])
		}
		rowList[i] = "(" + strings.Join(placeholderList, ", ") + ")"
	}

	sql := fmt.Sprintf("INSERT INTO %q (%s) VALUES %s",
		recordType.Name, strings.Join(quotedList, ", "), strings.Join(rowList, ", "))
	if !withKeys {
		sql += fmt.Sprintf(" RETURNING %q", recordType.PrimaryKey)
	}
	return &insertStatement{sql: sql, argList: state.args(), returning: !withKeys}
}

// buildUpdate assembles the statement for one sparse update. Replace sets
// the column directly; push appends to an array column (concatenating when
// the pushed value is a sequence); pull removes matching elements (a
// filtered re-selection of the array elements when pulling a sequence).
func buildUpdate(recordType *core.RecordType, update core.Update) (string, []any, error) {
	state := &paramState{}
	setList := []string{}

	for _, fieldName := range sortedKeys(update.Replace) {
		if fieldName == recordType.PrimaryKey {
			return "", nil, &core.SchemaError{RecordType: recordType.Name, Field: fieldName,
				Message: "primary key is immutable"}
		}
		column := fmt.Sprintf("%q", fieldName)
		setList = append(setList,
			fmt.Sprintf("%s = %s", column, state.next(encodeValue(update.Replace[fieldName]))))
	}

	for _, fieldName := range sortedKeys(update.Push) {
		column, err := arrayColumn(recordType, fieldName, "push")
		if err != nil {
			return "", nil, err
		}
		value := update.Push[fieldName]
		if _, isSequence := value.([]any); isSequence {
			setList = append(setList,
				fmt.Sprintf("%s = array_cat(%s, %s)", column, column, state.next(encodeValue(value))))
		} else {
			setList = append(setList,
				fmt.Sprintf("%s = array_append(%s, %s)", column, column, state.next(encodeValue(value))))
		}
	}

	for _, fieldName := range sortedKeys(update.Pull) {
		column, err := arrayColumn(recordType, fieldName, "pull")
		if err != nil {
			return "", nil, err
		}
		value := update.Pull[fieldName]
		if _, isSequence := value.([]any); isSequence {
			setList = append(setList, fmt.Sprintf(
				"%s = coalesce(array(SELECT x FROM unnest(%s) AS x WHERE x <> ALL(%s)), '{}')",
				column, column, state.next(encodeValue(value))))
		} else {
			setList = append(setList,
				fmt.Sprintf("%s = array_remove(%s, %s)", column, column, state.next(encodeValue(value))))
		}
	}

	sql := fmt.Sprintf("UPDATE %q SET %s WHERE %q = %s",
		recordType.Name, strings.Join(setList, ", "),
		recordType.PrimaryKey, state.next(encodeValue(update.ID)))
	return sql, state.args(), nil
}

// arrayColumn resolves a push/pull field reference, requiring an array
// field declaration.
func arrayColumn(recordType *core.RecordType, fieldName string, operation string) (string, error) {
	column, definition, err := fieldColumn(recordType, fieldName)
	if err != nil {
		return "", err
	}
	if !definition.IsArray {
		return "", &core.SchemaError{RecordType: recordType.Name, Field: fieldName,
			Message: operation + " requires an array field"}
	}
	return column, nil
}

// buildDelete assembles the delete statement. A nil id list deletes every
// row of the type; the empty-list no-op is handled before statement
// building.
func buildDelete(recordType *core.RecordType, ids []any) (string, []any) {
	state := &paramState{}
	sql := fmt.Sprintf("DELETE FROM %q", recordType.Name)
	if ids != nil {
		placeholderList := make([]string, len(ids))
		for i, id := range ids {
			placeholderList[i] = state.next(encodeValue(id))
		}
		sql += fmt.Sprintf(" WHERE %q IN (%s)", recordType.PrimaryKey, strings.Join(placeholderList, ", "))
	}
	return sql, state.args()
}
