// Package postgres implements the glyph adapter for PostgreSQL. This file
// defines the predicate compiler, which turns a filter specification into
// WHERE fragments and a positional parameter list.
package postgres

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/leandroluk/glyph/core"
)

// paramState owns the positional parameters of one statement. Placeholder
// ordinal N always refers to the Nth appended value; a single state is
// threaded through every recursive compile call so numbering stays globally
// consistent across the whole statement.
type paramState struct {
	argList []any
}

// next appends a bound value and returns its placeholder.
func (state *paramState) next(value any) string {
	state.argList = append(state.argList, value)
	return fmt.Sprintf("$%d", len(state.argList))
}

// args returns the accumulated parameter list.
func (state *paramState) args() []any {
	return state.argList
}

// arrayLength is the element count of an array column, with NULL treated
// as zero elements.
func arrayLength(column string) string {
	return fmt.Sprintf("coalesce(array_length(%s, 1), 0)", column)
}

// elementCast returns the cast suffix applied to one element of an array
// containment literal: binary elements cast to the binary storage type,
// whole numbers to integer, anything else stays uncast.
func elementCast(value any) string {
	switch v := value.(type) {
	case []byte:
		return "::bytea"
	case string:
		if strings.HasPrefix(v, binaryMarker) {
			return "::bytea"
		}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "::bigint"
	case float64:
		if v == math.Trunc(v) {
			return "::bigint"
		}
	case float32:
		if float64(v) == math.Trunc(float64(v)) {
			return "::bigint"
		}
	}
	return ""
}

// asSequence coerces a value to a sequence, wrapping scalars.
func asSequence(value any) []any {
	if list, ok := value.([]any); ok {
		return list
	}
	return []any{value}
}

// sortedKeys returns map keys in a stable order so that compiled fragments
// and placeholder assignment are deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keyList := make([]string, 0, len(m))
	for key := range m {
		keyList = append(keyList, key)
	}
	sort.Strings(keyList)
	return keyList
}

// fieldColumn resolves a filter field reference against the record type and
// returns the quoted column. An undeclared field is a compile-time failure.
func fieldColumn(recordType *core.RecordType, fieldName string) (string, core.FieldDefinition, error) {
	definition, ok := recordType.Field(fieldName)
	if !ok {
		return "", core.FieldDefinition{}, &core.SchemaError{
			RecordType: recordType.Name, Field: fieldName, Message: "field not declared"}
	}
	return fmt.Sprintf("%q", fieldName), definition, nil
}

// compileFilter compiles a filter specification into a list of WHERE
// fragments, appending bound values to state. The fragments of one filter
// combine with AND.
func compileFilter(recordType *core.RecordType, filter *core.Filter, state *paramState) ([]string, error) {
	if filter == nil {
		return nil, nil
	}
	fragmentList := []string{}

	for _, fieldName := range sortedKeys(filter.Match) {
		fragment, err := compileMatch(recordType, fieldName, filter.Match[fieldName], state)
		if err != nil {
			return nil, err
		}
		if fragment != "" {
			fragmentList = append(fragmentList, fragment)
		}
	}

	for _, fieldName := range sortedKeys(filter.Range) {
		fragments, err := compileRange(recordType, fieldName, filter.Range[fieldName], state)
		if err != nil {
			return nil, err
		}
		fragmentList = append(fragmentList, fragments...)
	}

	for _, fieldName := range sortedKeys(filter.Exists) {
		fragment, err := compileExists(recordType, fieldName, filter.Exists[fieldName])
		if err != nil {
			return nil, err
		}
		fragmentList = append(fragmentList, fragment)
	}

	for _, fieldName := range sortedKeys(filter.Contains) {
		column, definition, err := fieldColumn(recordType, fieldName)
		if err != nil {
			return nil, err
		}
		if definition.IsArray {
			return nil, &core.SchemaError{RecordType: recordType.Name, Field: fieldName,
				Message: "contains is not applicable to array fields"}
		}
		substring := filter.Contains[fieldName]
		fragmentList = append(fragmentList,
			fmt.Sprintf("%s ILIKE %s", column, state.next("%"+substring+"%")))
	}

	if len(filter.And) > 0 {
		joined, err := compileLogical(recordType, filter.And, " AND ", state)
		if err != nil {
			return nil, err
		}
		if joined != "" {
			fragmentList = append(fragmentList, joined)
		}
	}
	if len(filter.Or) > 0 {
		joined, err := compileLogical(recordType, filter.Or, " OR ", state)
		if err != nil {
			return nil, err
		}
		if joined != "" {
			fragmentList = append(fragmentList, joined)
		}
	}
	if filter.Not != nil {
		childFragmentList, err := compileFilter(recordType, filter.Not, state)
		if err != nil {
			return nil, err
		}
		if len(childFragmentList) > 0 {
			fragmentList = append(fragmentList,
				"NOT ("+strings.Join(childFragmentList, " AND ")+")")
		}
	}

	return fragmentList, nil
}

// compileLogical compiles each child filter independently and joins the
// resulting units with the boolean connective, parenthesized as one unit.
// Every child recurses through the same paramState, keeping placeholder
// numbers globally unique and strictly increasing.
//
// A child that yields no predicates matches every record. Under AND it is
// the identity and is skipped; under OR it makes the whole node true, so
// the node compiles to no fragment and any values bound for its siblings
// are unwound.
func compileLogical(recordType *core.RecordType, childList []*core.Filter, connective string, state *paramState) (string, error) {
	start := len(state.argList)
	unitList := make([]string, 0, len(childList))
	for _, child := range childList {
		childFragmentList, err := compileFilter(recordType, child, state)
		if err != nil {
			return "", err
		}
		if len(childFragmentList) == 0 {
			if connective == " OR " {
				state.argList = state.argList[:start]
				return "", nil
			}
			continue
		}
		unitList = append(unitList, "("+strings.Join(childFragmentList, " AND ")+")")
	}
	if len(unitList) == 0 {
		return "", nil
	}
	return "(" + strings.Join(unitList, connective) + ")", nil
}

// compileMatch compiles one equality/membership leaf.
func compileMatch(recordType *core.RecordType, fieldName string, value any, state *paramState) (string, error) {
	column, definition, err := fieldColumn(recordType, fieldName)
	if err != nil {
		return "", err
	}

	if definition.IsArray {
		// Array containment: every listed element must be present.
		elementList := asSequence(value)
		if len(elementList) == 0 {
			return "", nil
		}
		placeholderList := make([]string, len(elementList))
		for i, element := range elementList {
			encoded := encodeValue(element)
			placeholderList[i] = state.next(encoded) + elementCast(encoded)
		}
		return fmt.Sprintf("%s @> array[%s]", column, strings.Join(placeholderList, ", ")), nil
	}

	if valueList, ok := value.([]any); ok {
		if len(valueList) == 0 {
			// Membership in the empty set matches nothing.
			return "false", nil
		}
		placeholderList := make([]string, len(valueList))
		for i, element := range valueList {
			placeholderList[i] = state.next(encodeValue(element))
		}
		return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholderList, ", ")), nil
	}
	return fmt.Sprintf("%s = %s", column, state.next(encodeValue(value))), nil
}

// compileRange compiles one inclusive range leaf. A nil end omits its
// bound; both ends nil emit no predicate.
func compileRange(recordType *core.RecordType, fieldName string, bounds core.Bounds, state *paramState) ([]string, error) {
	column, definition, err := fieldColumn(recordType, fieldName)
	if err != nil {
		return nil, err
	}
	operand := column
	if definition.IsArray {
		// Array fields range over their element count.
		operand = arrayLength(column)
	}

	fragmentList := []string{}
	if bounds.Low != nil {
		fragmentList = append(fragmentList,
			fmt.Sprintf("%s >= %s", operand, state.next(encodeValue(bounds.Low))))
	}
	if bounds.High != nil {
		fragmentList = append(fragmentList,
			fmt.Sprintf("%s <= %s", operand, state.next(encodeValue(bounds.High))))
	}
	return fragmentList, nil
}

// compileExists compiles one presence leaf.
func compileExists(recordType *core.RecordType, fieldName string, mustExist bool) (string, error) {
	column, definition, err := fieldColumn(recordType, fieldName)
	if err != nil {
		return "", err
	}
	if definition.IsArray {
		if mustExist {
			return arrayLength(column) + " <> 0", nil
		}
		return arrayLength(column) + " = 0", nil
	}
	if mustExist {
		return column + " IS NOT NULL", nil
	}
	return column + " IS NULL", nil
}
