// Package postgres implements the glyph adapter for PostgreSQL. This file
// defines the query assembler, which composes column projection, filter,
// ordering and pagination into a SELECT statement and its paired COUNT.
package postgres

import (
	"fmt"
	"strings"

	"github.com/leandroluk/glyph/core"
)

// findStatements is the compiled form of one find request: the data
// statement, the count statement (same filter, no ordering or pagination),
// and the parameter list shared by both.
type findStatements struct {
	selectSQL string
	countSQL  string
	argList   []any
}

// projectColumns resolves the column projection. A map whose values are all
// true is an inclusion list, any false value turns it into an exclusion
// list; the primary key is always included. A nil map selects everything.
func projectColumns(recordType *core.RecordType, fields map[string]bool) ([]string, error) {
	declaredList := sortedFieldNames(recordType)

	selected := []string{recordType.PrimaryKey}
	if len(fields) == 0 {
		return append(selected, declaredList...), nil
	}

	include := true
	for _, keep := range fields {
		if !keep {
			include = false
			break
		}
	}

	for fieldName := range fields {
		if _, ok := recordType.Field(fieldName); !ok {
			return nil, &core.SchemaError{RecordType: recordType.Name, Field: fieldName,
				Message: "field not declared"}
		}
	}

	for _, fieldName := range declaredList {
		listed := fields[fieldName]
		_, inMap := fields[fieldName]
		if include && inMap && listed {
			selected = append(selected, fieldName)
		}
		if !include && !inMap {
			selected = append(selected, fieldName)
		}
	}
	return selected, nil
}

// buildFind assembles the data and count statements for one find request.
// The ids predicate, when present, compiles ahead of the other filters;
// both statements share one parameter list.
func (adapter *Adapter) buildFind(recordType *core.RecordType, ids []any, options *core.Options) (*findStatements, error) {
	if options == nil {
		options = &core.Options{}
	}
	state := &paramState{}

	columnList, err := projectColumns(recordType, options.Fields)
	if err != nil {
		return nil, err
	}
	quotedList := make([]string, len(columnList))
	for i, column := range columnList {
		quotedList[i] = fmt.Sprintf("%q", column)
	}

	fragmentList := []string{}
	if len(ids) > 0 {
		placeholderList := make([]string, len(ids))
		for i, id := range ids {
			placeholderList[i] = state.next(encodeValue(id))
		}
		fragmentList = append(fragmentList,
			fmt.Sprintf("%q IN (%s)", recordType.PrimaryKey, strings.Join(placeholderList, ", ")))
	}

	filterFragmentList, err := compileFilter(recordType, &options.Filter, state)
	if err != nil {
		return nil, err
	}
	fragmentList = append(fragmentList, filterFragmentList...)

	whereClause := ""
	if len(fragmentList) > 0 {
		whereClause = " WHERE " + strings.Join(fragmentList, " AND ")
	}

	table := fmt.Sprintf("%q", recordType.Name)
	selectSQL := fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(quotedList, ", "), table, whereClause)
	countSQL := fmt.Sprintf("SELECT count(*) FROM %s%s", table, whereClause)

	orderClause, err := buildOrder(recordType, options.Sort)
	if err != nil {
		return nil, err
	}
	selectSQL += orderClause

	if options.Limit > 0 {
		selectSQL += fmt.Sprintf(" LIMIT %d", options.Limit)
	}
	if options.Offset > 0 {
		selectSQL += fmt.Sprintf(" OFFSET %d", options.Offset)
	}

	return &findStatements{selectSQL: selectSQL, countSQL: countSQL, argList: state.args()}, nil
}

// buildOrder assembles the ORDER BY clause. Array fields order by their
// element count rather than by value.
func buildOrder(recordType *core.RecordType, sortList []core.Sort) (string, error) {
	if len(sortList) == 0 {
		return "", nil
	}
	partList := make([]string, 0, len(sortList))
	for _, sortItem := range sortList {
		column, definition, err := fieldColumn(recordType, sortItem.FieldName)
		if err != nil {
			return "", err
		}
		operand := column
		if definition.IsArray {
			operand = arrayLength(column)
		}
		direction := "ASC"
		if sortItem.Descending {
			direction = "DESC"
		}
		partList = append(partList, operand+" "+direction)
	}
	return " ORDER BY " + strings.Join(partList, ", "), nil
}
