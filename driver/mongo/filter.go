// Package mongo implements the glyph adapter for MongoDB. This file
// compiles the filter specification into bson filter documents.
package mongo

import (
	"regexp"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/leandroluk/glyph/core"
)

// sortedKeys returns map keys in a stable order so compiled documents are
// deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keyList := make([]string, 0, len(m))
	for key := range m {
		keyList = append(keyList, key)
	}
	sort.Strings(keyList)
	return keyList
}

// fieldPath resolves a filter field reference against the record type and
// returns the document path. The primary key maps to the _id field.
func fieldPath(recordType *core.RecordType, fieldName string) (string, core.FieldDefinition, error) {
	definition, ok := recordType.Field(fieldName)
	if !ok {
		return "", core.FieldDefinition{}, &core.SchemaError{
			RecordType: recordType.Name, Field: fieldName, Message: "field not declared"}
	}
	if fieldName == recordType.PrimaryKey {
		return idField, definition, nil
	}
	return fieldName, definition, nil
}

// arraySize is the element count of an array field, with a missing or null
// field treated as empty.
func arraySize(path string) bson.M {
	return bson.M{"$size": bson.M{"$ifNull": bson.A{"$" + path, bson.A{}}}}
}

// buildFilter compiles a filter specification into one bson document.
func buildFilter(recordType *core.RecordType, filter *core.Filter) (bson.M, error) {
	if filter.IsZero() {
		return bson.M{}, nil
	}
	clauseList := bson.A{}

	for _, fieldName := range sortedKeys(filter.Match) {
		path, definition, err := fieldPath(recordType, fieldName)
		if err != nil {
			return nil, err
		}
		value := filter.Match[fieldName]
		switch {
		case definition.IsArray:
			clauseList = append(clauseList, bson.M{path: bson.M{"$all": asSequence(value)}})
		default:
			if valueList, ok := value.([]any); ok {
				clauseList = append(clauseList, bson.M{path: bson.M{"$in": valueList}})
			} else {
				clauseList = append(clauseList, bson.M{path: value})
			}
		}
	}

	for _, fieldName := range sortedKeys(filter.Range) {
		path, definition, err := fieldPath(recordType, fieldName)
		if err != nil {
			return nil, err
		}
		bounds := filter.Range[fieldName]
		if bounds.Low == nil && bounds.High == nil {
			continue
		}
		if definition.IsArray {
			// Array fields range over their element count.
			if bounds.Low != nil {
				clauseList = append(clauseList,
					bson.M{"$expr": bson.M{"$gte": bson.A{arraySize(path), bounds.Low}}})
			}
			if bounds.High != nil {
				clauseList = append(clauseList,
					bson.M{"$expr": bson.M{"$lte": bson.A{arraySize(path), bounds.High}}})
			}
			continue
		}
		rangeDoc := bson.M{}
		if bounds.Low != nil {
			rangeDoc["$gte"] = bounds.Low
		}
		if bounds.High != nil {
			rangeDoc["$lte"] = bounds.High
		}
		clauseList = append(clauseList, bson.M{path: rangeDoc})
	}

	for _, fieldName := range sortedKeys(filter.Exists) {
		path, definition, err := fieldPath(recordType, fieldName)
		if err != nil {
			return nil, err
		}
		mustExist := filter.Exists[fieldName]
		if definition.IsArray {
			operator := "$eq"
			if mustExist {
				operator = "$ne"
			}
			clauseList = append(clauseList,
				bson.M{"$expr": bson.M{operator: bson.A{arraySize(path), 0}}})
			continue
		}
		if mustExist {
			clauseList = append(clauseList, bson.M{path: bson.M{"$ne": nil}})
		} else {
			clauseList = append(clauseList, bson.M{path: nil})
		}
	}

	for _, fieldName := range sortedKeys(filter.Contains) {
		path, _, err := fieldPath(recordType, fieldName)
		if err != nil {
			return nil, err
		}
		// Case-insensitive literal substring; the pattern metacharacters of
		// the substring are quoted for the regex engine.
		pattern := regexp.QuoteMeta(filter.Contains[fieldName])
		clauseList = append(clauseList, bson.M{path: primitive.Regex{Pattern: pattern, Options: "i"}})
	}

	if len(filter.And) > 0 {
		childList, err := buildChildList(recordType, filter.And)
		if err != nil {
			return nil, err
		}
		clauseList = append(clauseList, bson.M{"$and": childList})
	}
	if len(filter.Or) > 0 {
		childList, err := buildChildList(recordType, filter.Or)
		if err != nil {
			return nil, err
		}
		clauseList = append(clauseList, bson.M{"$or": childList})
	}
	if filter.Not != nil {
		child, err := buildFilter(recordType, filter.Not)
		if err != nil {
			return nil, err
		}
		clauseList = append(clauseList, bson.M{"$nor": bson.A{child}})
	}

	switch len(clauseList) {
	case 0:
		return bson.M{}, nil
	case 1:
		return clauseList[0].(bson.M), nil
	default:
		return bson.M{"$and": clauseList}, nil
	}
}

// buildChildList compiles each child filter into its own document.
func buildChildList(recordType *core.RecordType, childList []*core.Filter) (bson.A, error) {
	documentList := make(bson.A, 0, len(childList))
	for _, child := range childList {
		document, err := buildFilter(recordType, child)
		if err != nil {
			return nil, err
		}
		documentList = append(documentList, document)
	}
	return documentList, nil
}

// asSequence coerces a value to a sequence, wrapping scalars.
func asSequence(value any) []any {
	if list, ok := value.([]any); ok {
		return list
	}
	return []any{value}
}

// buildUpdateDocument compiles one sparse update into a bson update
// document: $set for replace, $push with $each for array append, $pullAll
// or $pull for element removal.
func buildUpdateDocument(recordType *core.RecordType, update core.Update) (bson.M, error) {
	document := bson.M{}

	if len(update.Replace) > 0 {
		set := bson.M{}
		for _, fieldName := range sortedKeys(update.Replace) {
			if fieldName == recordType.PrimaryKey {
				return nil, &core.SchemaError{RecordType: recordType.Name, Field: fieldName,
					Message: "primary key is immutable"}
			}
			if _, ok := recordType.Field(fieldName); !ok {
				return nil, &core.SchemaError{RecordType: recordType.Name, Field: fieldName,
					Message: "field not declared"}
			}
			set[fieldName] = update.Replace[fieldName]
		}
		document["$set"] = set
	}

	if len(update.Push) > 0 {
		push := bson.M{}
		for _, fieldName := range sortedKeys(update.Push) {
			if err := requireArray(recordType, fieldName, "push"); err != nil {
				return nil, err
			}
			push[fieldName] = bson.M{"$each": asSequence(update.Push[fieldName])}
		}
		document["$push"] = push
	}

	if len(update.Pull) > 0 {
		pullAll := bson.M{}
		for _, fieldName := range sortedKeys(update.Pull) {
			if err := requireArray(recordType, fieldName, "pull"); err != nil {
				return nil, err
			}
			pullAll[fieldName] = asSequence(update.Pull[fieldName])
		}
		document["$pullAll"] = pullAll
	}

	return document, nil
}

func requireArray(recordType *core.RecordType, fieldName string, operation string) error {
	definition, ok := recordType.Field(fieldName)
	if !ok {
		return &core.SchemaError{RecordType: recordType.Name, Field: fieldName,
			Message: "field not declared"}
	}
	if !definition.IsArray {
		return &core.SchemaError{RecordType: recordType.Name, Field: fieldName,
			Message: operation + " requires an array field"}
	}
	return nil
}
