package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{
		"user": {
			PrimaryKey: "id",
			Fields: map[string]FieldDefinition{
				"name": {Kind: KindText},
				"tags": {Kind: KindText, IsArray: true},
				"pet":  {Kind: KindText, Link: "animal"},
			},
		},
		"animal": {
			PrimaryKey: "id",
			Fields: map[string]FieldDefinition{
				"owner": {Kind: KindText, Link: "user", IsInverse: true},
			},
		},
	}
}

func TestSchema_Validate(t *testing.T) {
	schema := testSchema()
	require.NoError(t, schema.Validate())
	assert.Equal(t, "user", schema["user"].Name, "name defaults to the map key")
}

func TestSchema_Validate_MissingLinkTarget(t *testing.T) {
	schema := testSchema()
	schema["user"].Fields["boss"] = FieldDefinition{Kind: KindText, Link: "manager"}

	err := schema.Validate()
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "user", schemaErr.RecordType)
	assert.Equal(t, "boss", schemaErr.Field)
}

func TestSchema_Validate_NoPrimaryKey(t *testing.T) {
	schema := Schema{"thing": {Fields: map[string]FieldDefinition{}}}
	var schemaErr *SchemaError
	require.ErrorAs(t, schema.Validate(), &schemaErr)
}

func TestSchema_Validate_FieldShadowsPrimaryKey(t *testing.T) {
	schema := Schema{"thing": {
		PrimaryKey: "id",
		Fields:     map[string]FieldDefinition{"id": {Kind: KindText}},
	}}
	var schemaErr *SchemaError
	require.ErrorAs(t, schema.Validate(), &schemaErr)
}

func TestRecordType_Field(t *testing.T) {
	recordType := testSchema()["user"]

	definition, ok := recordType.Field("tags")
	require.True(t, ok)
	assert.True(t, definition.IsArray)

	_, ok = recordType.Field("id")
	assert.True(t, ok, "primary key is always resolvable")

	_, ok = recordType.Field("missing")
	assert.False(t, ok)
}

func TestFieldDefinition_Zero(t *testing.T) {
	assert.Equal(t, []any{}, FieldDefinition{IsArray: true}.Zero())
	assert.Nil(t, FieldDefinition{}.Zero())
}

func TestSchema_Type_NotRegistered(t *testing.T) {
	schema := testSchema()
	_, err := schema.Type("ghost")
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}
