package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leandroluk/glyph/core"
)

func testType() *core.RecordType {
	return &core.RecordType{
		Name:       "user",
		PrimaryKey: "id",
		Fields: map[string]core.FieldDefinition{
			"name":     {Kind: core.KindText},
			"age":      {Kind: core.KindNumber},
			"active":   {Kind: core.KindBoolean},
			"picture":  {Kind: core.KindBinary},
			"tags":     {Kind: core.KindText, IsArray: true},
			"scores":   {Kind: core.KindInteger, IsArray: true},
			"pets":     {Kind: core.KindText, Link: "animal", IsArray: true},
			"mentions": {Kind: core.KindText, Link: "user", IsArray: true, IsInverse: true},
		},
	}
}

func testAdapter() *Adapter {
	return New("", core.Schema{"user": testType()})
}

func TestEncodeValue_Binary(t *testing.T) {
	encoded := encodeValue([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.Equal(t, `\xdeadbeef`, encoded)
}

func TestEncodeValue_SequenceElementWise(t *testing.T) {
	encoded := encodeValue([]any{[]byte{0x01}, "plain"})
	assert.Equal(t, []any{`\x01`, "plain"}, encoded)
}

func TestDecodeValue_BinaryRoundTrip(t *testing.T) {
	definition := core.FieldDefinition{Kind: core.KindBinary}
	original := []byte{0x00, 0xff, 0x10, 0x20}

	decoded, err := decodeValue(definition, encodeValue(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeValue_RawBinaryPassesThrough(t *testing.T) {
	definition := core.FieldDefinition{Kind: core.KindBinary}
	raw := []byte{0x01, 0x02}

	decoded, err := decodeValue(definition, raw)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestDecodeValue_InvalidHex(t *testing.T) {
	definition := core.FieldDefinition{Kind: core.KindBinary}
	_, err := decodeValue(definition, `\xzz`)
	assert.Error(t, err)
}

func TestEncodeRecord_FillsAbsentFields(t *testing.T) {
	adapter := testAdapter()
	encoded := adapter.encodeRecord(testType(), core.Record{"name": "ann"})

	assert.Equal(t, "ann", encoded["name"])
	assert.Nil(t, encoded["age"])
	assert.Equal(t, []any{}, encoded["tags"])
	assert.Equal(t, []any{}, encoded["scores"])
}

func TestEncodeRecord_GeneratesPrimaryKey(t *testing.T) {
	adapter := testAdapter()

	first := adapter.encodeRecord(testType(), core.Record{})
	second := adapter.encodeRecord(testType(), core.Record{})

	require.NotNil(t, first["id"])
	require.NotNil(t, second["id"])
	assert.Len(t, first["id"], 20)
	assert.NotEqual(t, first["id"], second["id"])
}

func TestEncodeRecord_KeepsCallerKey(t *testing.T) {
	adapter := testAdapter()
	encoded := adapter.encodeRecord(testType(), core.Record{"id": "abc"})
	assert.Equal(t, "abc", encoded["id"])
}

func TestEncodeRecord_NilGeneratorLeavesKeyAbsent(t *testing.T) {
	adapter := New("", core.Schema{"user": testType()}, WithKeyGenerator(nil))
	encoded := adapter.encodeRecord(testType(), core.Record{"name": "ann"})
	_, present := encoded["id"]
	assert.False(t, present)
}

func TestEncodeRecord_DoesNotMutateInput(t *testing.T) {
	adapter := testAdapter()
	input := core.Record{"name": "ann"}
	adapter.encodeRecord(testType(), input)
	assert.Equal(t, core.Record{"name": "ann"}, input)
}

func TestDecodeRecord_SchemaFieldsOnly(t *testing.T) {
	row := map[string]any{
		"id":       "abc",
		"name":     "ann",
		"picture":  `\xdeadbeef`,
		"mentions": []any{"u1", "u2"},
		"stray":    "dropped",
	}

	record, err := decodeRecord(testType(), row)
	require.NoError(t, err)

	assert.Equal(t, "abc", record["id"])
	assert.Equal(t, "ann", record["name"])
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, record["picture"])
	assert.Equal(t, []any{"u1", "u2"}, record["mentions"], "inverse fields pass through untouched")
	_, present := record["stray"]
	assert.False(t, present, "undeclared columns are dropped")
}
