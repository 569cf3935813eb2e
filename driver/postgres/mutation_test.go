package postgres

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leandroluk/glyph/core"
)

func encodeAll(t *testing.T, adapter *Adapter, records ...core.Record) []core.Record {
	t.Helper()
	encodedList := make([]core.Record, len(records))
	for i, record := range records {
		encodedList[i] = adapter.encodeRecord(testType(), record)
	}
	return encodedList
}

func TestBuildInsert_WithKeys(t *testing.T) {
	adapter := testAdapter()
	encodedList := encodeAll(t, adapter,
		core.Record{"id": "a", "name": "ann"},
		core.Record{"id": "b", "name": "bob"})

	statement := buildInsert(testType(), encodedList)

	assert.False(t, statement.returning)
	assert.Equal(t,
		`INSERT INTO "user" ("id", "active", "age", "mentions", "name", "pets", "picture", "scores", "tags") `+
			`VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9), ($10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		statement.sql)
	assert.Len(t, statement.argList, 18)
	assert.Equal(t, "a", statement.argList[0])
	assert.Equal(t, "b", statement.argList[9], "rows stay aligned by the shared column order")
}

func TestBuildInsert_WithoutKeysReturnsGenerated(t *testing.T) {
	adapter := New("", core.Schema{"user": testType()}, WithKeyGenerator(nil))
	encodedList := encodeAll(t, adapter, core.Record{"name": "ann"})

	statement := buildInsert(testType(), encodedList)

	assert.True(t, statement.returning)
	assert.NotContains(t, statement.sql, `"id"`, "the key column is omitted")
	assert.Contains(t, statement.sql, ` RETURNING "id"`)
	assert.Len(t, statement.argList, 8)
}

func TestBuildUpdate_Replace(t *testing.T) {
	sql, args, err := buildUpdate(testType(), core.Update{
		ID:      "a",
		Replace: map[string]any{"name": "new", "age": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "user" SET "age" = $1, "name" = $2 WHERE "id" = $3`, sql)
	assert.Equal(t, []any{3, "new", "a"}, args)
}

func TestBuildUpdate_ReplacePrimaryKeyRejected(t *testing.T) {
	_, _, err := buildUpdate(testType(), core.Update{
		ID:      "a",
		Replace: map[string]any{"id": "b"},
	})
	var schemaErr *core.SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestBuildUpdate_PushScalar(t *testing.T) {
	sql, args, err := buildUpdate(testType(), core.Update{
		ID:   "a",
		Push: map[string]any{"tags": "go"},
	})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "user" SET "tags" = array_append("tags", $1) WHERE "id" = $2`, sql)
	assert.Equal(t, []any{"go", "a"}, args)
}

func TestBuildUpdate_PushSequenceConcatenates(t *testing.T) {
	sql, args, err := buildUpdate(testType(), core.Update{
		ID:   "a",
		Push: map[string]any{"tags": []any{"go", "sql"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "user" SET "tags" = array_cat("tags", $1) WHERE "id" = $2`, sql)
	assert.Equal(t, []any{[]any{"go", "sql"}, "a"}, args)
}

func TestBuildUpdate_PullScalar(t *testing.T) {
	sql, args, err := buildUpdate(testType(), core.Update{
		ID:   "a",
		Pull: map[string]any{"tags": "go"},
	})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "user" SET "tags" = array_remove("tags", $1) WHERE "id" = $2`, sql)
	assert.Equal(t, []any{"go", "a"}, args)
}

func TestBuildUpdate_PullSequenceReselects(t *testing.T) {
	sql, args, err := buildUpdate(testType(), core.Update{
		ID:   "a",
		Pull: map[string]any{"tags": []any{"go", "sql"}},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`UPDATE "user" SET "tags" = coalesce(array(SELECT x FROM unnest("tags") AS x WHERE x <> ALL($1)), '{}') WHERE "id" = $2`,
		sql)
	assert.Equal(t, []any{[]any{"go", "sql"}, "a"}, args)
}

func TestBuildUpdate_PushOnScalarFieldRejected(t *testing.T) {
	_, _, err := buildUpdate(testType(), core.Update{
		ID:   "a",
		Push: map[string]any{"name": "x"},
	})
	var schemaErr *core.SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestBuildUpdate_SharedCounterAcrossSections(t *testing.T) {
	sql, args, err := buildUpdate(testType(), core.Update{
		ID:      "a",
		Replace: map[string]any{"name": "new"},
		Push:    map[string]any{"tags": "go"},
		Pull:    map[string]any{"scores": 1},
	})
	require.NoError(t, err)
	for i := range args {
		assert.Contains(t, sql, fmt.Sprintf("$%d", i+1))
	}
	assert.Equal(t, "a", args[len(args)-1], "the id binds last")
}

func TestBuildDelete_ByIDs(t *testing.T) {
	sql, args := buildDelete(testType(), []any{"a", "b"})
	assert.Equal(t, `DELETE FROM "user" WHERE "id" IN ($1, $2)`, sql)
	assert.Equal(t, []any{"a", "b"}, args)
}

func TestBuildDelete_AllRows(t *testing.T) {
	sql, args := buildDelete(testType(), nil)
	assert.Equal(t, `DELETE FROM "user"`, sql)
	assert.Empty(t, args)
}
