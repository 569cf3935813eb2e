package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leandroluk/glyph/core"
)

func TestBuildFind_Defaults(t *testing.T) {
	adapter := testAdapter()
	statements, err := adapter.buildFind(testType(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "id", "active", "age", "mentions", "name", "pets", "picture", "scores", "tags" FROM "user"`,
		statements.selectSQL)
	assert.Equal(t, `SELECT count(*) FROM "user"`, statements.countSQL)
	assert.Empty(t, statements.argList)
}

func TestBuildFind_InclusionProjection(t *testing.T) {
	adapter := testAdapter()
	statements, err := adapter.buildFind(testType(), nil, &core.Options{
		Fields: map[string]bool{"name": true, "age": true},
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "age", "name" FROM "user"`, statements.selectSQL,
		"primary key is always included")
}

func TestBuildFind_ExclusionProjection(t *testing.T) {
	adapter := testAdapter()
	statements, err := adapter.buildFind(testType(), nil, &core.Options{
		Fields: map[string]bool{"picture": false},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "id", "active", "age", "mentions", "name", "pets", "scores", "tags" FROM "user"`,
		statements.selectSQL)
}

func TestBuildFind_ProjectionUnknownField(t *testing.T) {
	adapter := testAdapter()
	_, err := adapter.buildFind(testType(), nil, &core.Options{
		Fields: map[string]bool{"ghost": true},
	})
	var schemaErr *core.SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestBuildFind_IDsCompileAheadOfFilter(t *testing.T) {
	adapter := testAdapter()
	options := &core.Options{}
	options.Match = map[string]any{"name": "ann"}

	statements, err := adapter.buildFind(testType(), []any{"a", "b"}, options)
	require.NoError(t, err)

	assert.Contains(t, statements.selectSQL, `WHERE "id" IN ($1, $2) AND "name" = $3`)
	assert.Contains(t, statements.countSQL, `WHERE "id" IN ($1, $2) AND "name" = $3`,
		"count reflects the whole filter, not only the id window")
	assert.Equal(t, []any{"a", "b", "ann"}, statements.argList)
}

func TestBuildFind_SortAndPagination(t *testing.T) {
	adapter := testAdapter()
	statements, err := adapter.buildFind(testType(), nil, &core.Options{
		Sort:   []core.Sort{{FieldName: "age", Descending: true}, {FieldName: "tags"}},
		Limit:  10,
		Offset: 20,
	})
	require.NoError(t, err)

	assert.Contains(t, statements.selectSQL,
		` ORDER BY "age" DESC, coalesce(array_length("tags", 1), 0) ASC`)
	assert.Contains(t, statements.selectSQL, ` LIMIT 10 OFFSET 20`)

	assert.NotContains(t, statements.countSQL, "ORDER BY")
	assert.NotContains(t, statements.countSQL, "LIMIT")
	assert.NotContains(t, statements.countSQL, "OFFSET")
}

func TestBuildFind_SortUnknownField(t *testing.T) {
	adapter := testAdapter()
	_, err := adapter.buildFind(testType(), nil, &core.Options{
		Sort: []core.Sort{{FieldName: "ghost"}},
	})
	var schemaErr *core.SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestBuildFind_SharedParameterListAcrossStatements(t *testing.T) {
	adapter := testAdapter()
	options := &core.Options{}
	options.Range = map[string]core.Bounds{"age": {Low: 1, High: 2}}
	options.Limit = 5

	statements, err := adapter.buildFind(testType(), nil, options)
	require.NoError(t, err)

	assert.Len(t, statements.argList, 2,
		"pagination is interpolated, never parameterized")
}
