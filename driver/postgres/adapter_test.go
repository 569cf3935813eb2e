package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leandroluk/glyph/core"
)

// The no-op paths must not touch the store at all: the adapters below are
// never connected, so any round-trip would panic on the nil pool.

func TestFind_EmptyIDListShortCircuits(t *testing.T) {
	adapter := testAdapter()

	result, err := adapter.Find(context.Background(), "user", []any{}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Zero(t, result.Count)
}

func TestCreate_EmptyRecordListIsNoOp(t *testing.T) {
	adapter := testAdapter()

	created, err := adapter.Create(context.Background(), "user", nil)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestUpdate_EmptyBatchIsNoOp(t *testing.T) {
	adapter := testAdapter()

	affected, err := adapter.Update(context.Background(), "user", nil)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestDelete_EmptyIDListIsNoOp(t *testing.T) {
	adapter := testAdapter()

	affected, err := adapter.Delete(context.Background(), "user", []any{})
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestAdapter_UnknownRecordType(t *testing.T) {
	adapter := testAdapter()

	var schemaErr *core.SchemaError
	_, err := adapter.Find(context.Background(), "ghost", nil, nil)
	require.ErrorAs(t, err, &schemaErr)

	_, err = adapter.Create(context.Background(), "ghost", []core.Record{{}})
	require.ErrorAs(t, err, &schemaErr)
}

func TestTranslateInsertError_UniqueViolation(t *testing.T) {
	raw := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "user_email_key"}

	err := translateInsertError("user", fmt.Errorf("exec: %w", raw))
	var conflict *core.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "user", conflict.RecordType)
	assert.ErrorIs(t, err, raw)
}

func TestTranslateInsertError_OtherErrorsPassThrough(t *testing.T) {
	raw := &pgconn.PgError{Code: "42P01"}
	assert.Equal(t, raw, translateInsertError("user", raw))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, translateInsertError("user", plain))

	assert.NoError(t, translateInsertError("user", nil))
}

func TestStorageType_MappingTable(t *testing.T) {
	assert.Equal(t, "text", storageType(core.FieldDefinition{Kind: core.KindText}))
	assert.Equal(t, "bytea", storageType(core.FieldDefinition{Kind: core.KindBinary}))
	assert.Equal(t, "double precision[]", storageType(core.FieldDefinition{Kind: core.KindNumber, IsArray: true}))
	assert.Equal(t, "jsonb", storageType(core.FieldDefinition{Kind: core.KindStructured}))
	assert.Equal(t, "text[]", storageType(core.FieldDefinition{Kind: core.KindText, Link: "user", IsArray: true}))
}

func TestConnect_InvalidPrimaryKeyType(t *testing.T) {
	adapter := New("", core.Schema{"user": testType()}, WithPrimaryKeyType("blob"))

	err := adapter.Connect(context.Background())
	var schemaErr *core.SchemaError
	require.ErrorAs(t, err, &schemaErr)
}
