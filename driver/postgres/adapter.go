// Package postgres implements the glyph adapter for PostgreSQL. This file
// defines the execution coordinator: it sequences statement building, store
// execution over pgx, and error translation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/leandroluk/glyph/core"
)

// Store error codes consumed by the coordinator.
const (
	// uniqueViolationCode is translated into a core.ConflictError on insert.
	uniqueViolationCode = "23505"
	// undefinedColumnCode is treated as zero rows affected on update.
	undefinedColumnCode = "42703"
)

// DBTX is the statement execution surface shared by *pgxpool.Pool and
// pgx.Tx, letting every operation run inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Adapter is the PostgreSQL implementation of core.Adapter.
type Adapter struct {
	connString     string
	pool           *pgxpool.Pool
	schema         core.Schema
	keyGenerator   core.KeyGenerator
	primaryKeyType string
	logger         *slog.Logger
}

var _ core.Adapter = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithKeyGenerator overrides the default primary-key generator. Passing nil
// disables generation: inserts without keys then ask the store for the
// assigned keys back.
func WithKeyGenerator(generator core.KeyGenerator) Option {
	return func(adapter *Adapter) { adapter.keyGenerator = generator }
}

// WithPrimaryKeyType overrides the storage type of primary-key columns.
// Accepted types are text (default), uuid and bigint.
func WithPrimaryKeyType(storageType string) Option {
	return func(adapter *Adapter) { adapter.primaryKeyType = storageType }
}

// WithLogger sets the structured logger used by the adapter.
func WithLogger(logger *slog.Logger) Option {
	return func(adapter *Adapter) { adapter.logger = logger }
}

// New creates an adapter for the given connection string and record type
// catalog. Connect must be called before any operation.
func New(connString string, schema core.Schema, options ...Option) *Adapter {
	adapter := &Adapter{
		connString:     connString,
		schema:         schema,
		keyGenerator:   core.RandomKey,
		primaryKeyType: "text",
		logger:         slog.Default(),
	}
	for _, option := range options {
		option(adapter)
	}
	return adapter
}

// runner picks the statement execution surface: the transaction carried in
// the context when present, the pool otherwise.
func (adapter *Adapter) runner(ctx context.Context) DBTX {
	if tx := core.TransactionFrom(ctx); tx != nil {
		if pgTx, ok := tx.(*transaction); ok {
			return pgTx.tx
		}
	}
	return adapter.pool
}

// inTransaction reports whether the context carries a transaction handle.
// A transaction binds a single connection, so concurrent statements flatten
// to sequential execution inside one.
func (adapter *Adapter) inTransaction(ctx context.Context) bool {
	return core.TransactionFrom(ctx) != nil
}

// Connect acquires the pool, validates the type catalog and applies the
// additive column migration.
func (adapter *Adapter) Connect(ctx context.Context) error {
	if err := adapter.schema.Validate(); err != nil {
		return err
	}
	if !primaryKeyTypes[adapter.primaryKeyType] {
		return &core.SchemaError{RecordType: "*",
			Message: fmt.Sprintf("invalid primary key type %q", adapter.primaryKeyType)}
	}

	pool, err := pgxpool.New(ctx, adapter.connString)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return err
	}
	adapter.pool = pool

	if err := adapter.ensureSchema(ctx); err != nil {
		adapter.pool.Close()
		adapter.pool = nil
		return err
	}
	adapter.logger.DebugContext(ctx, "glyph postgres adapter connected",
		"types", len(adapter.schema))
	return nil
}

// Disconnect releases the pool.
func (adapter *Adapter) Disconnect(ctx context.Context) error {
	if adapter.pool != nil {
		adapter.pool.Close()
		adapter.pool = nil
	}
	return nil
}

// Begin opens a transaction bound to one pooled connection.
func (adapter *Adapter) Begin(ctx context.Context) (core.Transaction, error) {
	tx, err := adapter.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &transaction{tx: tx}, nil
}

// Find executes the find statements and shapes the result. The data and
// count statements run concurrently and both join before returning; inside
// a transaction they run sequentially on the single bound connection. An
// empty non-nil id list short-circuits without a store round-trip.
func (adapter *Adapter) Find(ctx context.Context, recordTypeName string, ids []any, options *core.Options) (*core.Result, error) {
	recordType, err := adapter.schema.Type(recordTypeName)
	if err != nil {
		return nil, err
	}

	payload := &core.FindPayload{RecordType: recordTypeName, IDs: ids, Options: options}
	err = core.Dispatch(ctx, core.OperationFind, payload, func() error {
		if ids != nil && len(ids) == 0 {
			payload.Result = &core.Result{Records: []core.Record{}}
			return nil
		}

		statements, err := adapter.buildFind(recordType, ids, options)
		if err != nil {
			return err
		}

		var (
			records []core.Record
			count   int64
		)
		queryData := func() error {
			rowList, err := adapter.queryRows(ctx, statements.selectSQL, statements.argList)
			if err != nil {
				return err
			}
			records = make([]core.Record, 0, len(rowList))
			for _, row := range rowList {
				record, err := decodeRecord(recordType, row)
				if err != nil {
					return err
				}
				records = append(records, record)
			}
			return nil
		}
		queryCount := func() error {
			return adapter.runner(ctx).
				QueryRow(ctx, statements.countSQL, statements.argList...).
				Scan(&count)
		}

		if adapter.inTransaction(ctx) {
			if err := queryData(); err != nil {
				return err
			}
			if err := queryCount(); err != nil {
				return err
			}
		} else {
			var group errgroup.Group
			group.Go(queryData)
			group.Go(queryCount)
			if err := group.Wait(); err != nil {
				return err
			}
		}

		payload.Result = &core.Result{Records: records, Count: count}
		return nil
	})
	if err != nil {
		return nil, err
	}

	core.Emit(core.EventFind, *payload)
	return payload.Result, nil
}

// queryRows executes a statement and materializes every row as a column
// name keyed map.
func (adapter *Adapter) queryRows(ctx context.Context, sql string, argList []any) ([]map[string]any, error) {
	rowList, err := adapter.runner(ctx).Query(ctx, sql, argList...)
	if err != nil {
		return nil, err
	}
	defer rowList.Close()

	descriptionList := rowList.FieldDescriptions()
	var resultList []map[string]any
	for rowList.Next() {
		valueList, err := rowList.Values()
		if err != nil {
			return nil, err
		}
		rowMap := make(map[string]any, len(descriptionList))
		for i, description := range descriptionList {
			rowMap[string(description.Name)] = valueList[i]
		}
		resultList = append(resultList, rowMap)
	}
	return resultList, rowList.Err()
}

// Create encodes and inserts the records, returning them with primary keys
// assigned. A unique-constraint violation is translated into a
// core.ConflictError; any other store error propagates unchanged.
func (adapter *Adapter) Create(ctx context.Context, recordTypeName string, records []core.Record) ([]core.Record, error) {
	recordType, err := adapter.schema.Type(recordTypeName)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []core.Record{}, nil
	}

	created := make([]core.Record, len(records))
	payload := &core.CreatePayload{RecordType: recordTypeName, Records: created}
	err = core.Dispatch(ctx, core.OperationCreate, payload, func() error {
		encodedList := make([]core.Record, len(records))
		for i, record := range records {
			encodedList[i] = adapter.encodeRecord(recordType, record)
			created[i] = record.Clone()
			if key := encodedList[i][recordType.PrimaryKey]; key != nil {
				created[i][recordType.PrimaryKey] = key
			}
		}

		statement := buildInsert(recordType, encodedList)
		if statement.returning {
			rowList, err := adapter.runner(ctx).Query(ctx, statement.sql, statement.argList...)
			if err != nil {
				return translateInsertError(recordTypeName, err)
			}
			defer rowList.Close()
			index := 0
			for rowList.Next() {
				var key any
				if err := rowList.Scan(&key); err != nil {
					return err
				}
				if index < len(created) {
					created[index][recordType.PrimaryKey] = key
				}
				index++
			}
			return translateInsertError(recordTypeName, rowList.Err())
		}

		_, err := adapter.runner(ctx).Exec(ctx, statement.sql, statement.argList...)
		return translateInsertError(recordTypeName, err)
	})
	if err != nil {
		return nil, err
	}

	core.Emit(core.EventCreate, *payload)
	return created, nil
}

// translateInsertError maps the store's unique-violation code to the
// domain conflict error; anything else passes through.
func translateInsertError(recordTypeName string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return &core.ConflictError{RecordType: recordTypeName, Err: err}
	}
	return err
}

// Update applies each sparse update as its own statement and returns the
// summed affected-row count. The per-record statements run concurrently
// (sequentially inside a transaction) and all join before summing; the
// batch is not atomic, so a failure partway through leaves the updates
// that already ran applied. An update against a column the store does not
// know counts zero rows instead of failing.
func (adapter *Adapter) Update(ctx context.Context, recordTypeName string, updates []core.Update) (int64, error) {
	recordType, err := adapter.schema.Type(recordTypeName)
	if err != nil {
		return 0, err
	}
	if len(updates) == 0 {
		return 0, nil
	}

	payload := &core.UpdatePayload{RecordType: recordTypeName, Updates: updates}
	err = core.Dispatch(ctx, core.OperationUpdate, payload, func() error {
		affectedList := make([]int64, len(updates))

		runOne := func(i int) error {
			update := updates[i]
			if update.IsZero() {
				return nil
			}
			sql, argList, err := buildUpdate(recordType, update)
			if err != nil {
				return err
			}
			tag, err := adapter.runner(ctx).Exec(ctx, sql, argList...)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == undefinedColumnCode {
					return nil
				}
				return err
			}
			affectedList[i] = tag.RowsAffected()
			return nil
		}

		if adapter.inTransaction(ctx) {
			for i := range updates {
				if err := runOne(i); err != nil {
					return err
				}
			}
		} else {
			var group errgroup.Group
			for i := range updates {
				i := i
				group.Go(func() error { return runOne(i) })
			}
			if err := group.Wait(); err != nil {
				return err
			}
		}

		for _, affected := range affectedList {
			payload.Affected += affected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	core.Emit(core.EventUpdate, *payload)
	return payload.Affected, nil
}

// Delete removes records by id, or every record of the type when ids is
// nil. An explicitly empty id list is a no-op returning zero.
func (adapter *Adapter) Delete(ctx context.Context, recordTypeName string, ids []any) (int64, error) {
	recordType, err := adapter.schema.Type(recordTypeName)
	if err != nil {
		return 0, err
	}
	if ids != nil && len(ids) == 0 {
		return 0, nil
	}

	payload := &core.DeletePayload{RecordType: recordTypeName, IDs: ids}
	err = core.Dispatch(ctx, core.OperationDelete, payload, func() error {
		sql, argList := buildDelete(recordType, ids)
		tag, err := adapter.runner(ctx).Exec(ctx, sql, argList...)
		if err != nil {
			return err
		}
		payload.Affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}

	core.Emit(core.EventDelete, *payload)
	return payload.Affected, nil
}
