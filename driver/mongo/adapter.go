// Package mongo implements the glyph adapter for MongoDB. This file
// defines the execution coordinator: collection access, document/record
// conversion, and the CRUD operations over the official driver.
package mongo

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/leandroluk/glyph/core"
)

// idField is the document field backing the primary key of every record
// type.
const idField = "_id"

// Adapter is the MongoDB implementation of core.Adapter.
//
// Unlike the PostgreSQL driver it needs no value codec for binary fields:
// the wire format carries raw byte strings natively, so values pass through
// without the hex marker round-trip.
type Adapter struct {
	uri          string
	databaseName string
	client       *mongo.Client
	schema       core.Schema
	keyGenerator core.KeyGenerator
	logger       *slog.Logger
}

var _ core.Adapter = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithKeyGenerator overrides the default primary-key generator. Passing
// nil disables generation and lets the store assign ObjectID keys.
func WithKeyGenerator(generator core.KeyGenerator) Option {
	return func(adapter *Adapter) { adapter.keyGenerator = generator }
}

// WithLogger sets the structured logger used by the adapter.
func WithLogger(logger *slog.Logger) Option {
	return func(adapter *Adapter) { adapter.logger = logger }
}

// New creates an adapter for the given connection URI, database and record
// type catalog. Connect must be called before any operation.
func New(uri string, databaseName string, schema core.Schema, options ...Option) *Adapter {
	adapter := &Adapter{
		uri:          uri,
		databaseName: databaseName,
		schema:       schema,
		keyGenerator: core.RandomKey,
		logger:       slog.Default(),
	}
	for _, option := range options {
		option(adapter)
	}
	return adapter
}

// Connect establishes the client and validates the type catalog. MongoDB
// needs no column migration; collections materialize on first write.
func (adapter *Adapter) Connect(ctx context.Context) error {
	if err := adapter.schema.Validate(); err != nil {
		return err
	}
	opts := mopt.Client().ApplyURI(adapter.uri)
	opts.SetConnectTimeout(10 * time.Second).SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return err
	}
	adapter.client = client
	adapter.logger.DebugContext(ctx, "glyph mongo adapter connected",
		"database", adapter.databaseName, "types", len(adapter.schema))
	return nil
}

// Disconnect releases the client.
func (adapter *Adapter) Disconnect(ctx context.Context) error {
	if adapter.client == nil {
		return nil
	}
	err := adapter.client.Disconnect(ctx)
	adapter.client = nil
	return err
}

// Begin starts a session transaction.
func (adapter *Adapter) Begin(ctx context.Context) (core.Transaction, error) {
	session, err := adapter.client.StartSession()
	if err != nil {
		return nil, err
	}
	if err := session.StartTransaction(); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &transaction{session: session}, nil
}

// inTransaction reports whether the context carries a transaction handle.
// A session binds a single server connection and is not safe for concurrent
// use, so concurrent statements flatten to sequential execution inside one.
func (adapter *Adapter) inTransaction(ctx context.Context) bool {
	return core.TransactionFrom(ctx) != nil
}

// withSession joins the transaction carried in the context, when present.
func (adapter *Adapter) withSession(ctx context.Context) context.Context {
	if tx := core.TransactionFrom(ctx); tx != nil {
		if mongoTx, ok := tx.(*transaction); ok {
			return mongo.NewSessionContext(ctx, mongoTx.session)
		}
	}
	return ctx
}

func (adapter *Adapter) collection(recordType *core.RecordType) *mongo.Collection {
	return adapter.client.Database(adapter.databaseName).Collection(recordType.Name)
}

// encodeDocument prepares one input record for insertion: absent declared
// fields take their zero value, the primary key is generated when absent
// and a generator is configured, and the key moves to the _id field.
func (adapter *Adapter) encodeDocument(recordType *core.RecordType, record core.Record) bson.M {
	document := bson.M{}
	for fieldName, value := range record {
		if fieldName == recordType.PrimaryKey {
			continue
		}
		document[fieldName] = value
	}
	for fieldName, definition := range recordType.Fields {
		if _, present := document[fieldName]; !present {
			document[fieldName] = definition.Zero()
		}
	}
	if id, present := record[recordType.PrimaryKey]; present {
		document[idField] = id
	} else if adapter.keyGenerator != nil {
		document[idField] = adapter.keyGenerator()
	}
	return document
}

// decodeDocument shapes one result document into a record: only declared
// fields are copied, driver wrapper types unwrap to the value model, and
// _id maps back to the primary key.
func decodeDocument(recordType *core.RecordType, document bson.M) core.Record {
	record := make(core.Record, len(recordType.Fields)+1)
	if id, ok := document[idField]; ok {
		record[recordType.PrimaryKey] = decodeBSONValue(id)
	}
	for fieldName, definition := range recordType.Fields {
		value, ok := document[fieldName]
		if !ok {
			continue
		}
		if definition.IsInverse {
			record[fieldName] = value
			continue
		}
		record[fieldName] = decodeBSONValue(value)
	}
	return record
}

// decodeBSONValue unwraps driver types: binary to raw bytes, datetimes to
// time.Time, arrays element-wise.
func decodeBSONValue(value any) any {
	switch v := value.(type) {
	case primitive.Binary:
		return v.Data
	case primitive.DateTime:
		return v.Time()
	case primitive.A:
		decodedList := make([]any, len(v))
		for i, element := range v {
			decodedList[i] = decodeBSONValue(element)
		}
		return decodedList
	default:
		return value
	}
}

// Find selects records by ids and options, returning the page and the
// total filter count. The two queries run concurrently; inside a
// transaction they run sequentially on the single session. An empty
// non-nil id list short-circuits without a store round-trip.
func (adapter *Adapter) Find(ctx context.Context, recordTypeName string, ids []any, options *core.Options) (*core.Result, error) {
	recordType, err := adapter.schema.Type(recordTypeName)
	if err != nil {
		return nil, err
	}
	if options == nil {
		options = &core.Options{}
	}

	payload := &core.FindPayload{RecordType: recordTypeName, IDs: ids, Options: options}
	err = core.Dispatch(ctx, core.OperationFind, payload, func() error {
		if ids != nil && len(ids) == 0 {
			payload.Result = &core.Result{Records: []core.Record{}}
			return nil
		}
		sessionCtx := adapter.withSession(ctx)

		filterDoc, err := buildFilter(recordType, &options.Filter)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			filterDoc = bson.M{"$and": bson.A{bson.M{idField: bson.M{"$in": ids}}, filterDoc}}
		}

		findOpts := mopt.Find()
		if projection, err := buildProjection(recordType, options.Fields); err != nil {
			return err
		} else if projection != nil {
			findOpts.SetProjection(projection)
		}
		if len(options.Sort) > 0 {
			sortDoc := bson.D{}
			for _, sortItem := range options.Sort {
				path, _, err := fieldPath(recordType, sortItem.FieldName)
				if err != nil {
					return err
				}
				direction := 1
				if sortItem.Descending {
					direction = -1
				}
				sortDoc = append(sortDoc, bson.E{Key: path, Value: direction})
			}
			findOpts.SetSort(sortDoc)
		}
		if options.Limit > 0 {
			findOpts.SetLimit(int64(options.Limit))
		}
		if options.Offset > 0 {
			findOpts.SetSkip(int64(options.Offset))
		}

		var (
			records []core.Record
			count   int64
		)
		queryData := func() error {
			cursor, err := adapter.collection(recordType).Find(sessionCtx, filterDoc, findOpts)
			if err != nil {
				return err
			}
			defer cursor.Close(sessionCtx)
			records = []core.Record{}
			for cursor.Next(sessionCtx) {
				var document bson.M
				if err := cursor.Decode(&document); err != nil {
					return err
				}
				records = append(records, decodeDocument(recordType, document))
			}
			return cursor.Err()
		}
		queryCount := func() error {
			total, err := adapter.collection(recordType).CountDocuments(sessionCtx, filterDoc)
			if err != nil {
				return err
			}
			count = total
			return nil
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

// buildProjection maps the fields option to a projection document. All
// values true is an inclusion list, otherwise the false-valued fields are
// excluded; _id rides along either way.
func buildProjection(recordType *core.RecordType, fields map[string]bool) (bson.M, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	include := true
	for _, keep := range fields {
		if !keep {
			include = false
			break
		}
	}
	projection := bson.M{}
	for _, fieldName := range sortedKeys(fields) {
		path, _, err := fieldPath(recordType, fieldName)
		if err != nil {
			return nil, err
		}
		if include {
			projection[path] = 1
		} else {
			projection[path] = 0
		}
	}
	return projection, nil
}

// Create inserts the records and returns them with primary keys assigned.
// A duplicate key error is translated into a core.ConflictError.
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
		sessionCtx := adapter.withSession(ctx)
		documentList := make([]any, len(records))
		for i, record := range records {
			document := adapter.encodeDocument(recordType, record)
			documentList[i] = document
			created[i] = record.Clone()
			if id, ok := document[idField]; ok {
				created[i][recordType.PrimaryKey] = id
			}
		}

		result, err := adapter.collection(recordType).InsertMany(sessionCtx, documentList)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return &core.ConflictError{RecordType: recordTypeName, Err: err}
			}
			return err
		}
		// Store-assigned keys are written back positionally.
		for i, insertedID := range result.InsertedIDs {
			if i < len(created) {
				created[i][recordType.PrimaryKey] = decodeBSONValue(insertedID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	core.Emit(core.EventCreate, *payload)
	return created, nil
}

// Update applies each sparse update as its own statement and returns the
// summed modified count. The statements run concurrently, or sequentially
// inside a transaction. As with the PostgreSQL driver the batch is not
// atomic: a failure partway through leaves prior updates applied.
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
		sessionCtx := adapter.withSession(ctx)
		affectedList := make([]int64, len(updates))

		runOne := func(i int) error {
			update := updates[i]
			if update.IsZero() {
				return nil
			}
			updateDoc, err := buildUpdateDocument(recordType, update)
			if err != nil {
				return err
			}
			result, err := adapter.collection(recordType).
				UpdateOne(sessionCtx, bson.M{idField: update.ID}, updateDoc)
			if err != nil {
				return err
			}
			affectedList[i] = result.ModifiedCount
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
		sessionCtx := adapter.withSession(ctx)
		filterDoc := bson.M{}
		if ids != nil {
			filterDoc = bson.M{idField: bson.M{"$in": ids}}
		}
		result, err := adapter.collection(recordType).DeleteMany(sessionCtx, filterDoc)
		if err != nil {
			return err
		}
		payload.Affected = result.DeletedCount
		return nil
	})
	if err != nil {
		return 0, err
	}

	core.Emit(core.EventDelete, *payload)
	return payload.Affected, nil
}
