// Package mongostore implements store.Store on MongoDB.
//
// Each dataset is a database and each partition a collection inside it,
// e.g. option_basic.510050. Inserts are ordered upserts on the natural key,
// so a document already stored is left alone and a failed batch leaves a
// prefix behind. On a replica set or sharded cluster each batch runs in a
// transaction and commits all or nothing.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/store"
)

// Config configures the MongoDB connection.
type Config struct {
	URI     string
	Timeout time.Duration
}

// Store is a MongoDB-backed store.Store.
type Store struct {
	client *mongo.Client
	logger *slog.Logger
	txn    bool
}

var _ store.Store = (*Store)(nil)

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := options.Client().ApplyURI(cfg.URI).SetRegistry(Registry())
	if cfg.Timeout > 0 {
		opts.SetTimeout(cfg.Timeout)
		opts.SetServerSelectionTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	s := &Store{client: client, logger: logger}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	var reply helloReply
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&reply); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("hello mongo: %w", err)
	}
	s.txn = reply.supportsTransactions()

	logger.Info("connected to mongo", "hosts", opts.Hosts, "transactions", s.txn)
	return s, nil
}

type helloReply struct {
	SetName string `bson:"setName"`
	Msg     string `bson:"msg"`
}

// Standalone servers reject transactions.
func (r helloReply) supportsTransactions() bool {
	return r.SetName != "" || r.Msg == "isdbgrid"
}

func (s *Store) collection(c store.Collection) *mongo.Collection {
	return s.client.Database(string(c.Dataset)).Collection(c.Partition)
}

// Latest implements store.Store.
func (s *Store) Latest(ctx context.Context, c store.Collection, sortKey []string, filter []store.Cond, out any) (bool, error) {
	if len(sortKey) == 0 {
		return false, fmt.Errorf("latest %s: empty sort key", c)
	}
	q := store.LatestQuery(sortKey, filter)
	if err := q.Validate(); err != nil {
		return false, fmt.Errorf("latest %s: %w", c, err)
	}

	opts := options.FindOne().SetSort(sortDoc(q.Sort)).SetProjection(bson.D{{Key: "_id", Value: 0}})
	err := s.collection(c).FindOne(ctx, filterDoc(q.Filter), opts).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("latest %s: %w", c, err)
	}
	return true, nil
}

// Find implements store.Store.
func (s *Store) Find(ctx context.Context, c store.Collection, q store.Query, out any) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("find %s: %w", c, err)
	}

	opts := options.Find().SetProjection(projectionDoc(q.Fields))
	if len(q.Sort) > 0 {
		opts.SetSort(sortDoc(q.Sort))
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cur, err := s.collection(c).Find(ctx, filterDoc(q.Filter), opts)
	if err != nil {
		return fmt.Errorf("find %s: %w", c, err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("find %s: %w", c, err)
	}
	return nil
}

// InsertMany implements store.Store. Documents whose natural key is already
// stored are counted out of the result.
func (s *Store) InsertMany(ctx context.Context, c store.Collection, docs []any) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	models, err := writeModels(c.Dataset, docs)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", c, err)
	}

	start := time.Now()
	coll := s.collection(c)
	opts := options.BulkWrite().SetOrdered(true)

	var res *mongo.BulkWriteResult
	if s.txn {
		res, err = s.bulkWriteTxn(ctx, coll, models, opts)
	} else {
		res, err = coll.BulkWrite(ctx, models, opts)
	}
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", c, err)
	}

	inserted := int(res.UpsertedCount)
	s.logger.Debug("inserted documents",
		"collection", c.String(),
		"count", inserted,
		"existing", len(docs)-inserted,
		"duration", time.Since(start),
	)
	return inserted, nil
}

func (s *Store) bulkWriteTxn(ctx context.Context, coll *mongo.Collection, models []mongo.WriteModel, opts *options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)

	out, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return coll.BulkWrite(sc, models, opts)
	})
	if err != nil {
		return nil, err
	}
	return out.(*mongo.BulkWriteResult), nil
}

// AtomicInserts implements store.Store.
func (s *Store) AtomicInserts() bool { return s.txn }

// writeModels turns docs into upserts that only set fields on insert, keyed
// by the dataset's natural key.
func writeModels(d model.Dataset, docs []any) ([]mongo.WriteModel, error) {
	key := d.NaturalKey()
	if len(key) == 0 {
		return nil, fmt.Errorf("dataset %q has no natural key", d)
	}

	reg := Registry()
	models := make([]mongo.WriteModel, 0, len(docs))
	for i, doc := range docs {
		raw, err := bson.MarshalWithRegistry(reg, doc)
		if err != nil {
			return nil, fmt.Errorf("doc %d: %w", i, err)
		}

		filter := make(bson.D, 0, len(key))
		for _, f := range key {
			v, err := bson.Raw(raw).LookupErr(f)
			if err != nil {
				return nil, fmt.Errorf("doc %d: missing key field %s", i, f)
			}
			filter = append(filter, bson.E{Key: f, Value: v})
		}

		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(bson.D{{Key: "$setOnInsert", Value: bson.Raw(raw)}}).
			SetUpsert(true))
	}
	return models, nil
}

// EnsureIndex implements store.Store.
func (s *Store) EnsureIndex(ctx context.Context, c store.Collection, idx store.Index) error {
	if err := idx.Validate(); err != nil {
		return fmt.Errorf("ensure index on %s: %w", c, err)
	}
	_, err := s.collection(c).Indexes().CreateOne(ctx, indexModel(idx))
	if err != nil {
		return fmt.Errorf("ensure index %s on %s: %w", idx.Name(), c, err)
	}
	return nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

// Close implements store.Store.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// -----------------------------------------------------------------------------
// Translation
// -----------------------------------------------------------------------------

var operators = map[store.Op]string{
	store.Eq:  "$eq",
	store.Gt:  "$gt",
	store.Gte: "$gte",
	store.Lt:  "$lt",
	store.Lte: "$lte",
}

// filterDoc groups conditions by field so that range bounds on one field
// end up in a single operator document.
func filterDoc(filter []store.Cond) bson.D {
	doc := bson.D{}
	pos := make(map[string]int)
	for _, c := range filter {
		var op bson.E
		if c.Op == store.NotContains {
			op = bson.E{Key: "$not", Value: primitive.Regex{Pattern: regexp.QuoteMeta(c.Value.(string))}}
		} else {
			op = bson.E{Key: operators[c.Op], Value: c.Value}
		}

		i, ok := pos[c.Field]
		if !ok {
			pos[c.Field] = len(doc)
			doc = append(doc, bson.E{Key: c.Field, Value: bson.D{op}})
			continue
		}
		doc[i].Value = append(doc[i].Value.(bson.D), op)
	}
	return doc
}

func sortDoc(fields []store.SortField) bson.D {
	doc := make(bson.D, 0, len(fields))
	for _, f := range fields {
		dir := 1
		if f.Desc {
			dir = -1
		}
		doc = append(doc, bson.E{Key: f.Field, Value: dir})
	}
	return doc
}

func projectionDoc(fields []string) bson.D {
	doc := bson.D{{Key: "_id", Value: 0}}
	for _, f := range fields {
		doc = append(doc, bson.E{Key: f, Value: 1})
	}
	return doc
}

func indexModel(idx store.Index) mongo.IndexModel {
	keys := make(bson.D, 0, len(idx.Fields))
	for _, f := range idx.Fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	return mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetName(idx.Name()).SetUnique(idx.Unique),
	}
}
