// Package memstore is an in-process store.Store.
//
// Documents are kept in their JSON form and compared the way PostgreSQL
// compares jsonb values, so results match pgstore: numbers order
// numerically and strings (including RFC 3339 UTC timestamps) order
// lexicographically. Unique indexes are enforced on insert.
package memstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rickgao/option-data/internal/store"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memstore: closed")

type document = map[string]any

type collection struct {
	docs    []document
	indexes []store.Index
	keys    map[string]struct{}
}

// Store holds collections in memory. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	colls  map[store.Collection]*collection
	closed bool
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{colls: make(map[store.Collection]*collection)}
}

// Len returns the number of documents in c.
func (s *Store) Len(c store.Collection) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if coll, ok := s.colls[c]; ok {
		return len(coll.docs)
	}
	return 0
}

// Latest implements store.Store.
func (s *Store) Latest(ctx context.Context, c store.Collection, sortKey []string, filter []store.Cond, out any) (bool, error) {
	if len(sortKey) == 0 {
		return false, fmt.Errorf("latest %s: empty sort key", c)
	}
	docs, err := s.query(ctx, c, store.LatestQuery(sortKey, filter))
	if err != nil {
		return false, fmt.Errorf("latest %s: %w", c, err)
	}
	if len(docs) == 0 {
		return false, nil
	}
	if err := decode(docs[0], out); err != nil {
		return false, fmt.Errorf("latest %s: %w", c, err)
	}
	return true, nil
}

// Find implements store.Store.
func (s *Store) Find(ctx context.Context, c store.Collection, q store.Query, out any) error {
	docs, err := s.query(ctx, c, q)
	if err != nil {
		return fmt.Errorf("find %s: %w", c, err)
	}
	if docs == nil {
		docs = []document{}
	}
	if err := decode(docs, out); err != nil {
		return fmt.Errorf("find %s: %w", c, err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, c store.Collection, q store.Query) ([]document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	filter, err := encodeFilter(q.Filter)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	coll, ok := s.colls[c]
	if !ok {
		return nil, nil
	}

	var docs []document
	for _, d := range coll.docs {
		if matchAll(d, filter) {
			docs = append(docs, d)
		}
	}
	if len(q.Sort) > 0 {
		sort.SliceStable(docs, func(i, j int) bool {
			for _, f := range q.Sort {
				cmp := compareField(docs[i], docs[j], f.Field)
				if cmp == 0 {
					continue
				}
				if f.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}
	if q.Limit > 0 && int64(len(docs)) > q.Limit {
		docs = docs[:q.Limit]
	}
	if len(q.Fields) > 0 {
		projected := make([]document, len(docs))
		for i, d := range docs {
			p := make(document, len(q.Fields))
			for _, f := range q.Fields {
				if v, ok := d[f]; ok {
					p[f] = v
				}
			}
			projected[i] = p
		}
		docs = projected
	}
	return docs, nil
}

// InsertMany implements store.Store. The batch is applied atomically:
// either every non-conflicting document is stored or none is.
func (s *Store) InsertMany(ctx context.Context, c store.Collection, docs []any) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("insert %s: %w", c, err)
	}

	encoded := make([]document, len(docs))
	for i, d := range docs {
		doc, err := encodeDocument(d)
		if err != nil {
			return 0, fmt.Errorf("insert %s: document %d: %w", c, i, err)
		}
		encoded[i] = doc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	coll := s.collection(c)

	inserted := 0
	for _, doc := range encoded {
		keys := uniqueKeys(coll.indexes, doc)
		if coll.conflicts(keys) {
			continue
		}
		for _, k := range keys {
			coll.keys[k] = struct{}{}
		}
		coll.docs = append(coll.docs, doc)
		inserted++
	}
	return inserted, nil
}

// AtomicInserts implements store.Store.
func (s *Store) AtomicInserts() bool { return true }

// EnsureIndex implements store.Store. Creating a unique index over
// documents that already violate it fails.
func (s *Store) EnsureIndex(ctx context.Context, c store.Collection, idx store.Index) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := idx.Validate(); err != nil {
		return fmt.Errorf("ensure index on %s: %w", c, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	coll := s.collection(c)
	for _, existing := range coll.indexes {
		if existing.Name() == idx.Name() {
			return nil
		}
	}
	if idx.Unique {
		added := make(map[string]struct{})
		for _, doc := range coll.docs {
			k, ok := indexKey(idx, doc)
			if !ok {
				continue
			}
			if _, dup := added[k]; dup {
				return fmt.Errorf("ensure index %s on %s: duplicate key", idx.Name(), c)
			}
			added[k] = struct{}{}
		}
		for k := range added {
			coll.keys[k] = struct{}{}
		}
	}
	coll.indexes = append(coll.indexes, idx)
	return nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// Close implements store.Store.
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) collection(c store.Collection) *collection {
	coll, ok := s.colls[c]
	if !ok {
		coll = &collection{keys: make(map[string]struct{})}
		s.colls[c] = coll
	}
	return coll
}

func (c *collection) conflicts(keys []string) bool {
	for _, k := range keys {
		if _, ok := c.keys[k]; ok {
			return true
		}
	}
	return false
}

func uniqueKeys(indexes []store.Index, doc document) []string {
	var keys []string
	for _, idx := range indexes {
		if !idx.Unique {
			continue
		}
		if k, ok := indexKey(idx, doc); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// indexKey renders the values of idx's fields. Documents missing a field
// are not constrained, as with NULLs in a SQL unique index.
func indexKey(idx store.Index, doc document) (string, bool) {
	var b strings.Builder
	b.WriteString(idx.Name())
	for _, f := range idx.Fields {
		v, ok := doc[f]
		if !ok || v == nil {
			return "", false
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		b.WriteByte(0)
		b.Write(raw)
	}
	return b.String(), true
}

// -----------------------------------------------------------------------------
// JSON values
// -----------------------------------------------------------------------------

func encodeDocument(v any) (document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("not an object")
	}
	return doc, nil
}

func encodeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeFilter(filter []store.Cond) ([]store.Cond, error) {
	out := make([]store.Cond, len(filter))
	for i, c := range filter {
		v, err := encodeValue(c.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", c.Field, err)
		}
		out[i] = store.Cond{Field: c.Field, Op: c.Op, Value: v}
	}
	return out, nil
}

func unmarshal(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}

func decode(v any, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func matchAll(doc document, filter []store.Cond) bool {
	for _, c := range filter {
		if !match(doc, c) {
			return false
		}
	}
	return true
}

func match(doc document, c store.Cond) bool {
	v, ok := doc[c.Field]
	if c.Op == store.NotContains {
		return !strings.Contains(text(v), c.Value.(string))
	}
	if !ok || v == nil || c.Value == nil {
		return false
	}
	// Values of different JSON types never satisfy a comparison.
	if rank(v) != rank(c.Value) {
		return false
	}
	cmp := compare(v, c.Value)
	switch c.Op {
	case store.Eq:
		return cmp == 0
	case store.Gt:
		return cmp > 0
	case store.Gte:
		return cmp >= 0
	case store.Lt:
		return cmp < 0
	case store.Lte:
		return cmp <= 0
	}
	return false
}

func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	}
	return ""
}

// rank orders JSON types as jsonb does. Missing values sort after
// everything, like SQL NULLs.
func rank(v any) int {
	switch v.(type) {
	case string:
		return 1
	case json.Number:
		return 2
	case bool:
		return 3
	case []any:
		return 4
	case map[string]any:
		return 5
	}
	return 6
}

func compareField(a, b document, field string) int {
	return compare(a[field], b[field])
}

func compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case json.Number:
		return compareNumbers(x, b.(json.Number))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case nil:
		return 0
	}
	if reflect.DeepEqual(a, b) {
		return 0
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	return bytes.Compare(ja, jb)
}

func compareNumbers(a, b json.Number) int {
	da, errA := decimal.NewFromString(a.String())
	db, errB := decimal.NewFromString(b.String())
	if errA != nil || errB != nil {
		return strings.Compare(a.String(), b.String())
	}
	return da.Cmp(db)
}
