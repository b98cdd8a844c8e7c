// Package store defines the persistence boundary of the sync engine.
//
// Records live in collections addressed by (dataset, partition). A backend
// only has to answer "the newest record by key", append documents while
// honoring unique indexes, and run simple filtered queries. Watermarks are
// derived from stored data through Latest and are never written separately.
package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rickgao/option-data/internal/model"
)

// Store is implemented by every persistence backend.
type Store interface {
	// Latest decodes into out the record of c with the greatest sortKey
	// among those matching filter. It returns false when none exists.
	Latest(ctx context.Context, c Collection, sortKey []string, filter []Cond, out any) (bool, error)

	// Find decodes the records matching q into out, a pointer to a slice.
	Find(ctx context.Context, c Collection, q Query, out any) error

	// InsertMany appends docs in order and returns how many were written.
	// Documents that collide with a unique index are skipped. When it
	// fails, an atomic backend has written nothing and any other backend
	// has written a prefix of docs.
	InsertMany(ctx context.Context, c Collection, docs []any) (int, error)

	// AtomicInserts reports whether InsertMany commits all or nothing.
	AtomicInserts() bool

	// EnsureIndex creates idx on c if it does not exist.
	EnsureIndex(ctx context.Context, c Collection, idx Index) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Collection addresses one partition of a dataset.
type Collection struct {
	Dataset   model.Dataset
	Partition string
}

func (c Collection) String() string {
	return string(c.Dataset) + "/" + c.Partition
}

// Validate checks that c names a dataset and a partition.
func (c Collection) Validate() error {
	if c.Dataset == "" {
		return fmt.Errorf("collection: dataset is required")
	}
	if c.Partition == "" {
		return fmt.Errorf("collection %s: partition is required", c.Dataset)
	}
	return nil
}

// Op is a comparison operator of a filter condition.
type Op string

const (
	Eq          Op = "eq"
	Gt          Op = "gt"
	Gte         Op = "gte"
	Lt          Op = "lt"
	Lte         Op = "lte"
	NotContains Op = "not_contains" // Value is a substring; non-string fields match
)

// Cond is a single filter condition. Conditions of a filter are ANDed.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Where builds a condition.
func Where(field string, op Op, value any) Cond {
	return Cond{Field: field, Op: op, Value: value}
}

// SortField orders results by one field.
type SortField struct {
	Field string
	Desc  bool
}

// Asc and Desc build sort fields.
func Asc(field string) SortField  { return SortField{Field: field} }
func Desc(field string) SortField { return SortField{Field: field, Desc: true} }

// Query selects records of a collection.
type Query struct {
	Filter []Cond
	Sort   []SortField
	Limit  int64    // 0 means no limit
	Fields []string // projection; empty means all fields
}

// Index describes a secondary index over document fields.
type Index struct {
	Fields []string
	Unique bool
}

// Name returns a stable name for the index.
func (i Index) Name() string {
	name := strings.Join(i.Fields, "_")
	if i.Unique {
		return name + "_uniq"
	}
	return name + "_idx"
}

// Indexes returns the indexes every collection of d must carry: a unique
// index on the natural key plus any lookup indexes.
func Indexes(d model.Dataset) []Index {
	idx := []Index{{Fields: d.NaturalKey(), Unique: true}}
	for _, k := range d.SecondaryKeys() {
		idx = append(idx, Index{Fields: k})
	}
	return idx
}

// EnsureIndexes creates the indexes of c's dataset.
func EnsureIndexes(ctx context.Context, s Store, c Collection) error {
	for _, idx := range Indexes(c.Dataset) {
		if err := s.EnsureIndex(ctx, c, idx); err != nil {
			return fmt.Errorf("ensure index %s on %s: %w", idx.Name(), c, err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

var fieldPattern = regexp.MustCompile(`^[a-z_]+$`)

// ValidateField rejects field names that are not lower snake case.
func ValidateField(name string) error {
	if !fieldPattern.MatchString(name) {
		return fmt.Errorf("invalid field name %q", name)
	}
	return nil
}

// ValidateFields checks every name.
func ValidateFields(names []string) error {
	for _, n := range names {
		if err := ValidateField(n); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFilter checks field names and operators of a filter.
func ValidateFilter(filter []Cond) error {
	for _, c := range filter {
		if err := ValidateField(c.Field); err != nil {
			return err
		}
		switch c.Op {
		case Eq, Gt, Gte, Lt, Lte:
		case NotContains:
			if _, ok := c.Value.(string); !ok {
				return fmt.Errorf("field %s: %s needs a string value", c.Field, c.Op)
			}
		default:
			return fmt.Errorf("field %s: unknown operator %q", c.Field, c.Op)
		}
	}
	return nil
}

// Validate checks a query before it reaches a backend.
func (q Query) Validate() error {
	if err := ValidateFilter(q.Filter); err != nil {
		return err
	}
	for _, s := range q.Sort {
		if err := ValidateField(s.Field); err != nil {
			return err
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("negative limit %d", q.Limit)
	}
	return ValidateFields(q.Fields)
}

// Validate checks an index definition.
func (i Index) Validate() error {
	if len(i.Fields) == 0 {
		return fmt.Errorf("index has no fields")
	}
	return ValidateFields(i.Fields)
}

// LatestQuery turns a Latest call into the equivalent query: descending on
// every sort field, one result.
func LatestQuery(sortKey []string, filter []Cond) Query {
	q := Query{Filter: filter, Limit: 1}
	for _, f := range sortKey {
		q.Sort = append(q.Sort, Desc(f))
	}
	return q
}
