package pgstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/store"
)

// Every dataset table has the same shape; documents are stored whole.
const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
	seq         BIGSERIAL PRIMARY KEY,
	partition   TEXT NOT NULL,
	doc         JSONB NOT NULL,
	inserted_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertSQL = `INSERT INTO %s (partition, doc) VALUES ($1, $2::jsonb) ON CONFLICT DO NOTHING`

var sqlOperators = map[store.Op]string{
	store.Eq:  "=",
	store.Gt:  ">",
	store.Gte: ">=",
	store.Lt:  "<",
	store.Lte: "<=",
}

func tableName(d model.Dataset) (string, error) {
	if err := store.ValidateField(string(d)); err != nil {
		return "", fmt.Errorf("dataset: %w", err)
	}
	return pgx.Identifier{string(d)}.Sanitize(), nil
}

// fieldExpr addresses a validated document field.
func fieldExpr(field string) string {
	return "doc->'" + field + "'"
}

// builder accumulates positional arguments.
type builder struct {
	args []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// buildWhere renders the partition predicate and filter. Values are
// compared as jsonb, so they are passed in their JSON encoding.
func (b *builder) buildWhere(partition string, filter []store.Cond) (string, error) {
	clauses := []string{"partition = " + b.arg(partition)}
	for _, c := range filter {
		if c.Op == store.NotContains {
			clauses = append(clauses, fmt.Sprintf(
				"strpos(COALESCE(doc->>'%s', ''), %s) = 0", c.Field, b.arg(c.Value)))
			continue
		}
		op, ok := sqlOperators[c.Op]
		if !ok {
			return "", fmt.Errorf("field %s: unknown operator %q", c.Field, c.Op)
		}
		raw, err := json.Marshal(c.Value)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", c.Field, err)
		}
		clauses = append(clauses, fmt.Sprintf("%s %s %s::jsonb", fieldExpr(c.Field), op, b.arg(string(raw))))
	}
	return strings.Join(clauses, " AND "), nil
}

// buildSelect renders a query returning one jsonb document per row.
func buildSelect(d model.Dataset, partition string, q store.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	table, err := tableName(d)
	if err != nil {
		return "", nil, err
	}

	var b builder
	where, err := b.buildWhere(partition, q.Filter)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(projection(q.Fields))
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	sb.WriteString(" WHERE ")
	sb.WriteString(where)
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderBy(q.Sort))
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), b.args, nil
}

func projection(fields []string) string {
	if len(fields) == 0 {
		return "doc"
	}
	pairs := make([]string, 0, len(fields))
	for _, f := range fields {
		pairs = append(pairs, fmt.Sprintf("'%s', %s", f, fieldExpr(f)))
	}
	return "jsonb_strip_nulls(jsonb_build_object(" + strings.Join(pairs, ", ") + "))"
}

// orderBy ends with seq so that ties keep insertion order, following the
// direction of the last sort field.
func orderBy(sort []store.SortField) string {
	terms := make([]string, 0, len(sort)+1)
	dir := "ASC"
	for _, s := range sort {
		dir = "ASC"
		if s.Desc {
			dir = "DESC"
		}
		terms = append(terms, fieldExpr(s.Field)+" "+dir)
	}
	terms = append(terms, "seq "+dir)
	return strings.Join(terms, ", ")
}

// buildIndex renders an expression index scoped by partition.
func buildIndex(d model.Dataset, idx store.Index) (string, error) {
	if err := idx.Validate(); err != nil {
		return "", err
	}
	table, err := tableName(d)
	if err != nil {
		return "", err
	}

	cols := []string{"partition"}
	for _, f := range idx.Fields {
		cols = append(cols, "("+fieldExpr(f)+")")
	}

	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	name := pgx.Identifier{string(d) + "_" + idx.Name()}.Sanitize()
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
		unique, name, table, strings.Join(cols, ", ")), nil
}
