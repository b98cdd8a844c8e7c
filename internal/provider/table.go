package provider

import "strings"

// Table is a raw tabular result in the vendor's own column naming.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Len returns the number of rows. A nil table has no rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Index returns the position of column, matched case-insensitively.
func (t *Table) Index(column string) (int, bool) {
	if t == nil {
		return 0, false
	}
	if t.index == nil || len(t.index) != len(t.Columns) {
		t.index = make(map[string]int, len(t.Columns))
		for i, c := range t.Columns {
			t.index[strings.ToLower(strings.TrimSpace(c))] = i
		}
	}
	i, ok := t.index[strings.ToLower(column)]
	return i, ok
}

// Value returns the trimmed cell of row in column, or "" when either is missing.
func (t *Table) Value(row int, column string) string {
	i, ok := t.Index(column)
	if !ok || row < 0 || row >= t.Len() || i >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][i])
}

// AddRow appends a row. Short rows are padded to the column count.
func (t *Table) AddRow(values ...string) {
	if len(values) < len(t.Columns) {
		padded := make([]string, len(t.Columns))
		copy(padded, values)
		values = padded
	}
	t.Rows = append(t.Rows, values)
}
