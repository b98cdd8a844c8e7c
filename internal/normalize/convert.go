package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/provider"
)

var (
	dateLayouts = []string{
		"2006-01-02",
		"20060102",
		"2006/01/02",
	}
	datetimeLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04:05",
		"2006/01/02 15:04:05",
		"2006/01/02 15:04",
	}
)

// StripExchange drops the exchange suffix of a security id.
// "10001313.XSHG" -> "10001313"
func StripExchange(code string) string {
	if i := strings.IndexByte(code, '.'); i >= 0 {
		return code[:i]
	}
	return code
}

// ParseDatetime parses an exchange timestamp. Values with an explicit
// offset keep their wall clock; date-only values mean midnight.
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return model.WallClock(t, nil), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", s)
}

// ParseDate parses a calendar date, truncating any time of day.
// "2019-04-19", "20190419" and "2019-04-19 00:00:00" are all accepted.
func ParseDate(s string) (time.Time, error) {
	t, err := ParseDatetime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", strings.TrimSpace(s))
	}
	return model.Date(t), nil
}

// isMissing reports cells the vendor uses for "no value".
func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "none", "null", "-":
		return true
	}
	return false
}

// ParseDecimal parses a price. Missing values are zero.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	return d, nil
}

// ParseInt parses an integer count. Float renderings such as "1000.0" are
// accepted as long as they carry no fraction.
func ParseInt(s string) (int64, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("invalid integer %q", strings.TrimSpace(s))
	}
	return d.IntPart(), nil
}

// requireColumns fails on the first missing column.
func requireColumns(t *provider.Table, columns ...string) error {
	for _, c := range columns {
		if _, ok := t.Index(c); !ok {
			return fmt.Errorf("missing column %q", c)
		}
	}
	return nil
}

// firstColumn returns the first of candidates present in t.
func firstColumn(t *provider.Table, candidates ...string) (string, error) {
	for _, c := range candidates {
		if _, ok := t.Index(c); ok {
			return c, nil
		}
	}
	return "", fmt.Errorf("missing column %q", candidates[0])
}

// rowReader accumulates the first conversion error of a row so field
// conversions can be written as a flat list.
type rowReader struct {
	t   *provider.Table
	row int
	err error
}

func (r *rowReader) fail(column string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("row %d: %s: %w", r.row+1, column, err)
	}
}

func (r *rowReader) str(column string) string {
	return r.t.Value(r.row, column)
}

func (r *rowReader) code(column string) string {
	return StripExchange(r.str(column))
}

func (r *rowReader) decimal(column string) decimal.Decimal {
	d, err := ParseDecimal(r.str(column))
	if err != nil {
		r.fail(column, err)
	}
	return d
}

func (r *rowReader) int(column string) int64 {
	n, err := ParseInt(r.str(column))
	if err != nil {
		r.fail(column, err)
	}
	return n
}

// id reads a provider-assigned record id. Unlike counts, a missing id is
// an error and ids start at 1.
func (r *rowReader) id(column string) int64 {
	s := r.str(column)
	if isMissing(s) {
		r.fail(column, fmt.Errorf("missing id"))
		return 0
	}
	n, err := ParseInt(s)
	if err == nil && n < 1 {
		err = fmt.Errorf("invalid id %q", s)
	}
	if err != nil {
		r.fail(column, err)
	}
	return n
}

func (r *rowReader) date(column string) time.Time {
	d, err := ParseDate(r.str(column))
	if err != nil {
		r.fail(column, err)
	}
	return d
}

func (r *rowReader) datetime(column string) time.Time {
	d, err := ParseDatetime(r.str(column))
	if err != nil {
		r.fail(column, err)
	}
	return d
}
