package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_Value(t *testing.T) {
	tbl := NewTable("id", "Code", "name")
	tbl.AddRow("1", " 10001313.XSHG ", "50ETF购4月2750")
	tbl.AddRow("2")

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "10001313.XSHG", tbl.Value(0, "code"), "lookup is case-insensitive and trims")
	assert.Equal(t, "", tbl.Value(1, "code"), "short rows are padded")
	assert.Equal(t, "", tbl.Value(0, "missing"))
	assert.Equal(t, "", tbl.Value(5, "id"))
}

func TestTable_NilIsEmpty(t *testing.T) {
	var tbl *Table
	assert.True(t, tbl.Empty())
	assert.Equal(t, 0, tbl.Len())
	_, ok := tbl.Index("id")
	assert.False(t, ok)
}

func TestUnsupported(t *testing.T) {
	err := Unsupported("tushare", CapBars)
	assert.True(t, errors.Is(err, ErrUnsupported))
	assert.Equal(t, "tushare fetch_bars: capability not supported", err.Error())
}
