package provider

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	doc := "\xEF\xBB\xBFdatetime,open,high,low,close\n" +
		"2019-04-18,20.1,20.5,19.8,20.0\n" +
		"\n" +
		"2019-04-19, 20.0,21.2,19.9,21.0\n"

	tbl, err := ParseCSV(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"datetime", "open", "high", "low", "close"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "2019-04-19", tbl.Value(1, "datetime"))
	assert.Equal(t, "20.0", tbl.Value(1, "open"))
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	tbl, err := ParseCSV(strings.NewReader("id,code\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "code"}, tbl.Columns)
	assert.True(t, tbl.Empty())
}

func TestParseCSV_EmptyBody(t *testing.T) {
	tbl, err := ParseCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, tbl.Columns)
	assert.True(t, tbl.Empty())
}

func TestParseCSV_Malformed(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("a,b\n\"unterminated,1\n"))
	assert.Error(t, err)
}
