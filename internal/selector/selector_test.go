package selector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/store"
	"github.com/rickgao/option-data/internal/store/memstore"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func opt(id int64, code, tradingCode, lastTrade string) model.OptionContract {
	return model.OptionContract{
		ID:               id,
		Code:             code,
		TradingCode:      tradingCode,
		UnderlyingSymbol: "510050",
		LastTradeDate:    date(lastTrade),
	}
}

func seeded(t *testing.T, contracts ...model.OptionContract) *memstore.Store {
	t.Helper()
	st := memstore.New()
	docs := make([]any, len(contracts))
	for i, c := range contracts {
		docs[i] = c
	}
	_, err := st.InsertMany(context.Background(), store.Collection{Dataset: model.DatasetContracts, Partition: "510050"}, docs)
	require.NoError(t, err)
	return st
}

func codes(contracts []model.OptionContract) []string {
	var out []string
	for _, c := range contracts {
		out = append(out, c.Code)
	}
	return out
}

var chain = []model.OptionContract{
	opt(3, "10001303", "510050C1904M02800", "2019-04-24"),
	opt(1, "10001301", "510050C1904M02750", "2019-04-24"),
	opt(2, "10001302", "510050C1904A02750", "2019-04-24"),
	opt(4, "10001304", "510050C1905M02750", "2019-05-22"),
	opt(5, "10001305", "510050P1905M02750", "2019-05-22"),
	opt(6, "10001306", "510050C1906M02750", "2019-06-26"),
	opt(7, "10001307", "510050C1909M02750", "2019-09-25"),
}

func TestSelectCurrentMonth(t *testing.T) {
	sel := New(seeded(t, chain...), DefaultMonthBounds())

	got, err := sel.Select(context.Background(), "510050", date("2019-04-24"))
	require.NoError(t, err)
	assert.False(t, got.Rolled)
	assert.Equal(t, date("2019-04-01"), got.NearMonth)
	assert.Equal(t, date("2019-05-01"), got.FarMonth)
	assert.Equal(t, []string{"10001301", "10001303"}, codes(got.Near), "adjusted contract excluded, ordered by id")
	assert.Equal(t, []string{"10001304", "10001305"}, codes(got.Far))
}

func TestSelectRollsForwardAfterExpiry(t *testing.T) {
	sel := New(seeded(t, chain...), DefaultMonthBounds())

	got, err := sel.Select(context.Background(), "510050", time.Date(2019, 4, 25, 10, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, got.Rolled)
	assert.Equal(t, date("2019-05-01"), got.NearMonth)
	assert.Equal(t, date("2019-06-01"), got.FarMonth)
	assert.Equal(t, []string{"10001304", "10001305"}, codes(got.Near))
	assert.Equal(t, []string{"10001306"}, codes(got.Far))
	assert.Equal(t, []string{"10001304", "10001305", "10001306"}, got.Codes())
}

func TestSelectNoNearMonth(t *testing.T) {
	sel := New(seeded(t, opt(6, "10001306", "510050C1906M02750", "2019-06-26")), DefaultMonthBounds())

	_, err := sel.Select(context.Background(), "510050", date("2019-04-10"))
	assert.ErrorIs(t, err, ErrNoNearMonth)
	assert.ErrorIs(t, err, model.ErrDataAvailability)
}

func TestSelectEmptyPartition(t *testing.T) {
	sel := New(memstore.New(), DefaultMonthBounds())
	_, err := sel.Select(context.Background(), "510050", date("2019-04-10"))
	assert.ErrorIs(t, err, ErrNoNearMonth)
}

func TestSelectRolledNearMonthEmpty(t *testing.T) {
	sel := New(seeded(t,
		opt(1, "10001301", "510050C1904M02750", "2019-04-24"),
		opt(6, "10001306", "510050C1906M02750", "2019-06-26"),
	), DefaultMonthBounds())

	_, err := sel.Select(context.Background(), "510050", date("2019-04-25"))
	assert.ErrorIs(t, err, ErrNoNearMonth)
	assert.ErrorContains(t, err, "2019-05")
}

func TestSelectOnlyAdjustedContracts(t *testing.T) {
	sel := New(seeded(t, opt(2, "10001302", "510050C1904A02750", "2019-04-24")), DefaultMonthBounds())
	_, err := sel.Select(context.Background(), "510050", date("2019-04-10"))
	assert.ErrorIs(t, err, ErrNoNearMonth)
}

func TestMonthEdgeDays(t *testing.T) {
	edges := []model.OptionContract{
		opt(1, "first", "510050C1905M02750", "2019-05-01"),
		opt(2, "mid", "510050C1905M02800", "2019-05-22"),
		opt(3, "last", "510050C1905M02850", "2019-05-31"),
		opt(4, "prev", "510050C1904M02850", "2019-04-30"),
		opt(5, "next", "510050C1906M02850", "2019-06-01"),
	}
	st := seeded(t, edges...)

	tests := []struct {
		name   string
		bounds MonthBounds
		want   []string
	}{
		{name: "both inclusive", bounds: MonthBounds{IncludeFirst: true, IncludeLast: true}, want: []string{"first", "mid", "last"}},
		{name: "exclude first", bounds: MonthBounds{IncludeLast: true}, want: []string{"mid", "last"}},
		{name: "exclude last", bounds: MonthBounds{IncludeFirst: true}, want: []string{"first", "mid"}},
		{name: "both exclusive", bounds: MonthBounds{}, want: []string{"mid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(st, tt.bounds).Month(context.Background(), "510050", date("2019-05-15"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, codes(got))
		})
	}
}

func TestMonthFebruaryEnd(t *testing.T) {
	st := seeded(t,
		opt(1, "feb28", "510050C1902M02750", "2019-02-28"),
		opt(2, "mar01", "510050C1903M02750", "2019-03-01"),
	)
	got, err := New(st, DefaultMonthBounds()).Month(context.Background(), "510050", date("2019-02-01"))
	require.NoError(t, err)
	assert.Equal(t, []string{"feb28"}, codes(got))
}

func TestCodesDeduplicates(t *testing.T) {
	s := Selection{
		Near: []model.OptionContract{{Code: "a"}, {Code: "b"}},
		Far:  []model.OptionContract{{Code: "b"}, {Code: "c"}},
	}
	assert.Equal(t, []string{"a", "b", "c"}, s.Codes())
	assert.Nil(t, Selection{}.Codes())
}
