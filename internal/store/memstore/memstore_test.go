package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/store"
)

var (
	contracts = store.Collection{Dataset: model.DatasetContracts, Partition: "510050"}
	bars      = store.Collection{Dataset: model.DatasetBars, Partition: "510050"}
)

func contract(id int64, tradingCode string, lastTrade string) model.OptionContract {
	d, _ := time.Parse("2006-01-02", lastTrade)
	return model.OptionContract{
		ID:            id,
		Code:          "1000" + tradingCode[len(tradingCode)-4:],
		TradingCode:   tradingCode,
		ExercisePrice: decimal.RequireFromString("2.75"),
		LastTradeDate: d,
	}
}

func seed(t *testing.T, s *Store, c store.Collection, docs ...any) {
	t.Helper()
	require.NoError(t, store.EnsureIndexes(context.Background(), s, c))
	_, err := s.InsertMany(context.Background(), c, docs)
	require.NoError(t, err)
}

func TestLatestEmpty(t *testing.T) {
	s := New()
	var got model.OptionContract
	ok, err := s.Latest(context.Background(), contracts, []string{"id"}, nil, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatestOrdersNumerically(t *testing.T) {
	s := New()
	seed(t, s, contracts,
		contract(9, "510050C1904M02750", "2019-04-24"),
		contract(101, "510050C1904M02800", "2019-04-24"),
		contract(23, "510050C1904M02850", "2019-04-24"),
	)

	var got model.OptionContract
	ok, err := s.Latest(context.Background(), contracts, []string{"id"}, nil, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(101), got.ID)
	assert.True(t, got.ExercisePrice.Equal(decimal.RequireFromString("2.75")))
}

func TestLatestWithFilter(t *testing.T) {
	s := New()
	base := time.Date(2019, 4, 19, 9, 31, 0, 0, time.UTC)
	seed(t, s, bars,
		model.MinuteBar{Code: "10001313", Datetime: base},
		model.MinuteBar{Code: "10001313", Datetime: base.Add(time.Minute)},
		model.MinuteBar{Code: "10001314", Datetime: base.Add(time.Hour)},
	)

	var got model.MinuteBar
	ok, err := s.Latest(context.Background(), bars, []string{"datetime"},
		[]store.Cond{store.Where("code", store.Eq, "10001313")}, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Minute), got.Datetime)
}

func TestInsertManySkipsDuplicates(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, store.EnsureIndexes(ctx, s, contracts))

	n, err := s.InsertMany(ctx, contracts, []any{
		contract(1, "510050C1904M02750", "2019-04-24"),
		contract(2, "510050C1904M02800", "2019-04-24"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.InsertMany(ctx, contracts, []any{
		contract(2, "510050C1904M02800", "2019-04-24"),
		contract(3, "510050C1904M02850", "2019-04-24"),
		contract(3, "510050C1904M02850", "2019-04-24"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, s.Len(contracts))
}

func TestInsertManyEmpty(t *testing.T) {
	n, err := New().InsertMany(context.Background(), contracts, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEnsureIndexRejectsExistingDuplicates(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.InsertMany(ctx, contracts, []any{
		contract(1, "510050C1904M02750", "2019-04-24"),
		contract(1, "510050C1904M02750", "2019-04-24"),
	})
	require.NoError(t, err)

	err = s.EnsureIndex(ctx, contracts, store.Index{Fields: []string{"id"}, Unique: true})
	assert.ErrorContains(t, err, "duplicate key")
}

func TestFind(t *testing.T) {
	s := New()
	seed(t, s, contracts,
		contract(3, "510050C1905M02750", "2019-05-22"),
		contract(1, "510050C1904M02750", "2019-04-24"),
		contract(2, "510050C1904A02800", "2019-04-24"),
		contract(4, "510050C1903M02750", "2019-03-27"),
	)

	var got []model.OptionContract
	err := s.Find(context.Background(), contracts, store.Query{
		Filter: []store.Cond{
			store.Where("last_trade_date", store.Gte, time.Date(2019, 4, 1, 0, 0, 0, 0, time.UTC)),
			store.Where("last_trade_date", store.Lte, time.Date(2019, 4, 30, 0, 0, 0, 0, time.UTC)),
			store.Where("trading_code", store.NotContains, model.AdjustedMarker),
		},
		Sort: []store.SortField{store.Asc("id")},
	}, &got)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestFindSortLimitProjection(t *testing.T) {
	s := New()
	seed(t, s, contracts,
		contract(1, "510050C1904M02750", "2019-04-24"),
		contract(2, "510050C1904M02800", "2019-04-24"),
		contract(3, "510050C1904M02850", "2019-04-24"),
	)

	var got []model.OptionContract
	err := s.Find(context.Background(), contracts, store.Query{
		Sort:   []store.SortField{store.Desc("id")},
		Limit:  2,
		Fields: []string{"id"},
	}, &got)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
	assert.Empty(t, got[0].TradingCode)
}

func TestFindMissingCollection(t *testing.T) {
	var got []model.OptionContract
	require.NoError(t, New().Find(context.Background(), contracts, store.Query{}, &got))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindRejectsInvalidQuery(t *testing.T) {
	var got []model.OptionContract
	err := New().Find(context.Background(), contracts, store.Query{
		Filter: []store.Cond{store.Where("bad field", store.Eq, 1)},
	}, &got)
	assert.ErrorContains(t, err, "invalid field name")
}

func TestMixedTypesDoNotCompare(t *testing.T) {
	s := New()
	_, err := s.InsertMany(context.Background(), contracts, []any{
		map[string]any{"id": "7"},
		map[string]any{"id": 7},
	})
	require.NoError(t, err)

	var got []map[string]any
	err = s.Find(context.Background(), contracts, store.Query{
		Filter: []store.Cond{store.Where("id", store.Eq, 7)},
	}, &got)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, 7, got[0]["id"])
}

func TestClosed(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close(ctx))

	assert.ErrorIs(t, s.Ping(ctx), ErrClosed)
	_, err := s.InsertMany(ctx, contracts, []any{contract(1, "510050C1904M02750", "2019-04-24")})
	assert.ErrorIs(t, err, ErrClosed)
	var got model.OptionContract
	_, err = s.Latest(ctx, contracts, []string{"id"}, nil, &got)
	assert.ErrorIs(t, err, ErrClosed)
}
