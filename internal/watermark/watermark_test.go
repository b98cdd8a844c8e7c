package watermark

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

func insert(t *testing.T, st store.Store, d model.Dataset, partition string, docs ...any) {
	t.Helper()
	_, err := st.InsertMany(context.Background(), store.Collection{Dataset: d, Partition: partition}, docs)
	require.NoError(t, err)
}

func TestEmptyPartitions(t *testing.T) {
	w := New(memstore.New())
	ctx := context.Background()

	id, ok, err := w.ContractID(ctx, "510050")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, id)

	_, ok, err = w.DailyDate(ctx, "XSHG")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = w.BarTime(ctx, "510050", "10001313")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = w.TradeDay(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = w.IndexTime(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContractID(t *testing.T) {
	st := memstore.New()
	insert(t, st, model.DatasetContracts, "510050",
		model.OptionContract{ID: 101}, model.OptionContract{ID: 103}, model.OptionContract{ID: 102})
	insert(t, st, model.DatasetContracts, "510300", model.OptionContract{ID: 900})

	id, ok, err := New(st).ContractID(context.Background(), "510050")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(103), id)
}

func TestDailyDate(t *testing.T) {
	st := memstore.New()
	d1 := time.Date(2019, 4, 19, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2019, 4, 22, 0, 0, 0, 0, time.UTC)
	insert(t, st, model.DatasetDaily, "XSHG",
		model.DailyBar{Code: "1", Date: d2}, model.DailyBar{Code: "1", Date: d1})

	got, ok, err := New(st).DailyDate(context.Background(), "XSHG")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, d2, got)
}

func TestBarTimeIsPerCode(t *testing.T) {
	st := memstore.New()
	base := time.Date(2019, 4, 19, 9, 31, 0, 0, time.UTC)
	insert(t, st, model.DatasetBars, "510050",
		model.MinuteBar{Code: "10001313", Datetime: base},
		model.MinuteBar{Code: "10001313", Datetime: base.Add(2 * time.Minute)},
		model.MinuteBar{Code: "10001314", Datetime: base.Add(time.Hour)},
	)

	w := New(st)
	got, ok, err := w.BarTime(context.Background(), "510050", "10001313")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, base.Add(2*time.Minute), got)

	_, ok, err = w.BarTime(context.Background(), "510050", "10001399")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGlobalPartitions(t *testing.T) {
	st := memstore.New()
	day := time.Date(2019, 4, 22, 0, 0, 0, 0, time.UTC)
	at := time.Date(2019, 4, 22, 15, 0, 0, 0, time.UTC)
	insert(t, st, model.DatasetTradeDays, model.GlobalPartition, model.TradeDay{Date: day}, model.TradeDay{Date: day.AddDate(0, 0, -3)})
	insert(t, st, model.DatasetIndex, model.GlobalPartition, model.IndexPoint{Datetime: at}, model.IndexPoint{Datetime: at.Add(-time.Minute)})

	w := New(st)
	got, ok, err := w.TradeDay(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, day, got)

	got, ok, err = w.IndexTime(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, at, got)
}
