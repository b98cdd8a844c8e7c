// Package watermark reads the resume point of each dataset partition.
//
// A watermark is never stored on its own. It is the ordering key of the
// newest record already persisted in the partition, so it can only move
// when a write commits and it can never run ahead of the data.
package watermark

import (
	"context"
	"time"

	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/store"
)

// Store derives watermarks from a store.Store.
type Store struct {
	st store.Store
}

// New creates a watermark reader over st.
func New(st store.Store) *Store {
	return &Store{st: st}
}

// ContractID returns the greatest contract id stored for underlying.
func (w *Store) ContractID(ctx context.Context, underlying string) (int64, bool, error) {
	var c model.OptionContract
	ok, err := latest(ctx, w.st, model.DatasetContracts, underlying, nil, &c)
	return c.ID, ok, err
}

// DailyDate returns the newest daily bar date stored for exchange.
func (w *Store) DailyDate(ctx context.Context, exchange string) (time.Time, bool, error) {
	var b model.DailyBar
	ok, err := latest(ctx, w.st, model.DatasetDaily, exchange, nil, &b)
	return b.Date, ok, err
}

// BarTime returns the newest minute bar time stored for one contract.
func (w *Store) BarTime(ctx context.Context, underlying, code string) (time.Time, bool, error) {
	var b model.MinuteBar
	filter := []store.Cond{store.Where("code", store.Eq, code)}
	ok, err := w.st.Latest(ctx, collection(model.DatasetBars, underlying), []string{"datetime"}, filter, &b)
	return b.Datetime, ok, err
}

// TradeDay returns the newest stored trade day.
func (w *Store) TradeDay(ctx context.Context) (time.Time, bool, error) {
	var d model.TradeDay
	ok, err := latest(ctx, w.st, model.DatasetTradeDays, model.GlobalPartition, nil, &d)
	return d.Date, ok, err
}

// IndexTime returns the newest stored volatility index observation.
func (w *Store) IndexTime(ctx context.Context) (time.Time, bool, error) {
	var p model.IndexPoint
	ok, err := latest(ctx, w.st, model.DatasetIndex, model.GlobalPartition, nil, &p)
	return p.Datetime, ok, err
}

func latest(ctx context.Context, st store.Store, d model.Dataset, partition string, filter []store.Cond, out any) (bool, error) {
	return st.Latest(ctx, collection(d, partition), d.OrderingKey(), filter, out)
}

func collection(d model.Dataset, partition string) store.Collection {
	return store.Collection{Dataset: d, Partition: partition}
}
