package syncer

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/provider"
)

// fakeProvider serves JQData-shaped tables from in-memory upstream data and
// records every call.
type fakeProvider struct {
	name     string
	pageSize int

	contracts map[string][]model.OptionContract // by underlying
	daily     map[string][]model.DailyBar       // by date
	bars      map[string][]model.MinuteBar      // by code
	calendar  []time.Time
	index     []model.IndexPoint

	contractsErr map[string]error // by underlying
	dailyErr     map[string]error // by date
	indexErr     error
	stuckPages   bool // ignore minID
	ignoreRange  bool // return every bar regardless of start/end

	calls []string
}

var _ provider.Provider = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		name:         "jqdata",
		pageSize:     100,
		contracts:    make(map[string][]model.OptionContract),
		daily:        make(map[string][]model.DailyBar),
		bars:         make(map[string][]model.MinuteBar),
		contractsErr: make(map[string]error),
		dailyErr:     make(map[string]error),
	}
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchContracts(_ context.Context, underlying, exchange string, minID int64) (*provider.Table, error) {
	f.calls = append(f.calls, fmt.Sprintf("contracts:%s:%d", underlying, minID))
	if err := f.contractsErr[underlying]; err != nil {
		return nil, err
	}

	all := append([]model.OptionContract(nil), f.contracts[underlying]...)
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	t := provider.NewTable("id", "code", "trading_code", "name", "contract_type", "exchange_code",
		"underlying_symbol", "underlying_type", "exercise_price", "contract_unit", "list_date", "last_trade_date")
	for _, c := range all {
		if !f.stuckPages && c.ID <= minID {
			continue
		}
		if t.Len() == f.pageSize {
			break
		}
		t.AddRow(
			strconv.FormatInt(c.ID, 10),
			c.Code+"."+exchange,
			c.TradingCode,
			c.Name,
			c.ContractType,
			exchange,
			underlying+"."+exchange,
			"ETF",
			c.ExercisePrice.String(),
			strconv.FormatInt(c.ContractUnit, 10),
			c.ListDate.Format("2006-01-02"),
			c.LastTradeDate.Format("2006-01-02"),
		)
	}
	return t, nil
}

func (f *fakeProvider) FetchDaily(_ context.Context, exchange string, date time.Time) (*provider.Table, error) {
	day := date.Format("2006-01-02")
	f.calls = append(f.calls, "daily:"+day)
	if err := f.dailyErr[day]; err != nil {
		return nil, err
	}

	t := provider.NewTable("code", "exchange_code", "date", "open", "high", "low", "close",
		"settle_price", "volume", "money", "position")
	for _, b := range f.daily[day] {
		t.AddRow(b.Code+"."+exchange, exchange, day,
			b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(), b.SettlePrice.String(),
			strconv.FormatInt(b.Volume, 10), b.Money.String(), strconv.FormatInt(b.Position, 10))
	}
	return t, nil
}

func (f *fakeProvider) FetchBars(_ context.Context, code, exchange string, start, end time.Time) (*provider.Table, error) {
	f.calls = append(f.calls, fmt.Sprintf("bars:%s:%s:%s", code,
		start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04")))

	t := provider.NewTable("date", "open", "close", "high", "low", "volume", "money", "open_interest")
	for _, b := range f.bars[code] {
		if !f.ignoreRange && (b.Datetime.Before(start) || b.Datetime.After(end)) {
			continue
		}
		t.AddRow(b.Datetime.Format("2006-01-02 15:04:05"),
			b.Open.String(), b.Close.String(), b.High.String(), b.Low.String(),
			strconv.FormatInt(b.Volume, 10), b.Money.String(), strconv.FormatInt(b.Position, 10))
	}
	return t, nil
}

func (f *fakeProvider) FetchCalendar(_ context.Context, start time.Time) (*provider.Table, error) {
	f.calls = append(f.calls, "calendar:"+start.Format("2006-01-02"))

	t := provider.NewTable("date")
	for _, d := range f.calendar {
		if !d.Before(start) {
			t.AddRow(d.Format("2006-01-02"))
		}
	}
	return t, nil
}

func (f *fakeProvider) FetchIndexSeries(context.Context) (*provider.Table, error) {
	f.calls = append(f.calls, "index")
	if f.indexErr != nil {
		return nil, f.indexErr
	}

	t := provider.NewTable("datetime", "open", "high", "low", "close")
	for _, p := range f.index {
		t.AddRow(p.Datetime.Format("2006-01-02 15:04:05"),
			p.Open.String(), p.High.String(), p.Low.String(), p.Close.String())
	}
	return t, nil
}

func (f *fakeProvider) reset() {
	f.calls = nil
}
