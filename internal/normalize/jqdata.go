package normalize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/provider"
)

// JQData normalizes JoinQuant tables.
type JQData struct{}

var _ Normalizer = JQData{}

var (
	contractColumns = []string{
		"id", "code", "trading_code", "name", "contract_type", "exchange_code",
		"underlying_symbol", "underlying_type", "exercise_price", "contract_unit",
		"list_date", "last_trade_date",
	}
	dailyColumns = []string{
		"code", "exchange_code", "open", "high", "low", "close",
		"settle_price", "volume", "money", "position",
	}
	barColumns   = []string{"open", "high", "low", "close", "volume", "money"}
	indexColumns = []string{"open", "high", "low", "close"}

	timeColumns     = []string{"datetime", "date", "time"}
	positionColumns = []string{"position", "open_interest"}
)

// Contracts converts rows of opt.OPT_CONTRACT_INFO.
func (JQData) Contracts(t *provider.Table) ([]model.OptionContract, error) {
	if t.Empty() {
		return nil, nil
	}
	if err := requireColumns(t, contractColumns...); err != nil {
		return nil, fmt.Errorf("normalize contracts: %w", err)
	}

	out := make([]model.OptionContract, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := rowReader{t: t, row: i}
		c := model.OptionContract{
			ID:               r.id("id"),
			Code:             r.code("code"),
			TradingCode:      r.str("trading_code"),
			Name:             r.str("name"),
			ContractType:     r.str("contract_type"),
			ExchangeCode:     r.str("exchange_code"),
			UnderlyingSymbol: r.code("underlying_symbol"),
			UnderlyingType:   r.str("underlying_type"),
			ExercisePrice:    r.decimal("exercise_price"),
			ContractUnit:     r.int("contract_unit"),
			ListDate:         r.date("list_date"),
			LastTradeDate:    r.date("last_trade_date"),
		}
		if r.err != nil {
			return nil, fmt.Errorf("normalize contracts: %w", r.err)
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DailyBars converts rows of opt.OPT_DAILY_PRICE, tagging each with date.
func (JQData) DailyBars(t *provider.Table, date time.Time) ([]model.DailyBar, error) {
	if t.Empty() {
		return nil, nil
	}
	if err := requireColumns(t, dailyColumns...); err != nil {
		return nil, fmt.Errorf("normalize daily: %w", err)
	}

	day := model.Date(date)
	out := make([]model.DailyBar, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := rowReader{t: t, row: i}
		b := model.DailyBar{
			Code:         r.code("code"),
			ExchangeCode: r.str("exchange_code"),
			Date:         day,
			Open:         r.decimal("open"),
			High:         r.decimal("high"),
			Low:          r.decimal("low"),
			Close:        r.decimal("close"),
			SettlePrice:  r.decimal("settle_price"),
			Volume:       r.int("volume"),
			Money:        r.decimal("money"),
			Position:     r.int("position"),
		}
		if r.err != nil {
			return nil, fmt.Errorf("normalize daily: %w", r.err)
		}
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// MinuteBars converts get_price_period rows of one contract.
func (JQData) MinuteBars(t *provider.Table, code string) ([]model.MinuteBar, error) {
	if t.Empty() {
		return nil, nil
	}
	timeCol, err := firstColumn(t, timeColumns...)
	if err != nil {
		return nil, fmt.Errorf("normalize bars: %w", err)
	}
	if err := requireColumns(t, barColumns...); err != nil {
		return nil, fmt.Errorf("normalize bars: %w", err)
	}
	posCol, _ := firstColumn(t, positionColumns...)

	code = StripExchange(code)
	out := make([]model.MinuteBar, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := rowReader{t: t, row: i}
		b := model.MinuteBar{
			Code:     code,
			Datetime: r.datetime(timeCol),
			Open:     r.decimal("open"),
			High:     r.decimal("high"),
			Low:      r.decimal("low"),
			Close:    r.decimal("close"),
			Volume:   r.int("volume"),
			Money:    r.decimal("money"),
		}
		if posCol != "" {
			b.Position = r.int(posCol)
		}
		if r.err != nil {
			return nil, fmt.Errorf("normalize bars: %w", r.err)
		}
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Datetime.Before(out[j].Datetime) })
	return dedupe(out, func(b model.MinuteBar) time.Time { return b.Datetime }), nil
}

// TradeDays converts a trade calendar. Duplicates are dropped.
func (JQData) TradeDays(t *provider.Table) ([]model.TradeDay, error) {
	if t.Empty() {
		return nil, nil
	}
	col := "date"
	if _, ok := t.Index(col); !ok {
		if len(t.Columns) == 0 {
			return nil, fmt.Errorf("normalize trade days: missing column %q", col)
		}
		col = strings.ToLower(t.Columns[0])
	}

	out := make([]model.TradeDay, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := rowReader{t: t, row: i}
		d := model.TradeDay{Date: r.date(col)}
		if r.err != nil {
			return nil, fmt.Errorf("normalize trade days: %w", r.err)
		}
		out = append(out, d)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return dedupe(out, func(d model.TradeDay) time.Time { return d.Date }), nil
}

// IndexPoints converts the volatility index feed.
func (JQData) IndexPoints(t *provider.Table) ([]model.IndexPoint, error) {
	if t.Empty() {
		return nil, nil
	}
	timeCol, err := firstColumn(t, timeColumns...)
	if err != nil {
		return nil, fmt.Errorf("normalize index: %w", err)
	}
	if err := requireColumns(t, indexColumns...); err != nil {
		return nil, fmt.Errorf("normalize index: %w", err)
	}

	out := make([]model.IndexPoint, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := rowReader{t: t, row: i}
		p := model.IndexPoint{
			Datetime: r.datetime(timeCol),
			Open:     r.decimal("open"),
			High:     r.decimal("high"),
			Low:      r.decimal("low"),
			Close:    r.decimal("close"),
		}
		if r.err != nil {
			return nil, fmt.Errorf("normalize index: %w", r.err)
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Datetime.Before(out[j].Datetime) })
	return dedupe(out, func(p model.IndexPoint) time.Time { return p.Datetime }), nil
}

// dedupe keeps the last of consecutive records sharing a key. Input must be
// sorted by key.
func dedupe[T any](records []T, key func(T) time.Time) []T {
	if len(records) < 2 {
		return records
	}
	out := records[:0]
	for i, rec := range records {
		if i+1 < len(records) && key(records[i+1]).Equal(key(rec)) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
