// Package selector picks the near-month and far-month option contracts of
// an underlying from the stored contract list.
package selector

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/store"
)

// ErrNoNearMonth is returned when no contract expires in the near month.
var ErrNoNearMonth = fmt.Errorf("no near-month contracts: %w", model.ErrDataAvailability)

// MonthBounds controls whether a contract whose last trade date falls on
// the first or last calendar day of a month belongs to that month.
type MonthBounds struct {
	IncludeFirst bool
	IncludeLast  bool
}

// DefaultMonthBounds includes both edge days.
func DefaultMonthBounds() MonthBounds {
	return MonthBounds{IncludeFirst: true, IncludeLast: true}
}

// Selection is the outcome of Select.
type Selection struct {
	NearMonth time.Time // First day of the near month
	FarMonth  time.Time // First day of the far month
	Near      []model.OptionContract
	Far       []model.OptionContract
	Rolled    bool // The current month had fully expired
}

// Codes returns the contract codes of Near followed by Far, without repeats.
func (s Selection) Codes() []string {
	seen := make(map[string]bool, len(s.Near)+len(s.Far))
	var codes []string
	for _, list := range [][]model.OptionContract{s.Near, s.Far} {
		for _, c := range list {
			if seen[c.Code] {
				continue
			}
			seen[c.Code] = true
			codes = append(codes, c.Code)
		}
	}
	return codes
}

// Selector reads contracts from a store.
type Selector struct {
	st     store.Store
	bounds MonthBounds
}

// New creates a selector.
func New(st store.Store, bounds MonthBounds) *Selector {
	return &Selector{st: st, bounds: bounds}
}

// Select returns the active contracts of underlying as of today. When every
// contract of today's month has already stopped trading, selection rolls
// forward one month.
func (s *Selector) Select(ctx context.Context, underlying string, today time.Time) (Selection, error) {
	today = model.Date(today)
	m0 := model.MonthStart(today)
	m1 := m0.AddDate(0, 1, 0)
	m2 := m0.AddDate(0, 2, 0)

	current, err := s.Month(ctx, underlying, m0)
	if err != nil {
		return Selection{}, err
	}
	if len(current) == 0 {
		return Selection{}, fmt.Errorf("select %s %s: %w", underlying, m0.Format("2006-01"), ErrNoNearMonth)
	}

	if !allExpired(current, today) {
		next, err := s.Month(ctx, underlying, m1)
		if err != nil {
			return Selection{}, err
		}
		return Selection{NearMonth: m0, FarMonth: m1, Near: current, Far: next}, nil
	}

	near, err := s.Month(ctx, underlying, m1)
	if err != nil {
		return Selection{}, err
	}
	if len(near) == 0 {
		return Selection{}, fmt.Errorf("select %s %s: %w", underlying, m1.Format("2006-01"), ErrNoNearMonth)
	}
	far, err := s.Month(ctx, underlying, m2)
	if err != nil {
		return Selection{}, err
	}
	return Selection{NearMonth: m1, FarMonth: m2, Near: near, Far: far, Rolled: true}, nil
}

// Month returns the unadjusted contracts of underlying whose last trade
// date falls in month, ordered by id.
func (s *Selector) Month(ctx context.Context, underlying string, month time.Time) ([]model.OptionContract, error) {
	var out []model.OptionContract
	q := store.Query{
		Filter: s.monthFilter(month),
		Sort:   []store.SortField{store.Asc("id")},
	}
	c := store.Collection{Dataset: model.DatasetContracts, Partition: underlying}
	if err := s.st.Find(ctx, c, q, &out); err != nil {
		return nil, fmt.Errorf("contracts of %s %s: %w", underlying, month.Format("2006-01"), err)
	}
	return out, nil
}

func (s *Selector) monthFilter(month time.Time) []store.Cond {
	first, last := model.MonthStart(month), model.MonthEnd(month)

	lower := store.Gt
	if s.bounds.IncludeFirst {
		lower = store.Gte
	}
	upper := store.Lt
	if s.bounds.IncludeLast {
		upper = store.Lte
	}
	return []store.Cond{
		store.Where("last_trade_date", lower, first),
		store.Where("last_trade_date", upper, last),
		store.Where("trading_code", store.NotContains, model.AdjustedMarker),
	}
}

func allExpired(contracts []model.OptionContract, today time.Time) bool {
	for _, c := range contracts {
		if !c.Expired(today) {
			return false
		}
	}
	return true
}
