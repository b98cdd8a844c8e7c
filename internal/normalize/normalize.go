// Package normalize maps raw provider tables onto the canonical records in
// package model.
//
// Normalization is a pure function of (table, dataset kind, provider
// variant). A variant without a normalizer is a configuration error and is
// reported by For, never as an empty result.
package normalize

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/provider"
	"github.com/rickgao/option-data/internal/provider/jqdata"
)

// ErrUnsupportedVariant reports a provider variant without a normalizer.
var ErrUnsupportedVariant = errors.New("unsupported provider variant")

// Normalizer converts one variant's raw tables into canonical records.
// Returned records are sorted by the dataset's ordering key.
type Normalizer interface {
	Contracts(t *provider.Table) ([]model.OptionContract, error)
	DailyBars(t *provider.Table, date time.Time) ([]model.DailyBar, error)
	MinuteBars(t *provider.Table, code string) ([]model.MinuteBar, error)
	TradeDays(t *provider.Table) ([]model.TradeDay, error)
	IndexPoints(t *provider.Table) ([]model.IndexPoint, error)
}

// For returns the normalizer of a provider variant.
func For(variant string) (Normalizer, error) {
	switch variant {
	case jqdata.Name:
		return JQData{}, nil
	}
	return nil, fmt.Errorf("normalize %q: %w", variant, ErrUnsupportedVariant)
}
