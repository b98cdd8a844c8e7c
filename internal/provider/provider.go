package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnsupported reports a capability the provider variant does not implement.
var ErrUnsupported = errors.New("capability not supported")

// Capability names used in errors and logs.
const (
	CapContracts   = "fetch_contracts"
	CapDaily       = "fetch_daily"
	CapBars        = "fetch_bars"
	CapCalendar    = "fetch_calendar"
	CapIndexSeries = "fetch_index_series"
)

// Unsupported returns an error wrapping ErrUnsupported for variant and capability.
func Unsupported(variant, capability string) error {
	return fmt.Errorf("%s %s: %w", variant, capability, ErrUnsupported)
}

// Provider fetches raw market data from one vendor. Calls block until the
// vendor responds; an empty table means there is nothing new.
type Provider interface {
	// Name is the variant name, also used to pick the normalizer.
	Name() string

	// FetchContracts returns one page of contracts of underlying with id > minID,
	// ordered by id.
	FetchContracts(ctx context.Context, underlying, exchange string, minID int64) (*Table, error)

	// FetchDaily returns the daily prices of every contract listed on exchange for date.
	FetchDaily(ctx context.Context, exchange string, date time.Time) (*Table, error)

	// FetchBars returns one-minute bars of code within [start, end].
	FetchBars(ctx context.Context, code, exchange string, start, end time.Time) (*Table, error)

	// FetchCalendar returns the trade days on or after start.
	FetchCalendar(ctx context.Context, start time.Time) (*Table, error)

	// FetchIndexSeries returns the complete volatility index series.
	FetchIndexSeries(ctx context.Context) (*Table, error)
}
