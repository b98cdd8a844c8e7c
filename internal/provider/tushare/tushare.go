// Package tushare is the Tushare Pro provider variant.
//
// The variant can be selected in configuration but implements no
// capability yet; every fetch returns provider.ErrUnsupported.
package tushare

import (
	"context"
	"time"

	"github.com/rickgao/option-data/internal/provider"
)

// Name is the variant name of this provider.
const Name = "tushare"

// DefaultURL is the Tushare Pro HTTP endpoint.
const DefaultURL = "http://api.tushare.pro"

// Client is a Tushare Pro provider.
type Client struct {
	baseURL string
	token   string
}

var _ provider.Provider = (*Client)(nil)

// NewClient creates a Tushare client.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{baseURL: baseURL, token: token}
}

// Name returns the variant name.
func (c *Client) Name() string { return Name }

// FetchContracts is not supported.
func (c *Client) FetchContracts(ctx context.Context, underlying, exchange string, minID int64) (*provider.Table, error) {
	return nil, provider.Unsupported(Name, provider.CapContracts)
}

// FetchDaily is not supported.
func (c *Client) FetchDaily(ctx context.Context, exchange string, date time.Time) (*provider.Table, error) {
	return nil, provider.Unsupported(Name, provider.CapDaily)
}

// FetchBars is not supported.
func (c *Client) FetchBars(ctx context.Context, code, exchange string, start, end time.Time) (*provider.Table, error) {
	return nil, provider.Unsupported(Name, provider.CapBars)
}

// FetchCalendar is not supported.
func (c *Client) FetchCalendar(ctx context.Context, start time.Time) (*provider.Table, error) {
	return nil, provider.Unsupported(Name, provider.CapCalendar)
}

// FetchIndexSeries is not supported.
func (c *Client) FetchIndexSeries(ctx context.Context) (*provider.Table, error) {
	return nil, provider.Unsupported(Name, provider.CapIndexSeries)
}
