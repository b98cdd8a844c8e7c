// Package ivix reads the option volatility index (iVIX) from a CSV feed.
//
// The feed has no incremental query: every fetch returns the full series
// and callers filter client-side.
package ivix

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/option-data/internal/provider"
)

// Feed downloads the index series from a fixed URL.
type Feed struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Feed.
type Option func(*Feed)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Feed) {
		f.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Feed) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a feed reading url.
func New(url string, opts ...Option) *Feed {
	f := &Feed{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads and parses the complete series.
func (f *Feed) Fetch(ctx context.Context) (*provider.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("ivix: create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ivix: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("ivix: unexpected status %d", resp.StatusCode)
	}

	t, err := provider.ParseCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ivix: %w", err)
	}

	f.logger.Debug("fetched ivix series", "rows", t.Len())
	return t, nil
}
