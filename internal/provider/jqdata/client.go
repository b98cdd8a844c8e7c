package jqdata

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rickgao/option-data/internal/provider"
)

// Name is the variant name of this provider.
const Name = "jqdata"

// DefaultURL is the JoinQuant data API endpoint.
const DefaultURL = "https://dataapi.joinquant.com/apis"

// DefaultPageSize is the largest row count run_query returns per call.
const DefaultPageSize = 4000

// IndexFeed supplies the volatility index series.
type IndexFeed interface {
	Fetch(ctx context.Context) (*provider.Table, error)
}

// Client provides access to the JoinQuant data API.
type Client struct {
	baseURL    string
	mob        string
	password   string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
	pageSize     int
	index        IndexFeed

	mu    sync.Mutex
	token string
}

var _ provider.Provider = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client authenticating with the account's mobile
// number and password.
func NewClient(baseURL, mob, password string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL:  baseURL,
		mob:      mob,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
		pageSize:     DefaultPageSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPageSize sets the run_query row count per page.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithIndexFeed sets the source of FetchIndexSeries.
func WithIndexFeed(feed IndexFeed) ClientOption {
	return func(c *Client) {
		c.index = feed
	}
}

// Name returns the variant name.
func (c *Client) Name() string {
	return Name
}
