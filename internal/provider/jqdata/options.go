package jqdata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/option-data/internal/provider"
)

const (
	tableContractInfo = "opt.OPT_CONTRACT_INFO"
	tableDailyPrice   = "opt.OPT_DAILY_PRICE"

	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

// Security joins a bare code and its exchange into a JoinQuant security id.
// "510050", "XSHG" -> "510050.XSHG"
func Security(code, exchange string) string {
	if exchange == "" || strings.Contains(code, ".") {
		return code
	}
	return code + "." + strings.ToUpper(exchange)
}

// conditions encodes run_query filters: "field#op#value&field#op#value".
func conditions(conds ...[3]string) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c[0] + "#" + c[1] + "#" + c[2]
	}
	return strings.Join(parts, "&")
}

// FetchContracts returns one page of contract metadata with id > minID.
func (c *Client) FetchContracts(ctx context.Context, underlying, exchange string, minID int64) (*provider.Table, error) {
	t, err := c.query(ctx, "run_query", map[string]any{
		"table": tableContractInfo,
		"conditions": conditions(
			[3]string{"underlying_symbol", "=", Security(strings.ToUpper(underlying), exchange)},
			[3]string{"id", ">", strconv.FormatInt(minID, 10)},
		),
		"count": c.pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("get contracts %s: %w", underlying, err)
	}
	return t, nil
}

// FetchDaily returns the daily prices of every option on exchange for date.
// run_query caps each answer at the page size, so the day is read in pages
// ordered by id until a short page comes back.
func (c *Client) FetchDaily(ctx context.Context, exchange string, date time.Time) (*provider.Table, error) {
	day := date.Format(dateLayout)

	var (
		out    *provider.Table
		lastID int64
	)
	for page := 1; ; page++ {
		t, err := c.query(ctx, "run_query", map[string]any{
			"table": tableDailyPrice,
			"conditions": conditions(
				[3]string{"exchange_code", "=", strings.ToUpper(exchange)},
				[3]string{"date", "=", day},
				[3]string{"id", ">", strconv.FormatInt(lastID, 10)},
			),
			"count": c.pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("get daily %s %s: %w", exchange, day, err)
		}

		if out == nil {
			out = t
		} else {
			out.Rows = append(out.Rows, t.Rows...)
		}
		if t.Len() < c.pageSize {
			return out, nil
		}

		next, err := maxID(t)
		if err != nil {
			return nil, fmt.Errorf("get daily %s %s: page %d: %w", exchange, day, page, err)
		}
		if next <= lastID {
			return nil, fmt.Errorf("get daily %s %s: page after id %d did not advance", exchange, day, lastID)
		}
		c.logger.Debug("daily prices page full, fetching next",
			"exchange", exchange,
			"date", day,
			"page", page,
			"after", next,
		)
		lastID = next
	}
}

// maxID returns the largest id of a page.
func maxID(t *provider.Table) (int64, error) {
	if _, ok := t.Index("id"); !ok {
		return 0, fmt.Errorf("full page without id column")
	}
	var max int64
	for i := 0; i < t.Len(); i++ {
		id, err := strconv.ParseInt(t.Value(i, "id"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("row %d: invalid id %q", i, t.Value(i, "id"))
		}
		if id > max {
			max = id
		}
	}
	return max, nil
}

// FetchBars returns one-minute bars of a contract between start and end inclusive.
func (c *Client) FetchBars(ctx context.Context, code, exchange string, start, end time.Time) (*provider.Table, error) {
	t, err := c.query(ctx, "get_price_period", map[string]any{
		"code":     Security(code, exchange),
		"unit":     "1m",
		"date":     start.Format(datetimeLayout),
		"end_date": end.Format(datetimeLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("get bars %s: %w", code, err)
	}
	return t, nil
}

// FetchIndexSeries returns the volatility index from the configured feed.
func (c *Client) FetchIndexSeries(ctx context.Context) (*provider.Table, error) {
	if c.index == nil {
		return nil, provider.Unsupported(Name, provider.CapIndexSeries)
	}
	return c.index.Fetch(ctx)
}
