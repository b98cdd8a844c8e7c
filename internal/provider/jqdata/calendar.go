package jqdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rickgao/option-data/internal/provider"
)

// FetchCalendar returns the exchange trade days on or after start.
// get_all_trade_days answers with one date per line and no header.
func (c *Client) FetchCalendar(ctx context.Context, start time.Time) (*provider.Table, error) {
	body, err := c.call(ctx, "get_all_trade_days", nil)
	if err != nil {
		return nil, fmt.Errorf("get trade days: %w", err)
	}

	from := start.Format(dateLayout)
	t := provider.NewTable("date")
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, line); err != nil {
			// Header or trailer line.
			continue
		}
		// ISO dates order lexicographically.
		if line < from {
			continue
		}
		t.AddRow(line)
	}
	return t, nil
}
