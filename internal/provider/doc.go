// Package provider defines the boundary to upstream market data vendors.
//
// Variants:
//   - jqdata: JoinQuant data API (contracts, daily prices, minute bars, calendar)
//   - tushare: configured but no capability implemented
//   - ivix: volatility index CSV feed, plugged into a variant as its index series
//
// Every variant implements the full Provider interface. A capability the
// vendor does not offer returns an error wrapping ErrUnsupported.
package provider
