// Package model defines the canonical records persisted by the option data sync.
//
// Every dataset is normalized to one of these shapes regardless of the
// upstream provider.
//
// Conventions:
//   - Prices: decimal.Decimal (exchange quotes carry up to 4 decimal places)
//   - Timestamps: exchange wall clock stored as a UTC instant with the same
//     wall clock, the way the exchange publishes them
//   - Dates: midnight-truncated timestamps (see Date)
//   - Field names: snake_case in both bson and json
package model
