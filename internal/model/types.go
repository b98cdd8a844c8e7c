package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AdjustedMarker marks trading codes of contracts adjusted after a dividend.
// Adjusted contracts are never selected as near/far month contracts.
const AdjustedMarker = "A"

// -----------------------------------------------------------------------------
// Reference Types
// -----------------------------------------------------------------------------

// OptionContract is the static description of a listed option.
type OptionContract struct {
	ID               int64           `bson:"id" json:"id"`                               // Provider-assigned, monotonic
	Code             string          `bson:"code" json:"code"`                           // e.g. "10001313"
	TradingCode      string          `bson:"trading_code" json:"trading_code"`           // e.g. "510050C1904M02750"
	Name             string          `bson:"name" json:"name"`                           // Display name
	ContractType     string          `bson:"contract_type" json:"contract_type"`         // "CO" (call) or "PO" (put)
	ExchangeCode     string          `bson:"exchange_code" json:"exchange_code"`         // e.g. "XSHG"
	UnderlyingSymbol string          `bson:"underlying_symbol" json:"underlying_symbol"` // e.g. "510050"
	UnderlyingType   string          `bson:"underlying_type" json:"underlying_type"`     // "ETF", "index", ...
	ExercisePrice    decimal.Decimal `bson:"exercise_price" json:"exercise_price"`
	ContractUnit     int64           `bson:"contract_unit" json:"contract_unit"`
	ListDate         time.Time       `bson:"list_date" json:"list_date"`
	LastTradeDate    time.Time       `bson:"last_trade_date" json:"last_trade_date"`
}

// Adjusted reports whether the contract is an adjusted (rolled) variant.
func (c OptionContract) Adjusted() bool {
	return IsAdjusted(c.TradingCode)
}

// Expired reports whether the contract's last trade date is before today.
func (c OptionContract) Expired(today time.Time) bool {
	return c.LastTradeDate.Before(Date(today))
}

// IsAdjusted reports whether a trading code carries the adjusted-contract marker.
func IsAdjusted(tradingCode string) bool {
	return strings.Contains(tradingCode, AdjustedMarker)
}

// TradeDay is a single exchange trading session date.
type TradeDay struct {
	Date time.Time `bson:"date" json:"date"`
}

// -----------------------------------------------------------------------------
// Time-Series Types
// -----------------------------------------------------------------------------

// DailyBar is the end-of-day summary of one contract.
type DailyBar struct {
	Code         string          `bson:"code" json:"code"`
	ExchangeCode string          `bson:"exchange_code" json:"exchange_code"`
	Date         time.Time       `bson:"date" json:"date"`
	Open         decimal.Decimal `bson:"open" json:"open"`
	High         decimal.Decimal `bson:"high" json:"high"`
	Low          decimal.Decimal `bson:"low" json:"low"`
	Close        decimal.Decimal `bson:"close" json:"close"`
	SettlePrice  decimal.Decimal `bson:"settle_price" json:"settle_price"`
	Volume       int64           `bson:"volume" json:"volume"`     // Contracts traded
	Money        decimal.Decimal `bson:"money" json:"money"`       // Turnover
	Position     int64           `bson:"position" json:"position"` // Open interest
}

// MinuteBar is one minute of trading in one contract.
type MinuteBar struct {
	Code     string          `bson:"code" json:"code"`
	Datetime time.Time       `bson:"datetime" json:"datetime"` // Bar close time
	Open     decimal.Decimal `bson:"open" json:"open"`
	High     decimal.Decimal `bson:"high" json:"high"`
	Low      decimal.Decimal `bson:"low" json:"low"`
	Close    decimal.Decimal `bson:"close" json:"close"`
	Volume   int64           `bson:"volume" json:"volume"`
	Money    decimal.Decimal `bson:"money" json:"money"`
	Position int64           `bson:"position" json:"position"`
}

// IndexPoint is one observation of the volatility index.
type IndexPoint struct {
	Datetime time.Time       `bson:"datetime" json:"datetime"`
	Open     decimal.Decimal `bson:"open" json:"open"`
	High     decimal.Decimal `bson:"high" json:"high"`
	Low      decimal.Decimal `bson:"low" json:"low"`
	Close    decimal.Decimal `bson:"close" json:"close"`
}
