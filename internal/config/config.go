package config

import (
	"fmt"
	"sort"
	"time"
	_ "time/tzdata" // Exchange timezones must resolve on hosts without zoneinfo

	"gopkg.in/yaml.v3"
)

// Provider variants.
const (
	ProviderJQData  = "jqdata"
	ProviderTushare = "tushare"
)

// Store drivers.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the root configuration of an optsync run.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Provider ProviderConfig `yaml:"provider"`
	Index    IndexConfig    `yaml:"index"`
	Store    StoreConfig    `yaml:"store"`
	Sync     SyncConfig     `yaml:"sync"`
}

// InstanceConfig identifies this deployment in logs.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ProviderConfig selects the market data provider variant.
type ProviderConfig struct {
	Name    string        `yaml:"name"` // "jqdata" or "tushare"
	JQData  JQDataConfig  `yaml:"jqdata"`
	Tushare TushareConfig `yaml:"tushare"`
}

// JQDataConfig holds JoinQuant data API settings.
type JQDataConfig struct {
	URL        string        `yaml:"url"`
	Mob        string        `yaml:"mob"`      // Account phone number
	Password   string        `yaml:"password"` // Account password
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	PageSize   int           `yaml:"page_size"`
}

// TushareConfig holds Tushare API settings.
type TushareConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// IndexConfig holds the volatility index feed. An empty URL disables it.
type IndexConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver   string      `yaml:"driver"` // "mongo", "postgres" or "memory"
	Mongo    MongoConfig `yaml:"mongo"`
	Postgres DBConfig    `yaml:"postgres"`
}

// MongoConfig holds a MongoDB connection.
type MongoConfig struct {
	URI     string        `yaml:"uri"`
	Timeout time.Duration `yaml:"timeout"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SyncConfig holds the sync engine settings.
type SyncConfig struct {
	Underlyings   map[string]string `yaml:"underlyings"` // Underlying symbol -> exchange code
	Exchanges     []string          `yaml:"exchanges"`   // Daily bar partitions; derived from underlyings when empty
	Timezone      string            `yaml:"timezone"`
	MarketClose   string            `yaml:"market_close"` // "15:04" in Timezone
	DailyEpoch    Date              `yaml:"daily_epoch"`
	CalendarEpoch Date              `yaml:"calendar_epoch"`
	BarLookback   time.Duration     `yaml:"bar_lookback"`
	MonthBounds   MonthBounds       `yaml:"month_bounds"`
}

// MonthBounds controls whether contracts expiring on the first or last
// calendar day of a month count toward that month. Unset means included.
type MonthBounds struct {
	IncludeFirst *bool `yaml:"include_first"`
	IncludeLast  *bool `yaml:"include_last"`
}

// UnderlyingSymbols returns the configured underlyings in sorted order.
func (s SyncConfig) UnderlyingSymbols() []string {
	out := make([]string, 0, len(s.Underlyings))
	for u := range s.Underlyings {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// ExchangeCodes returns the daily bar partitions: Exchanges when set,
// otherwise the distinct exchanges of the underlyings.
func (s SyncConfig) ExchangeCodes() []string {
	if len(s.Exchanges) > 0 {
		return s.Exchanges
	}
	seen := make(map[string]bool)
	var out []string
	for _, ex := range s.Underlyings {
		if !seen[ex] {
			seen[ex] = true
			out = append(out, ex)
		}
	}
	sort.Strings(out)
	return out
}

// Location loads Timezone.
func (s SyncConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// CloseOffset returns MarketClose as an offset from midnight.
func (s SyncConfig) CloseOffset() (time.Duration, error) {
	t, err := time.Parse("15:04", s.MarketClose)
	if err != nil {
		return 0, fmt.Errorf("invalid market close %q: want HH:MM", s.MarketClose)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Date is a calendar date written as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate returns the given calendar date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// UnmarshalYAML parses YYYY-MM-DD.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	if value.Value == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(time.DateOnly, value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid date %q: want YYYY-MM-DD", value.Line, value.Value)
	}
	d.Time = t
	return nil
}

// MarshalYAML renders YYYY-MM-DD.
func (d Date) MarshalYAML() (any, error) {
	if d.IsZero() {
		return "", nil
	}
	return d.Format(time.DateOnly), nil
}
