package config

import (
	"os"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultInstanceID       = "optsync"
	DefaultProvider         = ProviderJQData
	DefaultJQDataURL        = "https://dataapi.joinquant.com/apis"
	DefaultTushareURL       = "http://api.tushare.pro"
	DefaultAPITimeout       = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultPageSize         = 4000
	DefaultIndexTimeout     = 30 * time.Second
	DefaultStoreDriver      = StoreMongo
	DefaultMongoURI         = "mongodb://localhost:27017"
	DefaultMongoTimeout     = 10 * time.Second
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultTimezone         = "Asia/Shanghai"
	DefaultMarketClose      = "15:00"
	DefaultBarLookback      = 720 * time.Hour
	DefaultUnderlying       = "510050"
	DefaultUnderlyingMarket = "XSHG"
)

// Credential environment variables read when the YAML leaves them empty.
const (
	EnvJQDataID     = "JQDATA_ID"
	EnvJQDataToken  = "JQDATA_TOKEN"
	EnvTushareToken = "TUSHARE_TOKEN"
)

var (
	DefaultDailyEpoch    = NewDate(2015, time.February, 8)
	DefaultCalendarEpoch = NewDate(2015, time.January, 1)
)

// Defaults returns a configuration with every default applied.
func Defaults() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// Provider defaults
	if c.Provider.Name == "" {
		c.Provider.Name = DefaultProvider
	}
	jq := &c.Provider.JQData
	if jq.URL == "" {
		jq.URL = DefaultJQDataURL
	}
	if jq.Mob == "" {
		jq.Mob = os.Getenv(EnvJQDataID)
	}
	if jq.Password == "" {
		jq.Password = os.Getenv(EnvJQDataToken)
	}
	if jq.Timeout == 0 {
		jq.Timeout = DefaultAPITimeout
	}
	if jq.MaxRetries == 0 {
		jq.MaxRetries = DefaultMaxRetries
	}
	if jq.PageSize == 0 {
		jq.PageSize = DefaultPageSize
	}
	if c.Provider.Tushare.URL == "" {
		c.Provider.Tushare.URL = DefaultTushareURL
	}
	if c.Provider.Tushare.Token == "" {
		c.Provider.Tushare.Token = os.Getenv(EnvTushareToken)
	}

	if c.Index.Timeout == 0 {
		c.Index.Timeout = DefaultIndexTimeout
	}

	// Store defaults
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}
	if c.Store.Mongo.URI == "" {
		c.Store.Mongo.URI = DefaultMongoURI
	}
	if c.Store.Mongo.Timeout == 0 {
		c.Store.Mongo.Timeout = DefaultMongoTimeout
	}
	applyDBDefaults(&c.Store.Postgres)

	// Sync defaults
	s := &c.Sync
	if len(s.Underlyings) == 0 {
		s.Underlyings = map[string]string{DefaultUnderlying: DefaultUnderlyingMarket}
	}
	if s.Timezone == "" {
		s.Timezone = DefaultTimezone
	}
	if s.MarketClose == "" {
		s.MarketClose = DefaultMarketClose
	}
	if s.DailyEpoch.IsZero() {
		s.DailyEpoch = DefaultDailyEpoch
	}
	if s.CalendarEpoch.IsZero() {
		s.CalendarEpoch = DefaultCalendarEpoch
	}
	if s.BarLookback == 0 {
		s.BarLookback = DefaultBarLookback
	}
	if s.MonthBounds.IncludeFirst == nil {
		s.MonthBounds.IncludeFirst = boolPtr(true)
	}
	if s.MonthBounds.IncludeLast == nil {
		s.MonthBounds.IncludeLast = boolPtr(true)
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func boolPtr(b bool) *bool { return &b }
