package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	switch c.Provider.Name {
	case ProviderJQData:
		if c.Provider.JQData.URL == "" {
			return errors.New("provider.jqdata.url is required")
		}
		if c.Provider.JQData.Mob == "" {
			return fmt.Errorf("provider.jqdata.mob is required (or set %s)", EnvJQDataID)
		}
		if c.Provider.JQData.Password == "" {
			return fmt.Errorf("provider.jqdata.password is required (or set %s)", EnvJQDataToken)
		}
		if c.Provider.JQData.MaxRetries < 0 {
			return errors.New("provider.jqdata.max_retries must be >= 0")
		}
		if c.Provider.JQData.PageSize < 1 {
			return errors.New("provider.jqdata.page_size must be >= 1")
		}
	case ProviderTushare:
		if c.Provider.Tushare.Token == "" {
			return fmt.Errorf("provider.tushare.token is required (or set %s)", EnvTushareToken)
		}
	case "":
		return errors.New("provider.name is required")
	default:
		return fmt.Errorf("provider.name %q is not supported", c.Provider.Name)
	}

	switch c.Store.Driver {
	case StoreMongo:
		if c.Store.Mongo.URI == "" {
			return errors.New("store.mongo.uri is required")
		}
	case StorePostgres:
		if err := c.Store.Postgres.validate("store.postgres"); err != nil {
			return err
		}
	case StoreMemory:
	default:
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}

	return c.Sync.validate("sync")
}

func (s *SyncConfig) validate(prefix string) error {
	if len(s.Underlyings) == 0 {
		return fmt.Errorf("%s.underlyings must not be empty", prefix)
	}
	for u, ex := range s.Underlyings {
		if ex == "" {
			return fmt.Errorf("%s.underlyings.%s: exchange is required", prefix, u)
		}
	}
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("%s.timezone: %w", prefix, err)
	}
	if _, err := s.CloseOffset(); err != nil {
		return fmt.Errorf("%s.market_close: %w", prefix, err)
	}
	if s.DailyEpoch.IsZero() {
		return fmt.Errorf("%s.daily_epoch is required", prefix)
	}
	if s.CalendarEpoch.IsZero() {
		return fmt.Errorf("%s.calendar_epoch is required", prefix)
	}
	if s.BarLookback <= 0 {
		return fmt.Errorf("%s.bar_lookback must be > 0", prefix)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
