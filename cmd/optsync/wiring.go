package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rickgao/option-data/internal/config"
	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/provider"
	"github.com/rickgao/option-data/internal/provider/ivix"
	"github.com/rickgao/option-data/internal/provider/jqdata"
	"github.com/rickgao/option-data/internal/provider/tushare"
	"github.com/rickgao/option-data/internal/store"
	"github.com/rickgao/option-data/internal/store/memstore"
	"github.com/rickgao/option-data/internal/store/mongostore"
	"github.com/rickgao/option-data/internal/store/pgstore"
)

// openStore connects the configured backend.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.StoreMongo:
		st, err := mongostore.Connect(ctx, mongostore.Config{
			URI:     cfg.Mongo.URI,
			Timeout: cfg.Mongo.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.StorePostgres:
		st, err := pgstore.Connect(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.StoreMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// newProvider builds the configured provider variant.
func newProvider(cfg *config.Config, logger *slog.Logger) (provider.Provider, error) {
	switch cfg.Provider.Name {
	case config.ProviderJQData:
		jq := cfg.Provider.JQData
		opts := []jqdata.ClientOption{
			jqdata.WithLogger(logger),
			jqdata.WithTimeout(jq.Timeout),
			jqdata.WithRetries(jq.MaxRetries, time.Second),
			jqdata.WithPageSize(jq.PageSize),
		}
		if cfg.Index.URL != "" {
			opts = append(opts, jqdata.WithIndexFeed(ivix.New(cfg.Index.URL,
				ivix.WithTimeout(cfg.Index.Timeout),
				ivix.WithLogger(logger),
			)))
		}
		return jqdata.NewClient(jq.URL, jq.Mob, jq.Password, opts...), nil
	case config.ProviderTushare:
		return tushare.NewClient(cfg.Provider.Tushare.URL, cfg.Provider.Tushare.Token), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}

// parseDatasets parses the -datasets flag. An empty list selects every
// dataset the configuration can serve; the volatility index needs a feed URL.
func parseDatasets(list string, cfg *config.Config) ([]model.Dataset, error) {
	var out []model.Dataset
	if strings.TrimSpace(list) == "" {
		for _, d := range model.Datasets {
			if d == model.DatasetIndex && cfg.Index.URL == "" {
				continue
			}
			out = append(out, d)
		}
		return out, nil
	}

	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		d, ok := model.ParseDataset(name)
		if !ok {
			return nil, fmt.Errorf("unknown dataset %q", name)
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no datasets in %q", list)
	}
	return out, nil
}
