package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/option-data/internal/config"
	"github.com/rickgao/option-data/internal/syncer"
	"github.com/rickgao/option-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/optsync.yaml", "path to config file")
	envPath := flag.String("env", ".env", "path to .env file with provider credentials")
	datasetList := flag.String("datasets", "", "comma-separated datasets to sync (default all)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	dryRun := flag.Bool("dry-run", false, "sync into an in-memory store and discard the result")
	flag.Parse()

	os.Exit(run(*configPath, *envPath, *datasetList, *logLevel, *dryRun))
}

func run(configPath, envPath, datasetList, logLevel string, dryRun bool) int {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})).With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	logger.Info("starting optsync", append(version.LogAttrs(), "config", configPath, "dry_run", dryRun)...)

	if err := config.LoadDotenv(envPath); err != nil {
		logger.Error("failed to load env file", "error", err)
		return 1
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	if dryRun {
		cfg.Store.Driver = config.StoreMemory
	}

	datasets, err := parseDatasets(datasetList, cfg)
	if err != nil {
		logger.Error("invalid datasets", "error", err)
		return 1
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"provider", cfg.Provider.Name,
		"store", cfg.Store.Driver,
		"underlyings", cfg.Sync.UnderlyingSymbols(),
		"datasets", datasets,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	st, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to connect to store", "driver", cfg.Store.Driver, "error", err)
		return 1
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := st.Close(closeCtx); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}()

	logger.Info("store connected", "driver", cfg.Store.Driver)

	p, err := newProvider(cfg, logger)
	if err != nil {
		logger.Error("failed to create provider", "error", err)
		return 1
	}

	s, err := syncer.New(cfg.Sync, p, st, logger)
	if err != nil {
		logger.Error("failed to create syncer", "error", err)
		return 1
	}

	start := time.Now()
	results, err := s.Run(ctx, datasets...)
	summary := summarize(results)
	logger.Info("sync finished",
		"partitions", summary.partitions,
		"updated", summary.updated,
		"newest", summary.newest,
		"records", summary.records,
		"duration", time.Since(start),
	)
	if err != nil {
		logger.Error("sync completed with errors", "error", err)
		return 1
	}
	return 0
}

type runSummary struct {
	partitions int
	updated    int
	newest     int
	records    int
}

func summarize(results []syncer.Result) runSummary {
	var s runSummary
	for _, r := range results {
		s.partitions++
		s.records += r.Records
		switch r.Outcome {
		case syncer.OutcomeUpdate:
			s.updated++
		case syncer.OutcomeNewest:
			s.newest++
		}
	}
	return s
}
