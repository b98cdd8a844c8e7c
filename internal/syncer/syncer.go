package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/option-data/internal/config"
	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/normalize"
	"github.com/rickgao/option-data/internal/provider"
	"github.com/rickgao/option-data/internal/selector"
	"github.com/rickgao/option-data/internal/store"
	"github.com/rickgao/option-data/internal/watermark"
)

var (
	// ErrDataAvailability is wrapped by errors caused by missing stored data.
	ErrDataAvailability = model.ErrDataAvailability

	// ErrNoNearMonth is returned by bar sync when no near-month contract is stored.
	ErrNoNearMonth = selector.ErrNoNearMonth

	// ErrNoTradeDay is returned by bar sync when the stored calendar has no
	// closed session to sync up to.
	ErrNoTradeDay = fmt.Errorf("no closed trade day: %w", model.ErrDataAvailability)
)

// Outcome classifies a finished cycle.
type Outcome string

const (
	OutcomeNewest Outcome = "newest" // Nothing new upstream
	OutcomeUpdate Outcome = "update" // At least one record written
)

// Result reports one sync cycle.
type Result struct {
	Dataset   model.Dataset
	Partition string
	Code      string // Contract code, minute bars only
	Resume    string // Watermark resumed from, or the configured start of an empty partition
	Records   int    // Records written
	Outcome   Outcome
	Duration  time.Duration
}

// Syncer orchestrates sync cycles over one provider and one store.
type Syncer struct {
	cfg         config.SyncConfig
	loc         *time.Location
	closeOffset time.Duration
	bounds      selector.MonthBounds

	provider   provider.Provider
	normalizer normalize.Normalizer
	store      store.Store
	watermarks *watermark.Store
	selector   *selector.Selector
	logger     *slog.Logger
	now        func() time.Time

	indexed map[store.Collection]bool
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		s.now = now
	}
}

// New creates a Syncer. It fails when the provider variant has no
// normalizer or the sync settings are unusable.
func New(cfg config.SyncConfig, p provider.Provider, st store.Store, logger *slog.Logger, opts ...Option) (*Syncer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	norm, err := normalize.For(p.Name())
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	closeOffset, err := cfg.CloseOffset()
	if err != nil {
		return nil, err
	}

	bounds := selector.DefaultMonthBounds()
	if cfg.MonthBounds.IncludeFirst != nil {
		bounds.IncludeFirst = *cfg.MonthBounds.IncludeFirst
	}
	if cfg.MonthBounds.IncludeLast != nil {
		bounds.IncludeLast = *cfg.MonthBounds.IncludeLast
	}

	s := &Syncer{
		cfg:         cfg,
		loc:         loc,
		closeOffset: closeOffset,
		bounds:      bounds,
		provider:    p,
		normalizer:  norm,
		store:       st,
		watermarks:  watermark.New(st),
		selector:    selector.New(st, bounds),
		logger:      logger,
		now:         time.Now,
		indexed:     make(map[store.Collection]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// wallClock returns the exchange's current wall clock time.
func (s *Syncer) wallClock() time.Time {
	return model.WallClock(s.now(), s.loc)
}

// today returns the exchange's current date.
func (s *Syncer) today() time.Time {
	return model.Date(s.wallClock())
}

func (s *Syncer) exchangeOf(underlying string) (string, error) {
	ex, ok := s.cfg.Underlyings[underlying]
	if !ok || ex == "" {
		return "", fmt.Errorf("underlying %s is not configured", underlying)
	}
	return ex, nil
}

// write ensures the collection's indexes once per process and appends docs.
func (s *Syncer) write(ctx context.Context, c store.Collection, docs []any) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	if !s.indexed[c] {
		if err := store.EnsureIndexes(ctx, s.store, c); err != nil {
			return 0, err
		}
		s.indexed[c] = true
	}
	return s.store.InsertMany(ctx, c, docs)
}

// report logs a finished cycle.
func (s *Syncer) report(r Result) {
	attrs := []any{
		"dataset", r.Dataset,
		"gateway", s.provider.Name(),
		"partition", r.Partition,
		"resume", r.Resume,
		"records", r.Records,
		"outcome", r.Outcome,
		"duration", r.Duration,
	}
	if r.Code != "" {
		attrs = append(attrs, "code", r.Code)
	}
	if r.Outcome == OutcomeNewest {
		s.logger.Info("data is newest", attrs...)
		return
	}
	s.logger.Info("data updated", attrs...)
}

func outcomeOf(records int) Outcome {
	if records > 0 {
		return OutcomeUpdate
	}
	return OutcomeNewest
}

// Run syncs the requested datasets, all of them when none are given, in
// dependency order: calendar, contracts, daily bars, minute bars, index.
// A failing partition is logged and the run moves on to the next one.
func (s *Syncer) Run(ctx context.Context, datasets ...model.Dataset) ([]Result, error) {
	want := make(map[model.Dataset]bool, len(datasets))
	for _, d := range datasets {
		want[d] = true
	}

	var (
		results []Result
		errs    []error
	)
	record := func(d model.Dataset, partition string, rs []Result, err error) {
		for _, r := range rs {
			if r.Dataset != "" {
				results = append(results, r)
			}
		}
		if err != nil {
			s.logger.Error("sync failed",
				"dataset", d,
				"gateway", s.provider.Name(),
				"partition", partition,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s %s: %w", d, partition, err))
		}
	}

	for _, d := range model.Datasets {
		if len(want) > 0 && !want[d] {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		switch d {
		case model.DatasetTradeDays:
			r, err := s.SyncCalendar(ctx)
			record(d, model.GlobalPartition, []Result{r}, err)
		case model.DatasetContracts:
			for _, u := range s.cfg.UnderlyingSymbols() {
				r, err := s.SyncContracts(ctx, u)
				record(d, u, []Result{r}, err)
			}
		case model.DatasetDaily:
			for _, ex := range s.cfg.ExchangeCodes() {
				r, err := s.SyncDaily(ctx, ex)
				record(d, ex, []Result{r}, err)
			}
		case model.DatasetBars:
			for _, u := range s.cfg.UnderlyingSymbols() {
				rs, err := s.SyncBars(ctx, u)
				record(d, u, rs, err)
			}
		case model.DatasetIndex:
			r, err := s.SyncIndex(ctx)
			record(d, model.GlobalPartition, []Result{r}, err)
		}
	}

	return results, errors.Join(errs...)
}

func toDocs[T any](records []T) []any {
	docs := make([]any, len(records))
	for i := range records {
		docs[i] = records[i]
	}
	return docs
}

// keep returns the records ok accepts in a new slice.
func keep[T any](records []T, ok func(T) bool) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if ok(r) {
			out = append(out, r)
		}
	}
	return out
}
