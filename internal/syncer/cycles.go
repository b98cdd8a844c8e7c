package syncer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/store"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"

	// resumeNone is reported for a partition without watermark or start.
	resumeNone = "none"
)

// SyncContracts pages through contracts of underlying newer than the stored
// maximum id and writes them in one batch.
func (s *Syncer) SyncContracts(ctx context.Context, underlying string) (Result, error) {
	start := time.Now()
	res := Result{Dataset: model.DatasetContracts, Partition: underlying}

	exchange, err := s.exchangeOf(underlying)
	if err != nil {
		return res, err
	}
	w, _, err := s.watermarks.ContractID(ctx, underlying)
	if err != nil {
		return res, fmt.Errorf("read watermark: %w", err)
	}
	res.Resume = strconv.FormatInt(w, 10)

	var contracts []model.OptionContract
	for minID := w; ; {
		page, err := s.provider.FetchContracts(ctx, underlying, exchange, minID)
		if err != nil {
			return res, fmt.Errorf("fetch contracts %s: %w", underlying, err)
		}
		if page.Empty() {
			break
		}
		records, err := s.normalizer.Contracts(page)
		if err != nil {
			return res, err
		}
		if len(records) == 0 {
			break
		}
		next := records[len(records)-1].ID
		if next <= minID {
			return res, fmt.Errorf("fetch contracts %s: page after id %d did not advance", underlying, minID)
		}
		s.logger.Debug("fetched contract page",
			"partition", underlying,
			"after", minID,
			"rows", len(records),
		)
		contracts = append(contracts, records...)
		minID = next
	}

	seen := make(map[int64]bool, len(contracts))
	contracts = keep(contracts, func(c model.OptionContract) bool {
		if c.ID <= w || seen[c.ID] {
			return false
		}
		seen[c.ID] = true
		return true
	})

	c := store.Collection{Dataset: model.DatasetContracts, Partition: underlying}
	n, err := s.write(ctx, c, toDocs(contracts))
	if err != nil {
		return res, err
	}

	res.Records = n
	res.Outcome = outcomeOf(n)
	res.Duration = time.Since(start)
	s.report(res)
	return res, nil
}

// SyncDaily steps one calendar day at a time from the day after the stored
// watermark up to, but not including, today. Days without data advance the
// loop without writing. Each day commits on its own.
func (s *Syncer) SyncDaily(ctx context.Context, exchange string) (Result, error) {
	start := time.Now()
	res := Result{Dataset: model.DatasetDaily, Partition: exchange}

	w, ok, err := s.watermarks.DailyDate(ctx, exchange)
	if err != nil {
		return res, fmt.Errorf("read watermark: %w", err)
	}
	if !ok {
		w = model.Date(s.cfg.DailyEpoch.Time)
	}
	res.Resume = w.Format(dateLayout)

	// A failed batch on a non-atomic store may leave the watermark day
	// partly written. Revisit it and let the natural key drop what is
	// already there.
	first := w.AddDate(0, 0, 1)
	if ok && !s.store.AtomicInserts() {
		first = w
	}

	c := store.Collection{Dataset: model.DatasetDaily, Partition: exchange}
	today := s.today()
	for day := first; day.Before(today); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}

		t, err := s.provider.FetchDaily(ctx, exchange, day)
		if err != nil {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("fetch daily %s %s: %w", exchange, day.Format(dateLayout), err)
		}
		if t.Empty() {
			s.logger.Debug("no daily data", "partition", exchange, "date", day.Format(dateLayout))
			continue
		}

		bars, err := s.normalizer.DailyBars(t, day)
		if err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		bars = keep(bars, func(b model.DailyBar) bool { return !b.Date.Before(first) })

		n, err := s.write(ctx, c, toDocs(bars))
		if err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		res.Records += n
	}

	res.Outcome = outcomeOf(res.Records)
	res.Duration = time.Since(start)
	s.report(res)
	return res, nil
}

// SyncBars syncs minute bars of the active near and far month contracts of
// underlying up to the close of the last finished trade day. Each contract
// commits on its own and reports its own Result.
func (s *Syncer) SyncBars(ctx context.Context, underlying string) ([]Result, error) {
	exchange, err := s.exchangeOf(underlying)
	if err != nil {
		return nil, err
	}

	sel, err := s.selector.Select(ctx, underlying, s.today())
	if err != nil {
		return nil, err
	}
	end, err := s.barsEnd(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("selected contracts",
		"partition", underlying,
		"near_month", sel.NearMonth.Format("2006-01"),
		"far_month", sel.FarMonth.Format("2006-01"),
		"rolled", sel.Rolled,
		"end", end.Format(datetimeLayout),
	)

	var results []Result
	for _, code := range sel.Codes() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r, err := s.syncContractBars(ctx, underlying, exchange, code, end)
		results = append(results, r)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// barsEnd returns the close of the most recent stored trade day that has
// already closed.
func (s *Syncer) barsEnd(ctx context.Context) (time.Time, error) {
	now := s.wallClock()

	var days []model.TradeDay
	err := s.store.Find(ctx, store.Collection{Dataset: model.DatasetTradeDays, Partition: model.GlobalPartition}, store.Query{
		Filter: []store.Cond{store.Where("date", store.Lte, model.Date(now))},
		Sort:   []store.SortField{store.Desc("date")},
		Limit:  2,
	}, &days)
	if err != nil {
		return time.Time{}, fmt.Errorf("read trade days: %w", err)
	}
	for _, d := range days {
		if closeAt := d.Date.Add(s.closeOffset); !closeAt.After(now) {
			return closeAt, nil
		}
	}
	return time.Time{}, fmt.Errorf("as of %s: %w", now.Format(datetimeLayout), ErrNoTradeDay)
}

func (s *Syncer) syncContractBars(ctx context.Context, underlying, exchange, code string, end time.Time) (Result, error) {
	start := time.Now()
	res := Result{Dataset: model.DatasetBars, Partition: underlying, Code: code}

	w, ok, err := s.watermarks.BarTime(ctx, underlying, code)
	if err != nil {
		return res, fmt.Errorf("read watermark %s: %w", code, err)
	}
	from := model.Date(model.Date(end).Add(-s.cfg.BarLookback))
	res.Resume = from.Format(datetimeLayout)
	if ok {
		from = w.Add(time.Minute)
		res.Resume = w.Format(datetimeLayout)
	}

	if from.After(end) {
		res.Outcome = OutcomeNewest
		res.Duration = time.Since(start)
		s.report(res)
		return res, nil
	}

	t, err := s.provider.FetchBars(ctx, code, exchange, from, end)
	if err != nil {
		return res, fmt.Errorf("fetch bars %s: %w", code, err)
	}
	bars, err := s.normalizer.MinuteBars(t, code)
	if err != nil {
		return res, err
	}
	if ok {
		bars = keep(bars, func(b model.MinuteBar) bool { return b.Datetime.After(w) })
	}

	n, err := s.write(ctx, store.Collection{Dataset: model.DatasetBars, Partition: underlying}, toDocs(bars))
	if err != nil {
		return res, err
	}

	res.Records = n
	res.Outcome = outcomeOf(n)
	res.Duration = time.Since(start)
	s.report(res)
	return res, nil
}

// SyncCalendar appends trade days after the newest stored one. An empty
// calendar starts from the configured epoch, inclusive.
func (s *Syncer) SyncCalendar(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{Dataset: model.DatasetTradeDays, Partition: model.GlobalPartition}

	w, ok, err := s.watermarks.TradeDay(ctx)
	if err != nil {
		return res, fmt.Errorf("read watermark: %w", err)
	}
	from := model.Date(s.cfg.CalendarEpoch.Time)
	res.Resume = from.Format(dateLayout)
	if ok {
		from = w.AddDate(0, 0, 1)
		res.Resume = w.Format(dateLayout)
	}

	t, err := s.provider.FetchCalendar(ctx, from)
	if err != nil {
		return res, fmt.Errorf("fetch calendar: %w", err)
	}
	days, err := s.normalizer.TradeDays(t)
	if err != nil {
		return res, err
	}
	days = keep(days, func(d model.TradeDay) bool {
		return !d.Date.Before(from) && (!ok || d.Date.After(w))
	})

	n, err := s.write(ctx, store.Collection{Dataset: model.DatasetTradeDays, Partition: model.GlobalPartition}, toDocs(days))
	if err != nil {
		return res, err
	}

	res.Records = n
	res.Outcome = outcomeOf(n)
	res.Duration = time.Since(start)
	s.report(res)
	return res, nil
}

// SyncIndex fetches the whole volatility index series and appends the
// observations newer than the stored watermark. The series has no start
// date, so an empty partition resumes from "none".
func (s *Syncer) SyncIndex(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{Dataset: model.DatasetIndex, Partition: model.GlobalPartition}

	w, ok, err := s.watermarks.IndexTime(ctx)
	if err != nil {
		return res, fmt.Errorf("read watermark: %w", err)
	}
	res.Resume = resumeNone
	if ok {
		res.Resume = w.Format(datetimeLayout)
	}

	t, err := s.provider.FetchIndexSeries(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch index series: %w", err)
	}
	points, err := s.normalizer.IndexPoints(t)
	if err != nil {
		return res, err
	}
	if ok {
		points = keep(points, func(p model.IndexPoint) bool { return p.Datetime.After(w) })
	}

	n, err := s.write(ctx, store.Collection{Dataset: model.DatasetIndex, Partition: model.GlobalPartition}, toDocs(points))
	if err != nil {
		return res, err
	}

	res.Records = n
	res.Outcome = outcomeOf(n)
	res.Duration = time.Since(start)
	s.report(res)
	return res, nil
}
