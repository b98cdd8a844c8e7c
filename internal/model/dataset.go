package model

import "time"

// Dataset names a kind of record. The value doubles as the store's
// database (document store) or table (relational store) name.
type Dataset string

const (
	DatasetContracts Dataset = "option_basic"
	DatasetDaily     Dataset = "option_daily"
	DatasetBars      Dataset = "option_bar"
	DatasetTradeDays Dataset = "trade_days"
	DatasetIndex     Dataset = "option_ivix"
)

// GlobalPartition is the partition of datasets that are not split further.
const GlobalPartition = "global"

// Datasets lists every dataset in the order a full run syncs them.
// Trade days come first because bar sync reads the stored calendar.
var Datasets = []Dataset{
	DatasetTradeDays,
	DatasetContracts,
	DatasetDaily,
	DatasetBars,
	DatasetIndex,
}

// ParseDataset resolves a dataset by name or by its short alias.
func ParseDataset(name string) (Dataset, bool) {
	switch name {
	case "contracts", "basic", string(DatasetContracts):
		return DatasetContracts, true
	case "daily", string(DatasetDaily):
		return DatasetDaily, true
	case "bars", "bar", string(DatasetBars):
		return DatasetBars, true
	case "calendar", "trade_days", "tradedays":
		return DatasetTradeDays, true
	case "index", "ivix", string(DatasetIndex):
		return DatasetIndex, true
	}
	return "", false
}

// OrderingKey returns the fields the watermark is read from, most
// significant first.
func (d Dataset) OrderingKey() []string {
	switch d {
	case DatasetContracts:
		return []string{"id"}
	case DatasetDaily, DatasetTradeDays:
		return []string{"date"}
	case DatasetBars:
		return []string{"code", "datetime"}
	case DatasetIndex:
		return []string{"datetime"}
	}
	return nil
}

// NaturalKey returns the fields that identify a record within a partition.
func (d Dataset) NaturalKey() []string {
	switch d {
	case DatasetContracts:
		return []string{"id"}
	case DatasetDaily:
		return []string{"code", "date"}
	case DatasetBars:
		return []string{"code", "datetime"}
	case DatasetTradeDays:
		return []string{"date"}
	case DatasetIndex:
		return []string{"datetime"}
	}
	return nil
}

// SecondaryKeys returns non-unique lookup indexes beyond the natural key.
func (d Dataset) SecondaryKeys() [][]string {
	if d == DatasetContracts {
		return [][]string{{"list_date"}, {"last_trade_date"}}
	}
	return nil
}

// Date truncates t to midnight of its calendar date, keeping the wall clock
// fields and dropping the location.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WallClock returns t's wall clock in loc as a UTC instant.
func WallClock(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// MonthStart returns the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last calendar day of t's month.
func MonthEnd(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, -1)
}
