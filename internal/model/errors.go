package model

import "errors"

// ErrDataAvailability reports that stored data needed to plan a sync is
// missing. Retrying does not help until the data is synced.
var ErrDataAvailability = errors.New("data not available")
