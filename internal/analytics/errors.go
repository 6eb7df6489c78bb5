package analytics

import "errors"

// Sentinel kinds for report errors.
var (
	ErrNoAggregator = errors.New("aggregate engine unavailable")
)
