package model

import "time"

// TimeSeriesPoint is one normalized observation of a dataset.
// Time is a calendar date in "2006-01-02" form. Within a series Time values are
// unique and sorted ascending.
type TimeSeriesPoint struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
	Label string  `json:"label,omitempty"` // Provider-specific tag, e.g. fear-and-greed sentiment
}

// CacheEntry is the persisted form of one dataset.
// Timestamp records the write time in epoch milliseconds and drives the freshness window.
type CacheEntry struct {
	ID        string            `json:"id"`
	Data      []TimeSeriesPoint `json:"data"`
	Timestamp int64             `json:"timestamp"`
}

// WrittenAt returns the entry's write time as a time.Time.
func (e CacheEntry) WrittenAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// IsFresh reports whether the entry is younger than ttl at the given instant.
// An entry written after now is stale.
func (e CacheEntry) IsFresh(now time.Time, ttl time.Duration) bool {
	written := e.WrittenAt()
	if now.Before(written) {
		return false
	}
	return now.Sub(written) < ttl
}

// DatasetMetadata maps a dataset id to the server-side last-updated marker.
type DatasetMetadata map[string]string

// DatasetStatus is the lifecycle state of a dataset held in memory.
type DatasetStatus string

const (
	StatusIdle    DatasetStatus = "idle"
	StatusLoading DatasetStatus = "loading"
	StatusReady   DatasetStatus = "ready"
	StatusFailed  DatasetStatus = "failed"
)

// Fetched reports whether the status blocks a non-forced fetch.
// Loading and ready both count as fetched; idle and failed allow a retry.
func (s DatasetStatus) Fetched() bool {
	return s == StatusLoading || s == StatusReady
}

// DatasetState is the in-memory view of one dataset.
type DatasetState struct {
	ID          string            `json:"id"`
	Status      DatasetStatus     `json:"status"`
	Data        []TimeSeriesPoint `json:"data,omitempty"`
	LastUpdated string            `json:"lastUpdated"`
	FetchedAt   *time.Time        `json:"fetchedAt,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// DatasetSummary is DatasetState without the series, used for listings.
type DatasetSummary struct {
	ID          string        `json:"id"`
	Status      DatasetStatus `json:"status"`
	Points      int           `json:"points"`
	LastUpdated string        `json:"lastUpdated"`
	Error       string        `json:"error,omitempty"`
}

// ReconcileResult summarizes one staleness reconciliation run.
type ReconcileResult struct {
	Checked   int               `json:"checked"`
	Refreshed []string          `json:"refreshed"`
	Failed    map[string]string `json:"failed"`
	StartedAt time.Time         `json:"startedAt"`
	Duration  string            `json:"duration"`
}
