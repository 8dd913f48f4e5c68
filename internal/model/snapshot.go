package model

import "time"

// Snapshot kinds stored in the snapshot table.
const (
	SnapshotRiskLevel = "risk_level"
	SnapshotROICycle  = "roi_cycle"
)

// Snapshot is a derived-value cache entry that is only valid on the calendar day it was written.
type Snapshot struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	DatasetID string    `json:"datasetId"`
	Payload   []byte    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidOn reports whether the snapshot was written on the same UTC calendar day as now.
func (s Snapshot) ValidOn(now time.Time) bool {
	a := s.CreatedAt.UTC()
	b := now.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// RiskLevel is the risk snapshot payload for one dataset.
type RiskLevel struct {
	DatasetID string            `json:"datasetId"`
	Current   float64           `json:"current"`
	AsOf      string            `json:"asOf"`
	Series    []TimeSeriesPoint `json:"series"`
}

// ROICycle is the return-on-investment series measured from one cycle start date.
type ROICycle struct {
	Start  string            `json:"start"`
	Series []TimeSeriesPoint `json:"series"` // Time is the calendar date, Value the ROI multiple
}

// ROICycleSnapshot groups the ROI series of all configured cycles for one dataset.
type ROICycleSnapshot struct {
	DatasetID string     `json:"datasetId"`
	Cycles    []ROICycle `json:"cycles"`
}
