package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/indicator"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/logging"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
)

// DefaultRiskPeriod is the moving-average window behind the risk score.
const DefaultRiskPeriod = 350

// DefaultCycleStarts are the Bitcoin halving dates used as ROI cycle origins.
var DefaultCycleStarts = []string{"2012-11-28", "2016-07-09", "2020-05-11", "2024-04-20"}

// SeriesSource supplies normalized points for a dataset id.
type SeriesSource interface {
	Points(ctx context.Context, id string) ([]model.TimeSeriesPoint, error)
}

// SnapshotStore persists day-granular derived values.
// It is implemented by repository.SnapshotRepository.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, kind, datasetID string) (model.Snapshot, error)
	SaveSnapshot(ctx context.Context, kind, datasetID string, payload []byte, createdAt time.Time) (model.Snapshot, error)
	DeleteSnapshots(ctx context.Context, datasetID string) error
}

// IndicatorOptions tunes the derived series.
type IndicatorOptions struct {
	RiskPeriod  int
	CycleStarts []string
}

// RegressionResult is a power-law fit with its deviation bands.
type RegressionResult struct {
	DatasetID string                     `json:"datasetId"`
	Fit       indicator.Regression       `json:"fit"`
	Bands     []indicator.RegressionBand `json:"bands"`
}

// IndicatorService computes derived series over datasets.
// Moving averages, RSI and regression are computed on every call. Risk level and
// ROI cycles are cached as snapshots that are valid for the UTC day they were written.
type IndicatorService struct {
	source    SeriesSource
	snapshots SnapshotStore
	opts      IndicatorOptions
	now       func() time.Time
	log       zerolog.Logger
}

// NewIndicatorService creates an IndicatorService. Zero options select the defaults.
func NewIndicatorService(source SeriesSource, snapshots SnapshotStore, opts IndicatorOptions) *IndicatorService {
	if opts.RiskPeriod <= 0 {
		opts.RiskPeriod = DefaultRiskPeriod
	}
	if len(opts.CycleStarts) == 0 {
		opts.CycleStarts = DefaultCycleStarts
	}
	return &IndicatorService{
		source:    source,
		snapshots: snapshots,
		opts:      opts,
		now:       time.Now,
		log:       logging.With("indicators"),
	}
}

// SetClock replaces the time source. Intended for tests.
func (s *IndicatorService) SetClock(now func() time.Time) {
	s.now = now
}

// InvalidateSnapshots drops every snapshot derived from a dataset.
// It is registered as a DatasetService refresh hook.
func (s *IndicatorService) InvalidateSnapshots(ctx context.Context, id string) {
	if err := s.snapshots.DeleteSnapshots(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("dataset", id).Msg("failed to invalidate snapshots")
	}
}

// SMA returns the simple moving average of a dataset.
func (s *IndicatorService) SMA(ctx context.Context, id string, period int) ([]model.TimeSeriesPoint, error) {
	points, err := s.source.Points(ctx, id)
	if err != nil {
		return nil, err
	}
	return indicator.SMA(points, period)
}

// EMA returns the exponential moving average of a dataset.
func (s *IndicatorService) EMA(ctx context.Context, id string, period int) ([]model.TimeSeriesPoint, error) {
	points, err := s.source.Points(ctx, id)
	if err != nil {
		return nil, err
	}
	return indicator.EMA(points, period)
}

// RSI returns the relative strength index of a dataset.
func (s *IndicatorService) RSI(ctx context.Context, id string, period int) ([]model.TimeSeriesPoint, error) {
	points, err := s.source.Points(ctx, id)
	if err != nil {
		return nil, err
	}
	return indicator.RSI(points, period)
}

// Regression fits the power-law model and evaluates it at -1, 0 and +1 standard deviations.
func (s *IndicatorService) Regression(ctx context.Context, id string) (RegressionResult, error) {
	points, err := s.source.Points(ctx, id)
	if err != nil {
		return RegressionResult{}, err
	}
	fit, err := indicator.LogRegression(points, indicator.BitcoinGenesis)
	if err != nil {
		return RegressionResult{}, err
	}
	return RegressionResult{
		DatasetID: id,
		Fit:       fit,
		Bands:     fit.Bands(points, -1, 0, 1),
	}, nil
}

// RiskLevel returns the risk score series of a dataset, reusing today's snapshot if present.
func (s *IndicatorService) RiskLevel(ctx context.Context, id string) (model.RiskLevel, error) {
	var out model.RiskLevel
	if s.loadSnapshot(ctx, model.SnapshotRiskLevel, id, &out) {
		return out, nil
	}

	points, err := s.source.Points(ctx, id)
	if err != nil {
		return model.RiskLevel{}, err
	}
	scores, err := indicator.RiskScore(points, s.opts.RiskPeriod)
	if err != nil {
		return model.RiskLevel{}, err
	}

	last := scores[len(scores)-1]
	out = model.RiskLevel{
		DatasetID: id,
		Current:   last.Value,
		AsOf:      last.Time,
		Series:    scores,
	}
	s.saveSnapshot(ctx, model.SnapshotRiskLevel, id, out)
	return out, nil
}

// ROICycles returns the ROI series from every configured cycle start, reusing today's
// snapshot if present. Cycle starts after the end of the data are left out.
func (s *IndicatorService) ROICycles(ctx context.Context, id string) (model.ROICycleSnapshot, error) {
	var out model.ROICycleSnapshot
	if s.loadSnapshot(ctx, model.SnapshotROICycle, id, &out) {
		return out, nil
	}

	points, err := s.source.Points(ctx, id)
	if err != nil {
		return model.ROICycleSnapshot{}, err
	}

	out = model.ROICycleSnapshot{DatasetID: id, Cycles: []model.ROICycle{}}
	for _, start := range s.opts.CycleStarts {
		roi, err := indicator.ROI(points, start)
		if err != nil {
			if errors.Is(err, apperrors.ErrInsufficientData) {
				continue
			}
			return model.ROICycleSnapshot{}, err
		}
		out.Cycles = append(out.Cycles, model.ROICycle{Start: start, Series: roi})
	}
	if len(out.Cycles) == 0 {
		return model.ROICycleSnapshot{}, fmt.Errorf("%w: no cycle start within %s", apperrors.ErrInsufficientData, id)
	}

	s.saveSnapshot(ctx, model.SnapshotROICycle, id, out)
	return out, nil
}

// ROISince returns a single ROI cycle from an arbitrary start date. It is not cached.
func (s *IndicatorService) ROISince(ctx context.Context, id, start string) (model.ROICycleSnapshot, error) {
	points, err := s.source.Points(ctx, id)
	if err != nil {
		return model.ROICycleSnapshot{}, err
	}
	roi, err := indicator.ROI(points, start)
	if err != nil {
		return model.ROICycleSnapshot{}, err
	}
	return model.ROICycleSnapshot{
		DatasetID: id,
		Cycles:    []model.ROICycle{{Start: start, Series: roi}},
	}, nil
}

// loadSnapshot decodes a snapshot written today into dst and reports whether it did.
// Missing, outdated and unreadable snapshots all count as a miss.
func (s *IndicatorService) loadSnapshot(ctx context.Context, kind, id string, dst any) bool {
	snap, err := s.snapshots.GetSnapshot(ctx, kind, id)
	if err != nil {
		if !errors.Is(err, apperrors.ErrSnapshotNotFound) {
			s.log.Warn().Err(err).Str("kind", kind).Str("dataset", id).Msg("snapshot read failed")
		}
		return false
	}
	if !snap.ValidOn(s.now()) {
		return false
	}
	if err := json.Unmarshal(snap.Payload, dst); err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Str("dataset", id).Msg("snapshot payload unreadable")
		return false
	}
	return true
}

func (s *IndicatorService) saveSnapshot(ctx context.Context, kind, id string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Str("dataset", id).Msg("failed to encode snapshot")
		return
	}
	if _, err := s.snapshots.SaveSnapshot(ctx, kind, id, payload, s.now()); err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Str("dataset", id).Msg("failed to save snapshot")
	}
}
