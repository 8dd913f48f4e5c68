// Package indicator computes derived series from normalized datasets.
// Every function is pure: identical inputs give identical outputs.
package indicator

import (
	"fmt"
	"math"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
)

// epsilon keeps logarithms and divisions away from zero.
const epsilon = 1e-9

// RiskScore rates each point by how far price sits above its moving average.
// The raw metric is ln(value / SMA(period)); it is min-max scaled over the whole
// series to [0, 1], where 1 is the most extended point in history.
func RiskScore(points []model.TimeSeriesPoint, period int) ([]model.TimeSeriesPoint, error) {
	sma, err := SMA(points, period)
	if err != nil {
		return nil, err
	}

	offset := period - 1
	raw := make([]float64, len(sma))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, avg := range sma {
		v := points[i+offset].Value
		r := math.Log(math.Max(v, epsilon) / math.Max(avg.Value, epsilon))
		raw[i] = r
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}

	out := make([]model.TimeSeriesPoint, len(sma))
	span := hi - lo
	for i, avg := range sma {
		score := 0.5
		if span > epsilon {
			score = (raw[i] - lo) / span
		}
		out[i] = model.TimeSeriesPoint{Time: avg.Time, Value: score}
	}
	return out, nil
}

// ROI returns value / value-at-start for every point on or after start.
// start is a "2006-01-02" date; the first point on or after it is the base.
func ROI(points []model.TimeSeriesPoint, start string) ([]model.TimeSeriesPoint, error) {
	base := -1
	for i, p := range points {
		if p.Time >= start {
			base = i
			break
		}
	}
	if base < 0 {
		return nil, fmt.Errorf("%w: no data on or after %s", apperrors.ErrInsufficientData, start)
	}
	baseValue := points[base].Value
	if math.Abs(baseValue) < epsilon {
		return nil, fmt.Errorf("%w: base value at %s is zero", apperrors.ErrInsufficientData, points[base].Time)
	}

	out := make([]model.TimeSeriesPoint, 0, len(points)-base)
	for _, p := range points[base:] {
		out = append(out, model.TimeSeriesPoint{Time: p.Time, Value: p.Value / baseValue})
	}
	return out, nil
}
