package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
)

// BitcoinGenesis is the default origin for power-law regressions.
var BitcoinGenesis = time.Date(2009, 1, 3, 0, 0, 0, 0, time.UTC)

// Regression is a least-squares fit of log10(value) on log10(days since origin).
type Regression struct {
	Origin    time.Time `json:"origin"`
	Slope     float64   `json:"slope"`
	Intercept float64   `json:"intercept"`
	R2        float64   `json:"r2"`
	StdDev    float64   `json:"stdDev"` // Residual standard deviation in log10 units
}

// At returns the fitted value for a calendar date.
func (r Regression) At(t time.Time) float64 {
	days := t.Sub(r.Origin).Hours() / 24
	if days < 1 {
		days = 1
	}
	return math.Pow(10, r.Intercept+r.Slope*math.Log10(days))
}

// RegressionBand is the fitted line shifted by whole residual standard deviations.
type RegressionBand struct {
	Sigma  float64                 `json:"sigma"`
	Series []model.TimeSeriesPoint `json:"series"`
}

// LogRegression fits the power-law model. Points on or before the origin and
// non-positive values are skipped.
func LogRegression(points []model.TimeSeriesPoint, origin time.Time) (Regression, error) {
	var xs, ys []float64
	for _, p := range points {
		t, err := time.Parse(time.DateOnly, p.Time)
		if err != nil || p.Value <= 0 {
			continue
		}
		days := t.Sub(origin).Hours() / 24
		if days < 1 {
			continue
		}
		xs = append(xs, math.Log10(days))
		ys = append(ys, math.Log10(p.Value))
	}
	if len(xs) < 2 {
		return Regression{}, fmt.Errorf("%w: regression needs 2 usable points, have %d", apperrors.ErrInsufficientData, len(xs))
	}

	n := float64(len(xs))
	var sx, sy, sxx, sxy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
		sxx += xs[i] * xs[i]
		sxy += xs[i] * ys[i]
	}
	denom := n*sxx - sx*sx
	if math.Abs(denom) < epsilon {
		return Regression{}, fmt.Errorf("%w: all points fall on the same day", apperrors.ErrInsufficientData)
	}
	slope := (n*sxy - sx*sy) / denom
	intercept := (sy - slope*sx) / n

	meanY := sy / n
	var ssTot, ssRes float64
	for i := range xs {
		fit := intercept + slope*xs[i]
		ssRes += (ys[i] - fit) * (ys[i] - fit)
		ssTot += (ys[i] - meanY) * (ys[i] - meanY)
	}
	r2 := 1.0
	if ssTot > epsilon {
		r2 = 1 - ssRes/ssTot
	}

	return Regression{
		Origin:    origin,
		Slope:     slope,
		Intercept: intercept,
		R2:        r2,
		StdDev:    math.Sqrt(ssRes / n),
	}, nil
}

// Bands evaluates the fit at every point's date, shifted by each sigma multiple.
func (r Regression) Bands(points []model.TimeSeriesPoint, sigmas ...float64) []RegressionBand {
	bands := make([]RegressionBand, len(sigmas))
	for i, s := range sigmas {
		shift := math.Pow(10, s*r.StdDev)
		series := make([]model.TimeSeriesPoint, 0, len(points))
		for _, p := range points {
			t, err := time.Parse(time.DateOnly, p.Time)
			if err != nil {
				continue
			}
			series = append(series, model.TimeSeriesPoint{Time: p.Time, Value: r.At(t) * shift})
		}
		bands[i] = RegressionBand{Sigma: s, Series: series}
	}
	return bands
}
