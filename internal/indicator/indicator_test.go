package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
)

func makeSeries(start string, values ...float64) []model.TimeSeriesPoint {
	t0, _ := time.Parse(time.DateOnly, start)
	points := make([]model.TimeSeriesPoint, len(values))
	for i, v := range values {
		points[i] = model.TimeSeriesPoint{Time: t0.AddDate(0, 0, i).Format(time.DateOnly), Value: v}
	}
	return points
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestSMA(t *testing.T) {
	t.Run("rolling average aligned to window end", func(t *testing.T) {
		got, err := SMA(makeSeries("2024-01-01", 1, 2, 3, 4, 5), 3)
		if err != nil {
			t.Fatalf("SMA failed: %v", err)
		}
		want := []float64{2, 3, 4}
		if len(got) != len(want) {
			t.Fatalf("Expected %d points, got %d", len(want), len(got))
		}
		for i := range want {
			if !approx(got[i].Value, want[i]) {
				t.Errorf("Point %d: expected %v, got %v", i, want[i], got[i].Value)
			}
		}
		if got[0].Time != "2024-01-03" {
			t.Errorf("Expected first point on 2024-01-03, got %s", got[0].Time)
		}
	})

	t.Run("invalid period", func(t *testing.T) {
		if _, err := SMA(makeSeries("2024-01-01", 1, 2), 0); !errors.Is(err, apperrors.ErrInvalidPeriod) {
			t.Errorf("Expected ErrInvalidPeriod, got %v", err)
		}
	})

	t.Run("not enough data", func(t *testing.T) {
		if _, err := SMA(makeSeries("2024-01-01", 1, 2), 3); !errors.Is(err, apperrors.ErrInsufficientData) {
			t.Errorf("Expected ErrInsufficientData, got %v", err)
		}
	})
}

func TestEMA(t *testing.T) {
	got, err := EMA(makeSeries("2024-01-01", 2, 4, 6, 8), 2)
	if err != nil {
		t.Fatalf("EMA failed: %v", err)
	}
	// seed = 3, k = 2/3: 6*2/3+3/3 = 5, 8*2/3+5/3 = 7
	want := []float64{3, 5, 7}
	for i := range want {
		if !approx(got[i].Value, want[i]) {
			t.Errorf("Point %d: expected %v, got %v", i, want[i], got[i].Value)
		}
	}
}

func TestRSI(t *testing.T) {
	t.Run("monotonic rise is 100", func(t *testing.T) {
		got, err := RSI(makeSeries("2024-01-01", 1, 2, 3, 4, 5, 6), 3)
		if err != nil {
			t.Fatalf("RSI failed: %v", err)
		}
		for _, p := range got {
			if p.Value != 100 {
				t.Errorf("Expected 100, got %v", p.Value)
			}
		}
	})

	t.Run("flat series is neutral", func(t *testing.T) {
		got, err := RSI(makeSeries("2024-01-01", 5, 5, 5, 5), 2)
		if err != nil {
			t.Fatalf("RSI failed: %v", err)
		}
		if got[len(got)-1].Value != 50 {
			t.Errorf("Expected 50, got %v", got[len(got)-1].Value)
		}
	})

	t.Run("values stay within bounds", func(t *testing.T) {
		got, _ := RSI(makeSeries("2024-01-01", 10, 12, 9, 14, 8, 15, 7, 11), 3)
		for _, p := range got {
			if p.Value < 0 || p.Value > 100 {
				t.Errorf("RSI out of bounds: %v", p.Value)
			}
		}
	})

	t.Run("requires period plus one points", func(t *testing.T) {
		if _, err := RSI(makeSeries("2024-01-01", 1, 2, 3), 3); !errors.Is(err, apperrors.ErrInsufficientData) {
			t.Errorf("Expected ErrInsufficientData, got %v", err)
		}
	})
}

func TestLogRegression(t *testing.T) {
	origin := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("recovers an exact power law", func(t *testing.T) {
		var points []model.TimeSeriesPoint
		for d := 10; d <= 1000; d += 10 {
			day := origin.AddDate(0, 0, d)
			points = append(points, model.TimeSeriesPoint{
				Time:  day.Format(time.DateOnly),
				Value: math.Pow(10, -1) * math.Pow(float64(d), 2),
			})
		}

		reg, err := LogRegression(points, origin)
		if err != nil {
			t.Fatalf("LogRegression failed: %v", err)
		}
		if !approx(reg.Slope, 2) || !approx(reg.Intercept, -1) {
			t.Errorf("Expected slope 2 intercept -1, got %v %v", reg.Slope, reg.Intercept)
		}
		if !approx(reg.R2, 1) {
			t.Errorf("Expected R2 1, got %v", reg.R2)
		}

		bands := reg.Bands(points, 0, 1)
		if len(bands) != 2 || len(bands[0].Series) != len(points) {
			t.Fatalf("Unexpected bands %+v", bands)
		}
		if !approx(bands[0].Series[0].Value, points[0].Value) {
			t.Errorf("Expected fitted value %v, got %v", points[0].Value, bands[0].Series[0].Value)
		}
	})

	t.Run("skips non-positive values", func(t *testing.T) {
		points := []model.TimeSeriesPoint{
			{Time: "2020-01-11", Value: 0},
			{Time: "2020-01-21", Value: -3},
		}
		if _, err := LogRegression(points, origin); !errors.Is(err, apperrors.ErrInsufficientData) {
			t.Errorf("Expected ErrInsufficientData, got %v", err)
		}
	})
}

func TestRiskScore(t *testing.T) {
	t.Run("scores are within unit range", func(t *testing.T) {
		got, err := RiskScore(makeSeries("2024-01-01", 10, 11, 12, 30, 9, 10, 50, 12), 3)
		if err != nil {
			t.Fatalf("RiskScore failed: %v", err)
		}
		for _, p := range got {
			if p.Value < 0 || p.Value > 1 {
				t.Errorf("Score out of range: %v", p.Value)
			}
		}
	})

	t.Run("flat series is mid risk", func(t *testing.T) {
		got, err := RiskScore(makeSeries("2024-01-01", 5, 5, 5, 5), 2)
		if err != nil {
			t.Fatalf("RiskScore failed: %v", err)
		}
		for _, p := range got {
			if p.Value != 0.5 {
				t.Errorf("Expected 0.5, got %v", p.Value)
			}
		}
	})

	t.Run("zero values do not produce NaN", func(t *testing.T) {
		got, err := RiskScore(makeSeries("2024-01-01", 0, 0, 1, 0, 2), 2)
		if err != nil {
			t.Fatalf("RiskScore failed: %v", err)
		}
		for _, p := range got {
			if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
				t.Errorf("Expected finite score, got %v", p.Value)
			}
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		s := makeSeries("2024-01-01", 3, 1, 4, 1, 5, 9, 2, 6)
		a, _ := RiskScore(s, 3)
		b, _ := RiskScore(s, 3)
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("Expected identical output at %d", i)
			}
		}
	})
}

func TestROI(t *testing.T) {
	t.Run("relative to first point on or after start", func(t *testing.T) {
		got, err := ROI(makeSeries("2024-01-01", 5, 10, 20, 40), "2024-01-02")
		if err != nil {
			t.Fatalf("ROI failed: %v", err)
		}
		want := []float64{1, 2, 4}
		for i := range want {
			if !approx(got[i].Value, want[i]) {
				t.Errorf("Point %d: expected %v, got %v", i, want[i], got[i].Value)
			}
		}
	})

	t.Run("start after the series", func(t *testing.T) {
		if _, err := ROI(makeSeries("2024-01-01", 1, 2), "2025-01-01"); !errors.Is(err, apperrors.ErrInsufficientData) {
			t.Errorf("Expected ErrInsufficientData, got %v", err)
		}
	})

	t.Run("zero base", func(t *testing.T) {
		if _, err := ROI(makeSeries("2024-01-01", 0, 2), "2024-01-01"); !errors.Is(err, apperrors.ErrInsufficientData) {
			t.Errorf("Expected ErrInsufficientData, got %v", err)
		}
	})
}
