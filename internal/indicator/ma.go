package indicator

import (
	"fmt"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
)

func checkWindow(points []model.TimeSeriesPoint, period int) error {
	if period <= 0 {
		return apperrors.ErrInvalidPeriod
	}
	if len(points) < period {
		return fmt.Errorf("%w: have %d points, need %d", apperrors.ErrInsufficientData, len(points), period)
	}
	return nil
}

// SMA computes the rolling simple moving average over period points.
// The first output point is aligned with input index period-1.
func SMA(points []model.TimeSeriesPoint, period int) ([]model.TimeSeriesPoint, error) {
	if err := checkWindow(points, period); err != nil {
		return nil, err
	}

	out := make([]model.TimeSeriesPoint, 0, len(points)-period+1)
	sum := 0.0
	for i, p := range points {
		sum += p.Value
		if i >= period {
			sum -= points[i-period].Value
		}
		if i >= period-1 {
			out = append(out, model.TimeSeriesPoint{Time: p.Time, Value: sum / float64(period)})
		}
	}
	return out, nil
}

// EMA computes the exponential moving average seeded with the SMA of the first period points.
func EMA(points []model.TimeSeriesPoint, period int) ([]model.TimeSeriesPoint, error) {
	if err := checkWindow(points, period); err != nil {
		return nil, err
	}

	k := 2.0 / float64(period+1)
	seed := 0.0
	for _, p := range points[:period] {
		seed += p.Value
	}
	ema := seed / float64(period)

	out := make([]model.TimeSeriesPoint, 0, len(points)-period+1)
	out = append(out, model.TimeSeriesPoint{Time: points[period-1].Time, Value: ema})
	for _, p := range points[period:] {
		ema = p.Value*k + ema*(1-k)
		out = append(out, model.TimeSeriesPoint{Time: p.Time, Value: ema})
	}
	return out, nil
}
