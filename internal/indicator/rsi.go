package indicator

import (
	"fmt"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
)

// RSI computes the Wilder-smoothed relative strength index series.
// Requires at least period+1 points; the first output is aligned with index period.
func RSI(points []model.TimeSeriesPoint, period int) ([]model.TimeSeriesPoint, error) {
	if period <= 0 {
		return nil, apperrors.ErrInvalidPeriod
	}
	if len(points) < period+1 {
		return nil, fmt.Errorf("%w: have %d points, need %d", apperrors.ErrInsufficientData, len(points), period+1)
	}

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := points[i].Value - points[i-1].Value
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]model.TimeSeriesPoint, 0, len(points)-period)
	out = append(out, model.TimeSeriesPoint{Time: points[period].Time, Value: rsiValue(avgGain, avgLoss)})

	for i := period + 1; i < len(points); i++ {
		change := points[i].Value - points[i-1].Value
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, model.TimeSeriesPoint{Time: points[i].Time, Value: rsiValue(avgGain, avgLoss)})
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
