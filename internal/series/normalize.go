// Package series normalizes raw API records into ordered time series.
package series

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
)

// Record is one raw object from an endpoint's JSON array.
type Record map[string]any

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	time.DateTime,
	"2006-01-02T15:04:05",
}

// Normalize maps raw records to points using the named date and value fields.
// Records with a missing or unparseable date, or a null, non-numeric or
// non-finite value, are dropped. The result is sorted ascending by date with one
// point per date; when a date repeats, the record that came last wins.
func Normalize(records []Record, dateField, valueField string) []model.TimeSeriesPoint {
	points := make([]model.TimeSeriesPoint, 0, len(records))
	for _, rec := range records {
		day, ok := ParseDate(rec[dateField])
		if !ok {
			continue
		}
		v, ok := ParseValue(rec[valueField])
		if !ok {
			continue
		}
		points = append(points, model.TimeSeriesPoint{Time: day, Value: v})
	}
	return SortDedupe(points)
}

// SortDedupe orders points ascending by Time and keeps the last point for each date.
// The input slice is reordered in place.
func SortDedupe(points []model.TimeSeriesPoint) []model.TimeSeriesPoint {
	if len(points) == 0 {
		return []model.TimeSeriesPoint{}
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time < points[j].Time
	})

	out := points[:0]
	for i, p := range points {
		if i+1 < len(points) && points[i+1].Time == p.Time {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ParseDate converts a raw date field to "2006-01-02".
// Strings in common layouts and UNIX timestamps (seconds or milliseconds,
// numeric or numeric string) are accepted.
func ParseDate(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return "", false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC().Format(time.DateOnly), true
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return unixDate(n), true
		}
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", false
		}
		return unixDate(int64(v)), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return unixDate(n), true
		}
	}
	return "", false
}

func unixDate(n int64) string {
	// Anything past year 33658 in seconds is a millisecond timestamp.
	if n > 1e12 || n < -1e12 {
		return time.UnixMilli(n).UTC().Format(time.DateOnly)
	}
	return time.Unix(n, 0).UTC().Format(time.DateOnly)
}

// ParseValue converts a raw value field to a finite float64.
// Numbers and numeric strings are accepted; FRED's "." placeholder and other
// non-numeric strings are rejected.
func ParseValue(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Values extracts the values of points in order.
func Values(points []model.TimeSeriesPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// LastTime returns the date of the final point, or "" for an empty series.
func LastTime(points []model.TimeSeriesPoint) string {
	if len(points) == 0 {
		return ""
	}
	return points[len(points)-1].Time
}
