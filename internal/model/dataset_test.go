package model

import (
	"testing"
	"time"
)

func TestCacheEntry_IsFresh(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ttl := 24 * time.Hour

	tests := []struct {
		name    string
		written time.Time
		want    bool
	}{
		{"just written", now, true},
		{"inside the window", now.Add(-23 * time.Hour), true},
		{"at the window edge", now.Add(-ttl), false},
		{"outside the window", now.Add(-25 * time.Hour), false},
		{"written in the future", now.Add(time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := CacheEntry{Timestamp: tt.written.UnixMilli()}
			if got := e.IsFresh(now, ttl); got != tt.want {
				t.Errorf("IsFresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDatasetStatus_Fetched(t *testing.T) {
	for status, want := range map[DatasetStatus]bool{
		StatusIdle:    false,
		StatusLoading: true,
		StatusReady:   true,
		StatusFailed:  false,
	} {
		if got := status.Fetched(); got != want {
			t.Errorf("%s.Fetched() = %v, want %v", status, got, want)
		}
	}
}
