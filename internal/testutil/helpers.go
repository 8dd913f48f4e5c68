package testutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/registry"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/repository"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/series"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/service"
)

// Paths served by the test registry.
const (
	BTCPath       = "/api/btc/price/"
	ETHPath       = "/api/eth/price/"
	FearGreedPath = "/api/fear_greed_binary/"
	AltcoinPath   = "/api/altcoins/%s/price/"
)

// NewTestRegistry returns a small registry with two JSON datasets, one binary
// dataset and the altcoin_ family with SOL as its only configured member.
func NewTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg, err := registry.New(
		[]registry.Dataset{
			{ID: "btcData", Path: BTCPath, DateField: "date", ValueField: "close", Format: registry.FormatJSON},
			{ID: "ethData", Path: ETHPath, DateField: "date", ValueField: "close", Format: registry.FormatJSON},
			{ID: "fearGreedBinary", Path: FearGreedPath, Format: registry.FormatBinary},
		},
		[]registry.Family{
			{Prefix: "altcoin_", Path: "/api/altcoins/{symbol}/price/", DateField: "date", ValueField: "close", Members: []string{"SOL"}},
		},
	)
	if err != nil {
		t.Fatalf("Failed to build test registry: %v", err)
	}
	return reg
}

// NewTestDatasetService wires a DatasetService over the test registry, the given
// mock client and a sqlite cache.
func NewTestDatasetService(t *testing.T, db *sql.DB, client *MockUpstreamClient) *service.DatasetService {
	t.Helper()

	return service.NewDatasetService(
		NewTestRegistry(t),
		client,
		repository.NewCacheRepository(db),
		service.DefaultCacheTTL,
	)
}

// NewTestIndicatorService wires an IndicatorService over a DatasetService and sqlite snapshots.
// The service is registered as a refresh hook so snapshots are dropped on refresh.
func NewTestIndicatorService(t *testing.T, db *sql.DB, datasets *service.DatasetService, opts service.IndicatorOptions) *service.IndicatorService {
	t.Helper()

	svc := service.NewIndicatorService(datasets, repository.NewSnapshotRepository(db), opts)
	datasets.OnRefresh(svc.InvalidateSnapshots)
	return svc
}

// NewTestSystemService creates a SystemService over db.
func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db, nil)
}

// NewTestReconciler creates a Reconciler driven by client metadata.
func NewTestReconciler(t *testing.T, client *MockUpstreamClient, datasets *service.DatasetService) *service.Reconciler {
	t.Helper()

	return service.NewReconciler(client, datasets.Registry(), datasets, 4)
}

// DailyRecords builds n daily raw records starting at start, valued by fn(i).
func DailyRecords(start string, n int, fn func(i int) float64) []series.Record {
	day, err := time.Parse(time.DateOnly, start)
	if err != nil {
		panic(fmt.Sprintf("testutil: bad start date %q", start))
	}
	out := make([]series.Record, n)
	for i := range n {
		out[i] = series.Record{
			"date":  day.AddDate(0, 0, i).Format(time.DateOnly),
			"close": fn(i),
		}
	}
	return out
}

// DailyPoints builds n daily points starting at start, valued by fn(i).
func DailyPoints(start string, n int, fn func(i int) float64) []model.TimeSeriesPoint {
	day, err := time.Parse(time.DateOnly, start)
	if err != nil {
		panic(fmt.Sprintf("testutil: bad start date %q", start))
	}
	out := make([]model.TimeSeriesPoint, n)
	for i := range n {
		out[i] = model.TimeSeriesPoint{Time: day.AddDate(0, 0, i).Format(time.DateOnly), Value: fn(i)}
	}
	return out
}

// ErrCacheUnavailable is returned by FailingCache.
var ErrCacheUnavailable = errors.New("cache unavailable")

// FailingCache is a service.Cache whose every operation fails.
// It counts calls so tests can assert the cache was consulted.
type FailingCache struct {
	mu    sync.Mutex
	Calls int
}

func (c *FailingCache) hit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
}

// GetCachedData always fails.
func (c *FailingCache) GetCachedData(_ context.Context, _ string) (model.CacheEntry, error) {
	c.hit()
	return model.CacheEntry{}, ErrCacheUnavailable
}

// CacheData always fails.
func (c *FailingCache) CacheData(_ context.Context, _ string, _ []model.TimeSeriesPoint, _ time.Time) error {
	c.hit()
	return ErrCacheUnavailable
}

// DeleteCachedData always fails.
func (c *FailingCache) DeleteCachedData(_ context.Context, _ string) error {
	c.hit()
	return ErrCacheUnavailable
}
