package repository_test

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/repository"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/testutil"
)

func TestCacheRepository_GetCachedData(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ErrCacheMiss for unknown id", func(t *testing.T) {
		repo := repository.NewCacheRepository(testutil.SetupTestDB(t))

		_, err := repo.GetCachedData(ctx, "btcData")
		if !errors.Is(err, apperrors.ErrCacheMiss) {
			t.Errorf("Expected ErrCacheMiss, got %v", err)
		}
	})

	t.Run("returns written data and timestamp", func(t *testing.T) {
		repo := repository.NewCacheRepository(testutil.SetupTestDB(t))
		points := []model.TimeSeriesPoint{
			{Time: "2024-01-01", Value: 42000.5},
			{Time: "2024-01-02", Value: 43000, Label: "Greed"},
		}
		ts := time.Date(2024, 1, 3, 10, 30, 0, 123_000_000, time.UTC)

		if err := repo.CacheData(ctx, "btcData", points, ts); err != nil {
			t.Fatalf("CacheData failed: %v", err)
		}

		entry, err := repo.GetCachedData(ctx, "btcData")
		if err != nil {
			t.Fatalf("GetCachedData failed: %v", err)
		}
		if entry.ID != "btcData" {
			t.Errorf("Expected id btcData, got %s", entry.ID)
		}
		if entry.Timestamp != ts.UnixMilli() {
			t.Errorf("Expected timestamp %d, got %d", ts.UnixMilli(), entry.Timestamp)
		}
		if !reflect.DeepEqual(entry.Data, points) {
			t.Errorf("Expected %+v, got %+v", points, entry.Data)
		}
	})

	t.Run("overwrites existing entry", func(t *testing.T) {
		repo := repository.NewCacheRepository(testutil.SetupTestDB(t))
		first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		second := first.Add(time.Hour)

		if err := repo.CacheData(ctx, "ethData", []model.TimeSeriesPoint{{Time: "2024-01-01", Value: 1}}, first); err != nil {
			t.Fatalf("CacheData failed: %v", err)
		}
		if err := repo.CacheData(ctx, "ethData", []model.TimeSeriesPoint{{Time: "2024-01-02", Value: 2}}, second); err != nil {
			t.Fatalf("CacheData failed: %v", err)
		}

		entry, err := repo.GetCachedData(ctx, "ethData")
		if err != nil {
			t.Fatalf("GetCachedData failed: %v", err)
		}
		if len(entry.Data) != 1 || entry.Data[0].Time != "2024-01-02" {
			t.Errorf("Expected overwritten data, got %+v", entry.Data)
		}
		if entry.Timestamp != second.UnixMilli() {
			t.Errorf("Expected second timestamp, got %d", entry.Timestamp)
		}
	})

	t.Run("stores nil data as empty series", func(t *testing.T) {
		repo := repository.NewCacheRepository(testutil.SetupTestDB(t))
		if err := repo.CacheData(ctx, "m2Supply", nil, time.Now()); err != nil {
			t.Fatalf("CacheData failed: %v", err)
		}
		entry, err := repo.GetCachedData(ctx, "m2Supply")
		if err != nil {
			t.Fatalf("GetCachedData failed: %v", err)
		}
		if len(entry.Data) != 0 {
			t.Errorf("Expected empty series, got %d points", len(entry.Data))
		}
	})
}

func TestCacheRepository_DeleteCachedData(t *testing.T) {
	ctx := context.Background()

	t.Run("removes entry", func(t *testing.T) {
		repo := repository.NewCacheRepository(testutil.SetupTestDB(t))
		if err := repo.CacheData(ctx, "btcData", []model.TimeSeriesPoint{{Time: "2024-01-01", Value: 1}}, time.Now()); err != nil {
			t.Fatalf("CacheData failed: %v", err)
		}

		if err := repo.DeleteCachedData(ctx, "btcData"); err != nil {
			t.Fatalf("DeleteCachedData failed: %v", err)
		}
		if _, err := repo.GetCachedData(ctx, "btcData"); !errors.Is(err, apperrors.ErrCacheMiss) {
			t.Errorf("Expected ErrCacheMiss after delete, got %v", err)
		}
	})

	t.Run("missing entry is not an error", func(t *testing.T) {
		repo := repository.NewCacheRepository(testutil.SetupTestDB(t))
		if err := repo.DeleteCachedData(ctx, "nothing"); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})

	t.Run("fails once the database is closed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewCacheRepository(db)
		db.Close()

		if err := repo.DeleteCachedData(ctx, "btcData"); err == nil {
			t.Error("Expected error on closed database")
		}
		if _, err := repo.GetCachedData(ctx, "btcData"); err == nil || errors.Is(err, apperrors.ErrCacheMiss) {
			t.Errorf("Expected a non-miss error, got %v", err)
		}
	})
}

func TestCacheRepository_RoundTripProperty(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCacheRepository(testutil.SetupTestDB(t))

	pointGen := gopter.CombineGens(
		gen.IntRange(0, 20000),
		gen.Float64Range(-1e9, 1e9),
	).Map(func(v []interface{}) model.TimeSeriesPoint {
		day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, v[0].(int))
		return model.TimeSeriesPoint{Time: day.Format(time.DateOnly), Value: v[1].(float64)}
	})

	properties := gopter.NewProperties(nil)
	properties.Property("read after write returns the same series and timestamp", prop.ForAll(
		func(points []model.TimeSeriesPoint, ms int64) bool {
			ts := time.UnixMilli(ms)
			if err := repo.CacheData(ctx, "prop", points, ts); err != nil {
				return false
			}
			entry, err := repo.GetCachedData(ctx, "prop")
			if err != nil || entry.Timestamp != ms || len(entry.Data) != len(points) {
				return false
			}
			for i := range points {
				if entry.Data[i].Time != points[i].Time || math.Float64bits(entry.Data[i].Value) != math.Float64bits(points[i].Value) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(pointGen),
		gen.Int64Range(0, 4102444800000),
	))
	properties.TestingRun(t)
}
