package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
)

// CacheRepository provides data access methods for the cache_entry table.
// Each row holds one dataset's normalized series and the time it was written.
type CacheRepository struct {
	db *sql.DB
}

// NewCacheRepository creates a new CacheRepository with the provided database connection.
func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// GetCachedData retrieves the cache entry for a dataset id.
// Returns apperrors.ErrCacheMiss if no entry exists.
func (r *CacheRepository) GetCachedData(ctx context.Context, id string) (model.CacheEntry, error) {
	query := `
        SELECT id, data, timestamp
        FROM cache_entry
        WHERE id = ?
    `

	var entry model.CacheEntry
	var raw string

	err := r.db.QueryRowContext(ctx, query, id).Scan(&entry.ID, &raw, &entry.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CacheEntry{}, apperrors.ErrCacheMiss
	}
	if err != nil {
		return model.CacheEntry{}, fmt.Errorf("failed to query cache_entry table: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &entry.Data); err != nil {
		return model.CacheEntry{}, fmt.Errorf("failed to decode cache entry %s: %w", id, err)
	}

	return entry, nil
}

// CacheData writes or overwrites the cache entry for a dataset id.
// The timestamp is stored with millisecond precision.
func (r *CacheRepository) CacheData(ctx context.Context, id string, data []model.TimeSeriesPoint, ts time.Time) error {
	if data == nil {
		data = []model.TimeSeriesPoint{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", id, err)
	}

	query := `
        INSERT INTO cache_entry (id, data, timestamp)
        VALUES (?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            data = excluded.data,
            timestamp = excluded.timestamp
    `

	if _, err := r.db.ExecContext(ctx, query, id, string(raw), ts.UnixMilli()); err != nil {
		return fmt.Errorf("failed to write cache_entry %s: %w", id, err)
	}
	return nil
}

// DeleteCachedData removes the cache entry for a dataset id.
// Deleting a missing entry is not an error.
func (r *CacheRepository) DeleteCachedData(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cache_entry WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cache_entry %s: %w", id, err)
	}
	return nil
}
