package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
)

// SnapshotRepository provides data access methods for the snapshot table.
// A snapshot is unique per (kind, dataset_id); saving replaces the previous one.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the provided database connection.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// GetSnapshot retrieves the snapshot of the given kind for a dataset.
// Returns apperrors.ErrSnapshotNotFound if none exists.
func (r *SnapshotRepository) GetSnapshot(ctx context.Context, kind, datasetID string) (model.Snapshot, error) {
	query := `
        SELECT id, kind, dataset_id, payload, created_at
        FROM snapshot
        WHERE kind = ? AND dataset_id = ?
    `

	var s model.Snapshot
	var payload, createdAt string

	err := r.db.QueryRowContext(ctx, query, kind, datasetID).Scan(&s.ID, &s.Kind, &s.DatasetID, &payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, apperrors.ErrSnapshotNotFound
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to query snapshot table: %w", err)
	}

	s.Payload = []byte(payload)
	s.CreatedAt, err = ParseTime(createdAt)
	if err != nil {
		return model.Snapshot{}, err
	}
	return s, nil
}

// SaveSnapshot inserts or replaces the snapshot of the given kind for a dataset.
// Every save gets a fresh id.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, kind, datasetID string, payload []byte, createdAt time.Time) (model.Snapshot, error) {
	s := model.Snapshot{
		ID:        uuid.New().String(),
		Kind:      kind,
		DatasetID: datasetID,
		Payload:   payload,
		CreatedAt: createdAt.UTC(),
	}

	query := `
        INSERT INTO snapshot (id, kind, dataset_id, payload, created_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(kind, dataset_id) DO UPDATE SET
            id = excluded.id,
            payload = excluded.payload,
            created_at = excluded.created_at
    `

	_, err := r.db.ExecContext(ctx, query, s.ID, s.Kind, s.DatasetID, string(payload), s.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to write snapshot %s/%s: %w", kind, datasetID, err)
	}
	return s, nil
}

// DeleteSnapshots removes every snapshot derived from a dataset.
func (r *SnapshotRepository) DeleteSnapshots(ctx context.Context, datasetID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshot WHERE dataset_id = ?`, datasetID); err != nil {
		return fmt.Errorf("failed to delete snapshots for %s: %w", datasetID, err)
	}
	return nil
}
