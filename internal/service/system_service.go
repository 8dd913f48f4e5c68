package service

import (
	"database/sql"
	"fmt"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/database"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/version"
)

// BreakerReporter exposes the upstream circuit breaker state.
type BreakerReporter interface {
	BreakerState() string
}

// SystemService handles system-related operations
type SystemService struct {
	db       *sql.DB
	upstream BreakerReporter
}

// NewSystemService creates a new SystemService. upstream may be nil.
func NewSystemService(db *sql.DB, upstream BreakerReporter) *SystemService {
	return &SystemService{
		db:       db,
		upstream: upstream,
	}
}

// UpstreamState returns the data API breaker state, or "unknown" without a reporter.
func (s *SystemService) UpstreamState() string {
	if s.upstream == nil {
		return "unknown"
	}
	return s.upstream.BreakerState()
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// CheckVersion returns the application version, the applied schema version and
// the optional features compiled into this build.
func (s *SystemService) CheckVersion() (model.VersionInfo, error) {
	dbVersion, err := database.SchemaVersion(s.db)
	if err != nil {
		return model.VersionInfo{}, fmt.Errorf("failed to read schema version: %w", err)
	}
	return model.VersionInfo{
		AppVersion: version.Version,
		DbVersion:  dbVersion,
		Features: map[string]bool{
			"binary_fear_greed": true,
			"dataset_families":  true,
			"snapshots":         true,
			"reconciler":        true,
		},
	}, nil
}
