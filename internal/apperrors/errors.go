package apperrors

import "errors"

// Domain entity errors represent missing or unknown entities in the system.
var (
	// ErrDatasetNotFound indicates that no registry entry or family matches the dataset id.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrCacheMiss indicates that the persistent cache holds no entry for the dataset id.
	ErrCacheMiss = errors.New("cache entry not found")

	// ErrSnapshotNotFound indicates that no derived-value snapshot exists for the kind and dataset.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrNoData indicates that a dataset was fetched but holds no points.
	ErrNoData = errors.New("dataset has no data")
)

// Upstream errors represent failures talking to the remote data API.
var (
	// ErrFetchFailed wraps every failed dataset fetch, whatever the underlying cause.
	ErrFetchFailed = errors.New("failed to fetch dataset")

	// ErrUpstreamStatus indicates a non-2xx response from the data API.
	ErrUpstreamStatus = errors.New("unexpected upstream status")

	// ErrMalformedResponse indicates that the response body could not be decoded.
	ErrMalformedResponse = errors.New("malformed upstream response")

	// ErrResponseTooLarge indicates that a response body exceeded the configured size cap.
	ErrResponseTooLarge = errors.New("upstream response too large")

	// ErrMetadataFailed indicates that the last-updated metadata could not be retrieved.
	ErrMetadataFailed = errors.New("failed to fetch dataset metadata")

	// ErrReconcileInProgress indicates that a reconciliation run is already executing.
	ErrReconcileInProgress = errors.New("reconciliation already in progress")
)

// Validation errors represent invalid request input.
var (
	// ErrInvalidDatasetID indicates an empty or malformed dataset id.
	ErrInvalidDatasetID = errors.New("invalid dataset ID")

	// ErrInvalidPeriod indicates a window length that is not a positive integer.
	ErrInvalidPeriod = errors.New("period must be a positive integer")

	// ErrInsufficientData indicates that a series is shorter than the requested window.
	ErrInsufficientData = errors.New("not enough data for calculation")

	// ErrInvalidDate indicates a date that is not in "2006-01-02" or RFC3339 form.
	ErrInvalidDate = errors.New("invalid date")
)

// Configuration errors.
var (
	// ErrInvalidRegistry indicates a registry file that fails validation.
	ErrInvalidRegistry = errors.New("invalid dataset registry")

	// ErrInvalidSecret indicates a Fernet token that cannot be decrypted with the configured key.
	ErrInvalidSecret = errors.New("invalid encrypted secret")
)
