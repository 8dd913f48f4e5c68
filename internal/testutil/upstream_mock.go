package testutil

import (
	"context"
	"sync"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/series"
)

// MockUpstreamClient is a mock implementation of upstream.Client for testing.
// It returns predefined responses per path instead of making network calls
// and counts how many times each path was requested.
type MockUpstreamClient struct {
	mu sync.Mutex

	// Records maps a dataset path to the JSON records returned for it.
	Records map[string][]series.Record
	// Binary maps a dataset path to the raw body returned for it.
	Binary map[string][]byte
	// Errors maps a path to the error returned for it. MetadataPath keys the metadata call.
	Errors map[string]error
	// Metadata is returned from FetchMetadata.
	Metadata model.DatasetMetadata
	// Gate, when set, blocks every data request until it is closed.
	Gate chan struct{}

	counts map[string]int
}

// MetadataPath is the key under which metadata requests are counted and errors configured.
const MetadataPath = "metadata"

// NewMockUpstreamClient creates a mock client with no configured responses.
func NewMockUpstreamClient() *MockUpstreamClient {
	return &MockUpstreamClient{
		Records:  map[string][]series.Record{},
		Binary:   map[string][]byte{},
		Errors:   map[string]error{},
		Metadata: model.DatasetMetadata{},
		counts:   map[string]int{},
	}
}

// SetRecords configures the records returned for a path.
func (m *MockUpstreamClient) SetRecords(path string, records []series.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records[path] = records
	delete(m.Errors, path)
}

// SetError configures the error returned for a path.
func (m *MockUpstreamClient) SetError(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[path] = err
}

// SetMetadata replaces the metadata response.
func (m *MockUpstreamClient) SetMetadata(meta model.DatasetMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Metadata = meta
}

// Count returns how many requests were made for a path.
func (m *MockUpstreamClient) Count(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[path]
}

// FetchRecords returns the configured records for path.
func (m *MockUpstreamClient) FetchRecords(ctx context.Context, path string) ([]series.Record, error) {
	if err := m.enter(ctx, path); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Errors[path]; err != nil {
		return nil, err
	}
	return m.Records[path], nil
}

// FetchBinary returns the configured body for path.
func (m *MockUpstreamClient) FetchBinary(ctx context.Context, path string) ([]byte, error) {
	if err := m.enter(ctx, path); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Errors[path]; err != nil {
		return nil, err
	}
	return m.Binary[path], nil
}

// FetchMetadata returns the configured metadata.
func (m *MockUpstreamClient) FetchMetadata(_ context.Context) (model.DatasetMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[MetadataPath]++
	if err := m.Errors[MetadataPath]; err != nil {
		return nil, err
	}
	out := make(model.DatasetMetadata, len(m.Metadata))
	for k, v := range m.Metadata {
		out[k] = v
	}
	return out, nil
}

func (m *MockUpstreamClient) enter(ctx context.Context, path string) error {
	m.mu.Lock()
	m.counts[path]++
	gate := m.Gate
	m.mu.Unlock()

	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
