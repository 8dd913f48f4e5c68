// Package upstream is the HTTP client for the remote data API.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/logging"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/metrics"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/series"
)

// DefaultMaxBodyBytes caps a single response body.
const DefaultMaxBodyBytes = 64 << 20

// Client fetches raw dataset payloads. It is implemented by DataClient and by test mocks.
type Client interface {
	FetchRecords(ctx context.Context, path string) ([]series.Record, error)
	FetchBinary(ctx context.Context, path string) ([]byte, error)
	FetchMetadata(ctx context.Context) (model.DatasetMetadata, error)
}

// Options configures a DataClient.
type Options struct {
	BaseURL      string
	Token        string
	MetadataPath string
	Timeout      time.Duration
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// MaxBodyBytes rejects larger response bodies with apperrors.ErrResponseTooLarge.
	MaxBodyBytes int64
	HTTPClient   *http.Client
}

// DataClient talks to the data API over HTTP behind a circuit breaker.
type DataClient struct {
	baseURL      string
	token        string
	metadataPath string
	maxBodyBytes int64
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker[[]byte]
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned %d", apperrors.ErrUpstreamStatus, e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return apperrors.ErrUpstreamStatus }

// NewDataClient creates a DataClient. Zero option values get defaults.
func NewDataClient(opts Options) *DataClient {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout == 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.MetadataPath == "" {
		opts.MetadataPath = "/api/last_update/"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	log := logging.With("upstream")
	settings := gobreaker.Settings{
		Name:        "data-api",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		// Client errors say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < 500
			}
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, apperrors.ErrResponseTooLarge)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitState.Set(float64(to))
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}

	return &DataClient{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		token:        opts.Token,
		metadataPath: opts.MetadataPath,
		maxBodyBytes: opts.MaxBodyBytes,
		httpClient:   httpClient,
		breaker:      gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// BreakerState returns the circuit breaker state name.
func (c *DataClient) BreakerState() string {
	return c.breaker.State().String()
}

// FetchRecords GETs a JSON array of objects.
// Elements that are not objects are dropped; a body that is not an array is malformed.
func (c *DataClient) FetchRecords(ctx context.Context, path string) ([]series.Record, error) {
	body, err := c.get(ctx, path, "application/json")
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var elems []any
	if err := dec.Decode(&elems); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrMalformedResponse, path, err)
	}
	if elems == nil {
		return nil, fmt.Errorf("%w: %s: expected a JSON array", apperrors.ErrMalformedResponse, path)
	}

	records := make([]series.Record, 0, len(elems))
	for _, e := range elems {
		if m, ok := e.(map[string]any); ok {
			records = append(records, series.Record(m))
		}
	}
	if dropped := len(elems) - len(records); dropped > 0 {
		logging.Debug().Str("path", path).Int("dropped", dropped).Msg("skipped non-object records")
	}
	return records, nil
}

// FetchBinary GETs a raw binary body.
func (c *DataClient) FetchBinary(ctx context.Context, path string) ([]byte, error) {
	return c.get(ctx, path, "application/octet-stream")
}

// FetchMetadata GETs the last-updated marker per dataset.
// Non-string markers are converted to their JSON text; null becomes "".
func (c *DataClient) FetchMetadata(ctx context.Context) (model.DatasetMetadata, error) {
	body, err := c.get(ctx, c.metadataPath, "application/json")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrMetadataFailed, err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, fmt.Errorf("%w: %w: expected a JSON object", apperrors.ErrMetadataFailed, apperrors.ErrMalformedResponse)
	}

	meta := make(model.DatasetMetadata, len(raw))
	for k, v := range raw {
		meta[k] = markerString(v)
	}
	return meta, nil
}

func markerString(v any) string {
	switch m := v.(type) {
	case nil:
		return ""
	case string:
		return m
	case json.Number:
		return m.String()
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Sprint(m)
		}
		return string(b)
	}
}

// get executes one GET through the breaker and returns the body of a 2xx response.
func (c *DataClient) get(ctx context.Context, path, accept string) ([]byte, error) {
	url := c.baseURL + path
	start := time.Now()

	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", accept)
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
		if err != nil {
			return nil, err
		}
		if int64(len(body)) > c.maxBodyBytes {
			return nil, fmt.Errorf("%w: %s exceeds %d bytes", apperrors.ErrResponseTooLarge, url, c.maxBodyBytes)
		}
		return body, nil
	})

	metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}
	metrics.UpstreamRequests.WithLabelValues("ok").Inc()
	return body, nil
}

func outcome(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return "status"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, apperrors.ErrResponseTooLarge):
		return "too_large"
	default:
		return "transport"
	}
}
