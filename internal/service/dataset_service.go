package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/feargreed"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/logging"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/metrics"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/registry"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/series"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/upstream"
)

// DefaultCacheTTL is the persistent cache freshness window.
const DefaultCacheTTL = 24 * time.Hour

// Cache is the persistent store behind the in-memory dataset state.
// It is implemented by repository.CacheRepository.
type Cache interface {
	GetCachedData(ctx context.Context, id string) (model.CacheEntry, error)
	CacheData(ctx context.Context, id string, data []model.TimeSeriesPoint, ts time.Time) error
	DeleteCachedData(ctx context.Context, id string) error
}

// RefreshHook runs after a dataset's caches are cleared by Refresh and before it is refetched.
type RefreshHook func(ctx context.Context, id string)

// DatasetService owns the in-memory state of every dataset for the life of the process.
// Reads go memory -> persistent cache -> network; network results are written
// through to the persistent cache. Concurrent fetches of one dataset share a
// single in-flight request.
//
// Family members are served only once they are known: listed in the registry or
// announced by the metadata endpoint through Discover. Any other id matching a
// family prefix is reported as not found and never reaches the network.
type DatasetService struct {
	registry *registry.Registry
	client   upstream.Client
	cache    Cache
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger

	mu     sync.RWMutex
	states  map[string]*model.DatasetState
	members map[string]bool
	hooks   []RefreshHook

	inflight singleflight.Group
}

// NewDatasetService creates a DatasetService. A zero ttl selects DefaultCacheTTL.
func NewDatasetService(reg *registry.Registry, client upstream.Client, cache Cache, ttl time.Duration) *DatasetService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	s := &DatasetService{
		registry: reg,
		client:   client,
		cache:    cache,
		ttl:      ttl,
		now:      time.Now,
		log:      logging.With("datasets"),
		states:   make(map[string]*model.DatasetState),
		members:  make(map[string]bool),
	}
	s.Discover(reg.Members()...)
	return s
}

// SetClock replaces the time source. Intended for tests.
func (s *DatasetService) SetClock(now func() time.Time) {
	s.now = now
}

// OnRefresh registers a hook that runs on every Refresh.
func (s *DatasetService) OnRefresh(hook RefreshHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Discover marks family members as servable. Ids that are not family members are ignored.
func (s *DatasetService) Discover(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if def, ok := s.registry.Resolve(id); ok && def.Family != "" && !s.members[id] {
			s.members[id] = true
			s.log.Debug().Str("dataset", id).Str("family", def.Family).Msg("family member discovered")
		}
	}
}

// resolve returns the definition of a servable dataset.
func (s *DatasetService) resolve(id string) (registry.Dataset, error) {
	def, ok := s.registry.Resolve(id)
	if !ok {
		return registry.Dataset{}, fmt.Errorf("%w: %s", apperrors.ErrDatasetNotFound, id)
	}
	if def.Family != "" {
		s.mu.RLock()
		known := s.members[id]
		s.mu.RUnlock()
		if !known {
			return registry.Dataset{}, fmt.Errorf("%w: %s is not a known %s member", apperrors.ErrDatasetNotFound, id, def.Family)
		}
	}
	return def, nil
}

// Registry returns the dataset registry the service resolves ids against.
func (s *DatasetService) Registry() *registry.Registry {
	return s.registry
}

// Fetch makes a dataset available in memory.
//
// Without force, a dataset already ready in memory is left alone, and a fresh
// persistent cache entry is used instead of the network. A dataset that is
// currently loading is awaited rather than fetched again. With force, both
// caches are bypassed and the network is always hit.
//
// On network failure the previous in-memory data is kept, the dataset becomes
// eligible for retry, and the error is returned wrapped over apperrors.ErrFetchFailed.
func (s *DatasetService) Fetch(ctx context.Context, id string, force bool) error {
	def, err := s.resolve(id)
	if err != nil {
		return err
	}

	if !force {
		if status := s.status(id); status.Fetched() {
			if status == model.StatusLoading {
				return s.fetchRemote(ctx, def)
			}
			metrics.CacheHits.WithLabelValues(metrics.LayerMemory).Inc()
			return nil
		}

		if s.loadFromCache(ctx, def) {
			return nil
		}
	}

	return s.fetchRemote(ctx, def)
}

// Refresh clears a dataset from both caches and refetches it from the network.
func (s *DatasetService) Refresh(ctx context.Context, id string) error {
	if _, err := s.resolve(id); err != nil {
		return err
	}

	if err := s.cache.DeleteCachedData(ctx, id); err != nil {
		metrics.CacheErrors.WithLabelValues("delete").Inc()
		s.log.Warn().Err(err).Str("dataset", id).Msg("failed to clear cache entry")
	}

	s.mu.Lock()
	delete(s.states, id)
	hooks := append([]RefreshHook(nil), s.hooks...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx, id)
	}

	return s.Fetch(ctx, id, true)
}

// Get fetches a dataset if needed and returns its state.
// If the fetch fails but earlier data is still held, the state is returned along with the error.
func (s *DatasetService) Get(ctx context.Context, id string) (model.DatasetState, error) {
	err := s.Fetch(ctx, id, false)
	state, _ := s.State(id)
	if err != nil {
		return state, err
	}
	return state, nil
}

// Points returns a dataset's series, fetching it if needed.
// An empty series is reported as apperrors.ErrNoData.
func (s *DatasetService) Points(ctx context.Context, id string) ([]model.TimeSeriesPoint, error) {
	state, err := s.Get(ctx, id)
	if err != nil && len(state.Data) == 0 {
		return nil, err
	}
	if len(state.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNoData, id)
	}
	return state.Data, nil
}

// State returns a copy of the in-memory state of a dataset.
func (s *DatasetService) State(id string) (model.DatasetState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[id]
	if !ok {
		return model.DatasetState{ID: id, Status: model.StatusIdle}, false
	}
	return *st, true
}

// LastUpdated returns the date of the final point held for a dataset, or "".
func (s *DatasetService) LastUpdated(id string) string {
	st, _ := s.State(id)
	return st.LastUpdated
}

// Summaries lists every registry dataset plus any family members held in memory.
func (s *DatasetService) Summaries() []model.DatasetSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []model.DatasetSummary
	add := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		sum := model.DatasetSummary{ID: id, Status: model.StatusIdle}
		if st, ok := s.states[id]; ok {
			sum.Status = st.Status
			sum.Points = len(st.Data)
			sum.LastUpdated = st.LastUpdated
			sum.Error = st.Error
		}
		out = append(out, sum)
	}

	for _, id := range s.registry.IDs() {
		add(id)
	}
	held := make([]string, 0, len(s.states))
	for id := range s.states {
		held = append(held, id)
	}
	sort.Strings(held)
	for _, id := range held {
		add(id)
	}
	return out
}

// Warm fetches every static dataset without forcing, at most limit at a time.
// Failures are logged and do not stop other datasets.
func (s *DatasetService) Warm(ctx context.Context, limit int) {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, id := range s.registry.IDs() {
		g.Go(func() error {
			if err := s.Fetch(gctx, id, false); err != nil {
				s.log.Warn().Err(err).Str("dataset", id).Msg("warm-up fetch failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *DatasetService) status(id string) model.DatasetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[id]; ok {
		return st.Status
	}
	return model.StatusIdle
}

// loadFromCache populates memory from a fresh persistent entry and reports whether it did.
// Cache failures are logged and treated as a miss.
func (s *DatasetService) loadFromCache(ctx context.Context, def registry.Dataset) bool {
	id := def.ID
	entry, err := s.cache.GetCachedData(ctx, id)
	if err != nil {
		if !errors.Is(err, apperrors.ErrCacheMiss) {
			metrics.CacheErrors.WithLabelValues("read").Inc()
			s.log.Warn().Err(err).Str("dataset", id).Msg("cache read failed, falling back to network")
		}
		return false
	}
	if !entry.IsFresh(s.now(), s.ttl) {
		return false
	}

	s.setReady(def, entry.Data, entry.WrittenAt())
	metrics.CacheHits.WithLabelValues(metrics.LayerPersistent).Inc()
	s.log.Debug().Str("dataset", id).Int("points", len(entry.Data)).Msg("loaded from cache")
	return true
}

// fetchRemote downloads a dataset, joining any request already in flight for it.
// The shared request is detached from the caller's context so one caller giving
// up does not fail the others; the caller still returns early on cancellation.
func (s *DatasetService) fetchRemote(ctx context.Context, def registry.Dataset) error {
	id := def.ID
	ch := s.inflight.DoChan(id, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		s.setLoading(id)

		points, err := s.download(fetchCtx, def)
		if err != nil {
			s.setFailed(id, err)
			metrics.DatasetFetches.WithLabelValues(metricLabel(def), "error").Inc()
			s.log.Error().Err(err).Str("dataset", id).Msg("failed to fetch dataset")
			return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrFetchFailed, id, err)
		}

		now := s.now()
		s.setReady(def, points, now)
		metrics.DatasetFetches.WithLabelValues(metricLabel(def), "ok").Inc()
		s.log.Info().Str("dataset", id).Int("points", len(points)).Str("last_updated", series.LastTime(points)).Msg("dataset fetched")

		if err := s.cache.CacheData(fetchCtx, id, points, now); err != nil {
			metrics.CacheErrors.WithLabelValues("write").Inc()
			s.log.Warn().Err(err).Str("dataset", id).Msg("failed to write cache entry")
		}
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *DatasetService) download(ctx context.Context, def registry.Dataset) ([]model.TimeSeriesPoint, error) {
	if def.Format == registry.FormatBinary {
		body, err := s.client.FetchBinary(ctx, def.Path)
		if err != nil {
			return nil, err
		}
		records, err := feargreed.Decode(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrMalformedResponse, err)
		}
		return series.SortDedupe(feargreed.ToPoints(records)), nil
	}

	records, err := s.client.FetchRecords(ctx, def.Path)
	if err != nil {
		return nil, err
	}
	return series.Normalize(records, def.DateField, def.ValueField), nil
}

func (s *DatasetService) setLoading(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		st = &model.DatasetState{ID: id}
		s.states[id] = st
	}
	st.Status = model.StatusLoading
	st.Error = ""
}

func (s *DatasetService) setReady(def registry.Dataset, points []model.TimeSeriesPoint, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[def.ID] = &model.DatasetState{
		ID:          def.ID,
		Status:      model.StatusReady,
		Data:        points,
		LastUpdated: series.LastTime(points),
		FetchedAt:   &fetchedAt,
	}

	if def.Family == "" {
		metrics.DatasetPoints.WithLabelValues(def.ID).Set(float64(len(points)))
		return
	}
	// Family gauges report the total across members held in memory.
	total := 0
	for id, st := range s.states {
		if strings.HasPrefix(id, def.Family) {
			total += len(st.Data)
		}
	}
	metrics.DatasetPoints.WithLabelValues(def.Family).Set(float64(total))
}

// metricLabel keeps metric cardinality bounded by labelling family members by prefix.
func metricLabel(def registry.Dataset) string {
	if def.Family != "" {
		return def.Family
	}
	return def.ID
}

// setFailed clears the fetched flag but keeps whatever data was held before.
func (s *DatasetService) setFailed(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		st = &model.DatasetState{ID: id}
		s.states[id] = st
	}
	st.Status = model.StatusFailed
	st.Error = err.Error()
}
