package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/logging"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/metrics"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/registry"
)

// MetadataSource returns the server-side last-updated marker of every dataset.
type MetadataSource interface {
	FetchMetadata(ctx context.Context) (model.DatasetMetadata, error)
}

// Refresher is the part of DatasetService the reconciler drives.
type Refresher interface {
	Refresh(ctx context.Context, id string) error
	LastUpdated(id string) string
	Discover(ids ...string)
}

// Reconciler compares local data against upstream markers and refreshes what is stale.
type Reconciler struct {
	source      MetadataSource
	registry    *registry.Registry
	datasets    Refresher
	concurrency int
	now         func() time.Time
	log         zerolog.Logger

	running sync.Mutex
	mu      sync.RWMutex
	last    *model.ReconcileResult
}

// NewReconciler creates a Reconciler that refreshes at most concurrency datasets at once.
func NewReconciler(source MetadataSource, reg *registry.Registry, datasets Refresher, concurrency int) *Reconciler {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Reconciler{
		source:      source,
		registry:    reg,
		datasets:    datasets,
		concurrency: concurrency,
		now:         time.Now,
		log:         logging.With("reconciler"),
	}
}

// Reconcile runs one reconciliation pass.
//
// The candidate set is every static dataset plus every metadata key that matches a
// family prefix. A candidate is refreshed when its marker differs from the date of
// the last point held locally; a candidate with no local data always differs.
// Family members found this way become servable through the dataset service.
// Candidates missing from the metadata are skipped. One dataset failing to
// refresh does not stop the others; failures are collected in the result.
//
// Only one pass runs at a time. A concurrent call returns apperrors.ErrReconcileInProgress.
func (r *Reconciler) Reconcile(ctx context.Context) (model.ReconcileResult, error) {
	if !r.running.TryLock() {
		return model.ReconcileResult{}, apperrors.ErrReconcileInProgress
	}
	defer r.running.Unlock()

	started := r.now()
	result := model.ReconcileResult{
		Refreshed: []string{},
		Failed:    map[string]string{},
		StartedAt: started,
	}

	meta, err := r.source.FetchMetadata(ctx)
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		r.log.Error().Err(err).Msg("failed to fetch metadata")
		if errors.Is(err, apperrors.ErrMetadataFailed) {
			return result, err
		}
		return result, fmt.Errorf("%w: %w", apperrors.ErrMetadataFailed, err)
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}

	candidates := r.registry.Expand(keys)
	r.datasets.Discover(candidates...)

	var stale []string
	for _, id := range candidates {
		marker, ok := meta[id]
		if !ok {
			continue
		}
		result.Checked++
		local := r.datasets.LastUpdated(id)
		if local == "" || local != marker {
			r.log.Debug().Str("dataset", id).Str("local", local).Str("remote", marker).Msg("dataset is stale")
			stale = append(stale, id)
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, id := range stale {
		g.Go(func() error {
			err := r.datasets.Refresh(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[id] = err.Error()
				r.log.Warn().Err(err).Str("dataset", id).Msg("refresh failed")
				return nil
			}
			result.Refreshed = append(result.Refreshed, id)
			metrics.ReconcileRefreshes.Inc()
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(result.Refreshed)
	result.Duration = r.now().Sub(started).String()

	outcome := "ok"
	if len(result.Failed) > 0 {
		outcome = "partial"
	}
	metrics.ReconcileRuns.WithLabelValues(outcome).Inc()
	r.log.Info().
		Int("checked", result.Checked).
		Int("refreshed", len(result.Refreshed)).
		Int("failed", len(result.Failed)).
		Str("duration", result.Duration).
		Msg("reconciliation complete")

	r.mu.Lock()
	last := result
	r.last = &last
	r.mu.Unlock()

	return result, nil
}

// LastResult returns the most recent completed pass, if any.
func (r *Reconciler) LastResult() (model.ReconcileResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return model.ReconcileResult{}, false
	}
	return *r.last, true
}
