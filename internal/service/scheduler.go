package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/logging"
)

// Scheduler runs the reconciler on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	reconciler *Reconciler
	timeout    time.Duration
	ctx        context.Context
	log        zerolog.Logger

	mu      sync.Mutex
	stopped bool
}

// NewScheduler creates a Scheduler. Each run is bounded by timeout when it is positive
// and is cancelled when ctx is done.
func NewScheduler(ctx context.Context, reconciler *Reconciler, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		reconciler: reconciler,
		timeout:    timeout,
		ctx:        ctx,
		log:        logging.With("scheduler"),
	}
}

// Register adds the reconciliation task under the given cron spec, e.g. "@every 1h" or "0 * * * *".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register reconcile task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler. It does nothing once Stop has been called
// or the scheduler context is done.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.ctx.Err() != nil {
		s.log.Debug().Msg("scheduler not started, shutting down")
		return
	}
	s.cron.Start()
	s.log.Info().Int("entries", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop stops the scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes one reconciliation pass immediately.
func (s *Scheduler) RunNow() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.reconciler.Reconcile(ctx); err != nil {
		if errors.Is(err, apperrors.ErrReconcileInProgress) {
			s.log.Debug().Msg("skipping run, reconciliation already in progress")
			return
		}
		s.log.Error().Err(err).Msg("scheduled reconciliation failed")
	}
}
