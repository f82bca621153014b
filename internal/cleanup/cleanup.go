// Package cleanup sweeps postings past the retention window on a cron
// schedule.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jobscout/jobscout/internal/jobs"
)

// Sweeper wraps robfig/cron and manages the retention loop.
type Sweeper struct {
	cron      *cron.Cron
	store     jobs.Store
	clock     jobs.Clock
	retention time.Duration
	schedule  string
	logger    *zap.Logger
}

// New constructs a Sweeper.
func New(store jobs.Store, clock jobs.Clock, retention time.Duration, schedule string, logger *zap.Logger) *Sweeper {
	if schedule == "" {
		schedule = "@daily"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		cron:      cron.New(),
		store:     store,
		clock:     clock,
		retention: retention,
		schedule:  schedule,
		logger:    logger,
	}
}

// Start registers the sweep and begins the cron loop.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.Sweep(context.Background())
	}); err != nil {
		return fmt.Errorf("register cleanup schedule: %w", err)
	}
	s.cron.Start()
	s.logger.Info("retention sweeper started",
		zap.String("schedule", s.schedule),
		zap.Duration("retention", s.retention),
	)
	return nil
}

// Stop halts the cron loop, waiting for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep removes postings older than the retention window. Failures are
// logged; the next scheduled run retries naturally.
func (s *Sweeper) Sweep(ctx context.Context) {
	removed, err := s.store.DeleteOlderThan(ctx, s.clock.Now().Add(-s.retention))
	if err != nil {
		s.logger.Error("retention sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("retention sweep complete", zap.Int64("removed", removed))
	}
}
