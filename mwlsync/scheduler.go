package mwlsync

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the period between full refreshes.
const DefaultInterval = 5 * time.Minute

// FullRefresher is implemented by Synchronizer.
type FullRefresher interface {
	FullRefresh(ctx context.Context) (int, error)
}

// Scheduler runs a full refresh at start and then on every tick. A failed
// pass is simply retried on the next tick.
type Scheduler struct {
	sync     FullRefresher
	interval time.Duration
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler; a non-positive interval uses DefaultInterval.
func NewScheduler(sync FullRefresher, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{sync: sync, interval: interval, logger: logger}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("Worklist sync scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Worklist sync scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	// errors are logged by the synchronizer; the next tick is the retry
	_, _ = s.sync.FullRefresh(ctx)
}
