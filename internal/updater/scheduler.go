package updater

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler ticks an Updater at a fixed interval, independent of incoming
// requests. Its ticks run as admin.
type Scheduler struct {
	updater  *Updater
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that ticks u every interval.
func NewScheduler(u *Updater, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		updater:  u,
		interval: interval,
		logger:   logger,
	}
}

// Start begins periodic ticking. It ticks once immediately, then on each
// interval.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(WithAdmin(context.Background()))
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current tick (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.tickOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickOnce(ctx)
		}
	}
}

func (s *Scheduler) tickOnce(ctx context.Context) {
	res := s.updater.Tick(ctx)
	if res.Outcome.Ran() {
		s.logger.Info("scheduled tick completed", "tick_id", res.TickID, "outcome", res.Outcome, "updated", len(res.Updated))
	}
}
