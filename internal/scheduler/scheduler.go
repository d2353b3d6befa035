package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Refresher is anything the scheduler can trigger on each tick.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs a refresher on a fixed interval. Ticks that fire while a
// refresh is still running are dropped, never queued.
type Scheduler struct {
	refresher Refresher
	interval  time.Duration
	logger    *slog.Logger
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

func New(r Refresher, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		refresher: r,
		interval:  interval,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start begins the periodic refreshes. Blocks until Stop is called or ctx
// is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("scheduler started", "interval", s.interval)

	for {
		select {
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			s.logger.Debug("scheduler: triggering refresh")
			if err := s.refresher.Refresh(ctx); err != nil {
				s.logger.Error("scheduler: refresh failed", "error", err)
			}
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		}
	}
}

// Stop signals the scheduler to stop and cancels a refresh in flight. It is
// safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Done is closed once Start has returned.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}
