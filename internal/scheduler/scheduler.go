package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher is the operation the scheduler runs on every tick.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) error

func (f RefresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

// Scheduler periodically refreshes the weather snapshot.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
}

// New creates a new Scheduler. A non-positive interval disables it.
func New(interval time.Duration, refresher Refresher) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		slog.Info("scheduler: periodic refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		slog.Debug("scheduler: running refresh job")
		if err := s.refresher.Refresh(context.Background()); err != nil {
			slog.Error("scheduler: refresh failed", "error", err)
			return
		}
		slog.Debug("scheduler: refresh job completed")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	slog.Info("scheduler: periodic refresh enabled", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// IsRunning reports whether the underlying scheduler has been started.
func (s *Scheduler) IsRunning() bool {
	return s.scheduler.IsRunning()
}
