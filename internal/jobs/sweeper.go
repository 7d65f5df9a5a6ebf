// Package jobs runs background maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"littletimes/internal/middleware"
	"littletimes/internal/observability"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the pending order sweep hourly.
const DefaultSweepSchedule = "@every 1h"

const sweepTimeout = 5 * time.Minute

// OrderSweeper cancels unpaid orders whose payment window closed.
type OrderSweeper interface {
	SweepPendingOrders(ctx context.Context) (int64, error)
}

// Scheduler owns the cron runner. Schedules accept an optional seconds
// field and descriptors such as "@every 1h".
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
}

// AddSweep registers the pending order sweep.
func (s *Scheduler) AddSweep(schedule string, sweeper OrderSweeper) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	job := func() { _, _ = RunSweep(context.Background(), sweeper) }
	if _, err := s.cron.AddFunc(schedule, job); err != nil {
		return fmt.Errorf("schedule pending order sweep %q: %w", schedule, err)
	}
	middleware.Logger.Info("[CRON] pending order sweep scheduled", slog.String("schedule", schedule))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits up to timeout for a running job.
func (s *Scheduler) Stop(timeout time.Duration) {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		middleware.Logger.Info("[CRON] jobs stopped")
	case <-time.After(timeout):
		middleware.Logger.Warn("[CRON] jobs forced to stop after timeout")
	}
}

// RunSweep performs one sweep and logs the outcome.
func RunSweep(ctx context.Context, sweeper OrderSweeper) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	run, ctx := observability.StartRun(ctx, "pending_order_sweep")
	n, err := sweeper.SweepPendingOrders(ctx)
	if err != nil {
		run.Fail(err)
		return 0, err
	}
	run.Done(slog.Int64("cancelled", n))
	return n, nil
}
