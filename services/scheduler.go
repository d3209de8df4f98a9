// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"mission-rewards-system/cache"

	"github.com/go-co-op/gocron/v2"
)

// BackgroundJobs are the periodic tasks run next to the HTTP server.
type BackgroundJobs struct {
	Cache         *cache.Registry
	Raffles       *RaffleService
	Finalizer     Finalizer
	RetroInterval time.Duration
	DrawInterval  time.Duration
	SweepInterval time.Duration
}

// Start registers the jobs and starts the scheduler. Call Shutdown on the result.
func (j BackgroundJobs) Start(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if j.DrawInterval <= 0 {
		j.DrawInterval = time.Minute
	}
	if j.SweepInterval <= 0 {
		j.SweepInterval = time.Minute
	}

	// Every minute: draw raffles whose time has come
	if j.Raffles != nil {
		if _, err := sched.NewJob(
			gocron.DurationJob(j.DrawInterval),
			gocron.NewTask(func() {
				n, err := j.Raffles.DrawDue(ctx)
				if err != nil {
					log.Printf("[Scheduler] Raffle draw error: %v", err)
					return
				}
				if n > 0 {
					log.Printf("✅ [Scheduler] Closed %d raffle(s)", n)
				}
			}),
		); err != nil {
			return nil, err
		}
	}

	// Drop expired cache entries
	if j.Cache != nil {
		if _, err := sched.NewJob(
			gocron.DurationJob(j.SweepInterval),
			gocron.NewTask(func() {
				if n := j.Cache.Sweep(); n > 0 {
					log.Printf("[Scheduler] Swept %d expired cache entries", n)
				}
			}),
		); err != nil {
			return nil, err
		}
	}

	// Catch up on badges attached to missions after their submissions were finalized
	if j.Finalizer != nil && j.RetroInterval > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(j.RetroInterval),
			gocron.NewTask(func() {
				if _, err := j.Finalizer.RetroactivelyAwardBadges(ctx); err != nil {
					log.Printf("[Scheduler] Retroactive badges failed: %v", err)
				}
			}),
		); err != nil {
			return nil, err
		}
	}

	sched.Start()
	return sched, nil
}
