package worker

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/movie-store/internal/queue"
)

// Scheduler publishes maintenance jobs on fixed intervals, standing in for
// an external cron.  Publishing instead of running the jobs inline keeps
// all DB-touching work on the consumer side with its retry policy.
type Scheduler struct {
	Pub          *queue.Publisher
	SweepEvery   time.Duration
	CleanupEvery time.Duration
}

// Run blocks until ctx is canceled, emitting one job per tick.  Both jobs
// also fire once at startup so a long-stopped worker catches up promptly.
func (s *Scheduler) Run(ctx context.Context) {
	sweep := time.NewTicker(s.SweepEvery)
	cleanup := time.NewTicker(s.CleanupEvery)
	defer sweep.Stop()
	defer cleanup.Stop()

	s.emit(ctx, queue.JobExpireOrders)
	s.emit(ctx, queue.JobCleanupTokens)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			s.emit(ctx, queue.JobExpireOrders)
		case <-cleanup.C:
			s.emit(ctx, queue.JobCleanupTokens)
		}
	}
}

func (s *Scheduler) emit(ctx context.Context, kind string) {
	if err := s.Pub.PublishMaintenance(ctx, queue.MaintenanceJob{Kind: kind}); err != nil {
		// Missed ticks are made up by the next one; just log.
		log.Printf("worker: publish %s failed: %v", kind, err)
	}
}
