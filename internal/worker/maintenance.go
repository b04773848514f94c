package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/movie-store/internal/queue"
	"github.com/iliyamo/movie-store/internal/repository"
	"github.com/iliyamo/movie-store/internal/service"
)

const jobTimeout = 30 * time.Second

// MaintenanceHandler returns the consumer callback for the maintenance
// queue.  Both jobs are single guarded statements, so running the same job
// twice is harmless.
func MaintenanceHandler(checkout *service.Checkout, tokens *repository.TokenRepo, expireAfter time.Duration) queue.Handler {
	return func(body []byte) error {
		var job queue.MaintenanceJob
		if err := json.Unmarshal(body, &job); err != nil {
			return fmt.Errorf("decode maintenance job: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		switch job.Kind {
		case queue.JobExpireOrders:
			n, err := checkout.ExpireStale(ctx, expireAfter)
			if err != nil {
				return fmt.Errorf("expire sweep: %w", err)
			}
			if n > 0 {
				log.Printf("worker: expired %d stale pending orders", n)
			}
			return nil
		case queue.JobCleanupTokens:
			n, err := tokens.DeleteExpired(ctx)
			if err != nil {
				return fmt.Errorf("token cleanup: %w", err)
			}
			if n > 0 {
				log.Printf("worker: removed %d expired tokens", n)
			}
			return nil
		}
		return fmt.Errorf("unknown maintenance job kind %q", job.Kind)
	}
}
