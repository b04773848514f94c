// Package worker contains the job handlers and the periodic scheduler run
// by cmd/worker.  Handlers receive raw queue payloads and must be
// idempotent: the broker delivers at least once.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/movie-store/internal/mailer"
	"github.com/iliyamo/movie-store/internal/queue"
)

// sendTimeout bounds a single SES call; the queue retry policy handles
// anything slower.
const sendTimeout = 15 * time.Second

// EmailHandler returns the consumer callback for the email queue.  A
// returned error triggers the queue's bounded retry.
func EmailHandler(m *mailer.Mailer) queue.Handler {
	return func(body []byte) error {
		var job queue.EmailJob
		if err := json.Unmarshal(body, &job); err != nil {
			// Malformed payloads never become valid; surface the error so
			// the retry policy drops them after logging.
			return fmt.Errorf("decode email job: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		switch job.Kind {
		case queue.EmailActivation:
			return m.SendActivation(ctx, job.To, job.Token)
		case queue.EmailPasswordReset:
			return m.SendPasswordReset(ctx, job.To, job.Token)
		case queue.EmailOrderReceipt:
			return m.SendOrderReceipt(ctx, job.To, job.OrderID, job.TotalCents)
		}
		return fmt.Errorf("unknown email job kind %q", job.Kind)
	}
}
