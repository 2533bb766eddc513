package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
)

// processWebhookRetryJob re-runs the billing pipeline for a previously
// failed event. A nil return also covers the case where the event went
// terminal in the meantime; the billing service handles that check.
func (q *Queue) processWebhookRetryJob(ctx context.Context, job *Job) error {
	payload, err := WebhookRetryJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid webhook retry payload: %w", err)
	}
	if payload.EventID == "" {
		return errors.New("webhook retry payload missing event_id")
	}

	svc := getBillingService()
	if svc == nil {
		return errors.New("no billing service registered")
	}

	log.Infof("[JobQueue] Retrying webhook event %s", payload.EventID)
	if err := svc.RetryEvent(ctx, payload.EventID); err != nil {
		return err
	}

	// The row is terminal now (or the retry was a no-op); its payload can go
	// cold. The archive job re-checks the status before touching anything.
	if _, err := q.EnqueuePayloadArchive(payload.EventID); err != nil {
		log.Warnf("[JobQueue] Failed to enqueue archive for retried event %s: %v", payload.EventID, err)
	}
	return nil
}
