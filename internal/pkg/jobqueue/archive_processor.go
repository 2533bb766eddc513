package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
)

// processPayloadArchiveJob offloads a terminal event's raw payload to S3 and
// clears it from the ledger row. Already-archived rows are a no-op so the
// job is safe to replay. Rows still in flight or failed are skipped outright:
// a retry needs the stored payload, and the delivery that completes them
// enqueues a fresh archive job.
func (q *Queue) processPayloadArchiveJob(ctx context.Context, job *Job) error {
	payload, err := PayloadArchiveJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid payload archive payload: %w", err)
	}
	if payload.EventID == "" {
		return errors.New("payload archive payload missing event_id")
	}

	archiver, cfg := getArchiver()
	if archiver == nil || cfg == nil {
		// Archiving disabled: treat as done rather than retrying forever.
		log.Debugf("[JobQueue] Archiving disabled, skipping event %s", payload.EventID)
		return nil
	}

	ledger := getWebhookEventLedger()
	if ledger == nil {
		return errors.New("no webhook event ledger registered")
	}

	event, err := ledger.GetByEventID(payload.Provider, payload.EventID)
	if err != nil {
		return fmt.Errorf("load event %s: %w", payload.EventID, err)
	}
	if !event.IsTerminal() {
		log.Debugf("[JobQueue] Event %s is %s, leaving payload on the ledger", event.EventID, event.Status)
		return nil
	}
	if event.ArchivedAt != nil || event.PayloadJSON == "" {
		return nil
	}

	objectKey := cfg.GetObjectKey(event.Provider, event.EventID, event.CreatedAt)
	if err := archiver.PutPayload(ctx, objectKey, []byte(event.PayloadJSON)); err != nil {
		return err
	}

	if err := ledger.MarkArchived(event.Provider, event.EventID); err != nil {
		return err
	}
	log.Infof("[JobQueue] Archived payload for event %s to %s", event.EventID, objectKey)
	return nil
}
