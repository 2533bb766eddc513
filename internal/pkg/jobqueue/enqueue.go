package jobqueue

import "github.com/OrbitDeskHQ/OrbitDesk/app/models"

// EnqueueWebhookRetry schedules a retry for a failed webhook event. The
// signature matches the billing engine's retry queue contract.
func (q *Queue) EnqueueWebhookRetry(eventID string) error {
	payload := WebhookRetryJobPayload{
		Provider: models.BillingProviderStripe,
		EventID:  eventID,
	}
	_, err := q.EnqueueJob(JobTypeWebhookRetry, payload.ToMap())
	return err
}

// EnqueueReconcile schedules a reconciliation run for one organization.
func (q *Queue) EnqueueReconcile(organizationID uint) (*Job, error) {
	payload := ReconcileJobPayload{OrganizationID: organizationID}
	return q.EnqueueJob(JobTypeReconcile, payload.ToMap())
}

// EnqueuePayloadArchive schedules the offload of a terminal event's payload.
func (q *Queue) EnqueuePayloadArchive(eventID string) (*Job, error) {
	payload := PayloadArchiveJobPayload{
		Provider: models.BillingProviderStripe,
		EventID:  eventID,
	}
	return q.EnqueueJob(JobTypePayloadArchive, payload.ToMap())
}
