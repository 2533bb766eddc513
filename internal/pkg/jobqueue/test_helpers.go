//go:build test
// +build test

package jobqueue

import (
	"time"
)

// TestJobFactory creates test jobs for different types
func TestJobFactory() map[JobType]*Job {
	now := time.Now()

	return map[JobType]*Job{
		JobTypeWebhookRetry: {
			ID:     "test-retry-job",
			Type:   JobTypeWebhookRetry,
			Status: JobStatusPending,
			Payload: WebhookRetryJobPayload{
				Provider: "stripe",
				EventID:  "evt_test_123",
			}.ToMap(),
			CreatedAt:  now,
			UpdatedAt:  now,
			RetryCount: 0,
			MaxRetries: 3,
		},
		JobTypeReconcile: {
			ID:     "test-reconcile-job",
			Type:   JobTypeReconcile,
			Status: JobStatusPending,
			Payload: ReconcileJobPayload{
				OrganizationID: 42,
			}.ToMap(),
			CreatedAt:  now,
			UpdatedAt:  now,
			RetryCount: 0,
			MaxRetries: 3,
		},
	}
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
