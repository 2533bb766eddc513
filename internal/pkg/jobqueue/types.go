package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeWebhookRetry   JobType = "webhook_retry"
	JobTypeReconcile      JobType = "reconcile"
	JobTypePayloadArchive JobType = "payload_archive"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// WebhookRetryJobPayload contains the payload for webhook retry jobs
type WebhookRetryJobPayload struct {
	Provider string `json:"provider"`
	EventID  string `json:"event_id"`
}

// ToMap converts the payload to a map for storage
func (p WebhookRetryJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"provider": p.Provider,
		"event_id": p.EventID,
	}
}

// FromMap creates a payload from a map
func WebhookRetryJobPayloadFromMap(data map[string]interface{}) (*WebhookRetryJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload WebhookRetryJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// ReconcileJobPayload contains the payload for reconciliation jobs
type ReconcileJobPayload struct {
	OrganizationID uint `json:"organization_id"`
}

// ToMap converts the payload to a map for storage
func (p ReconcileJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"organization_id": p.OrganizationID,
	}
}

// FromMap creates a payload from a map
func ReconcileJobPayloadFromMap(data map[string]interface{}) (*ReconcileJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload ReconcileJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// PayloadArchiveJobPayload contains the payload for payload archive jobs
type PayloadArchiveJobPayload struct {
	Provider string `json:"provider"`
	EventID  string `json:"event_id"`
}

// ToMap converts the payload to a map for storage
func (p PayloadArchiveJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"provider": p.Provider,
		"event_id": p.EventID,
	}
}

// FromMap creates a payload from a map
func PayloadArchiveJobPayloadFromMap(data map[string]interface{}) (*PayloadArchiveJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload PayloadArchiveJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
