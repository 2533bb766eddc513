//go:build integration
// +build integration

package jobqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisQueue(t *testing.T) (*Queue, context.Context) {
	t.Helper()

	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	queue := NewQueue(1)
	queue.client = client
	resetJobQueueRedisWithClient(t, client)
	t.Cleanup(func() {
		resetJobQueueRedisWithClient(t, client)
	})
	return queue, context.Background()
}

func TestQueue_EnqueueJob(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	payload := WebhookRetryJobPayload{
		Provider: "stripe",
		EventID:  "evt_integration_1",
	}
	job, err := queue.EnqueueJob(JobTypeWebhookRetry, payload.ToMap())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, JobTypeWebhookRetry, job.Type)

	queueSize, err := queue.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, queueSize)

	stats, err := queue.GetJobStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats[JobStatusPending])
}

func TestQueue_EnqueueJob_PipelineError(t *testing.T) {
	queue := NewQueue(1)
	queue.client = redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:0",
		DialTimeout:  100 * time.Millisecond,
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 100 * time.Millisecond,
		PoolTimeout:  100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = queue.client.Close() })

	job, err := queue.EnqueueJob(JobTypeWebhookRetry, map[string]interface{}{"event_id": "evt_x"})
	require.Error(t, err)
	assert.Nil(t, job)
}

func TestQueue_EnqueueHelpers(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	require.NoError(t, queue.EnqueueWebhookRetry("evt_retry_1"))

	reconcileJob, err := queue.EnqueueReconcile(7)
	require.NoError(t, err)
	assert.Equal(t, JobTypeReconcile, reconcileJob.Type)

	archiveJob, err := queue.EnqueuePayloadArchive("evt_archive_1")
	require.NoError(t, err)
	assert.Equal(t, JobTypePayloadArchive, archiveJob.Type)

	size, err := queue.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, size)
}

func TestQueue_GetJob(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	created, err := queue.EnqueueJob(JobTypeReconcile, ReconcileJobPayload{OrganizationID: 3}.ToMap())
	require.NoError(t, err)

	stored, err := queue.GetJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.ID)
	assert.Equal(t, JobTypeReconcile, stored.Type)
	assert.Equal(t, JobStatusPending, stored.Status)
}

func TestQueue_GetJob_NotFound(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	_, err := queue.GetJob(ctx, "missing-job-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestQueue_GetProcessingSize(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	_, err := queue.EnqueueJob(JobTypeWebhookRetry, map[string]interface{}{"event_id": "evt_1"})
	require.NoError(t, err)
	_, err = queue.dequeueJob(ctx)
	require.NoError(t, err)

	size, err := queue.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)
}

func TestQueue_updateJob(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	job := &Job{
		ID:         "manual-job-id",
		Type:       JobTypeWebhookRetry,
		Status:     JobStatusFailed,
		Payload:    map[string]interface{}{"event_id": "evt_1"},
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		RetryCount: 2,
		MaxRetries: 3,
	}
	queue.updateJob(ctx, job)

	stored, err := queue.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Equal(t, 2, stored.RetryCount)
}

func TestQueue_removeCompletedJob(t *testing.T) {
	queue, ctx := setupRedisQueue(t)

	created, err := queue.EnqueueJob(JobTypeWebhookRetry, map[string]interface{}{"event_id": "evt_1"})
	require.NoError(t, err)

	queue.removeCompletedJob(ctx, created.ID)

	_, err = queue.GetJob(ctx, created.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestQueue_SharedCacheRoundTrip(t *testing.T) {
	host, port, password := resolveTestRedis(t)
	configureTestCache(host, port, password)

	queue := NewQueue(1)
	resetJobQueueRedis(t)
	t.Cleanup(func() {
		resetJobQueueRedis(t)
	})

	ctx := context.Background()
	created, err := queue.EnqueueJob(JobTypeWebhookRetry, map[string]interface{}{"event_id": "evt_shared"})
	require.NoError(t, err)

	stored, err := queue.GetJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.ID)
}

func TestManager_StartStop(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	resetJobQueueRedisWithClient(t, client)
	t.Cleanup(func() {
		resetJobQueueRedisWithClient(t, client)
	})

	globalManager = nil
	managerOnce = sync.Once{}
	manager := GetManager()
	manager.queue.client = client

	assert.False(t, manager.IsRunning())
	manager.Start()
	assert.True(t, manager.IsRunning())
	manager.Stop()
	assert.False(t, manager.IsRunning())
}
