package jobqueue

import (
	"context"
	"sync"

	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/archive"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/billing"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/metrics/counter"
)

// BillingService is the slice of the billing engine the queue drives. The
// concrete service is registered at startup; jobs dequeued before
// registration fail and go through the normal retry path.
type BillingService interface {
	RetryEvent(ctx context.Context, eventID string) error
	Reconcile(ctx context.Context, organizationID uint) (billing.ReconcileOutcome, error)
	ListNeedingReconcile(limit int) ([]uint, error)
}

// PayloadArchiver offloads raw webhook payloads to cold storage.
type PayloadArchiver interface {
	PutPayload(ctx context.Context, objectKey string, payload []byte) error
}

// WebhookEventLedger is the slice of the event ledger the archive job reads
// and stamps.
type WebhookEventLedger interface {
	GetByEventID(provider, eventID string) (*models.WebhookEvent, error)
	MarkArchived(provider, eventID string) error
}

var (
	depsMu         sync.RWMutex
	billingService BillingService
	archiver       PayloadArchiver
	archiveConfig  *archive.Config
	counters       *counter.Registry
	webhookLedger  WebhookEventLedger
)

// SetBillingService registers the billing service used by retry and
// reconcile jobs.
func SetBillingService(svc BillingService) {
	depsMu.Lock()
	defer depsMu.Unlock()
	billingService = svc
}

// SetArchiver registers the payload archiver and its config.
func SetArchiver(a PayloadArchiver, cfg *archive.Config) {
	depsMu.Lock()
	defer depsMu.Unlock()
	archiver = a
	archiveConfig = cfg
}

// SetWebhookEventLedger registers the ledger the archive job works against.
func SetWebhookEventLedger(ledger WebhookEventLedger) {
	depsMu.Lock()
	defer depsMu.Unlock()
	webhookLedger = ledger
}

// SetCounters registers the metrics registry the manager reports on.
func SetCounters(reg *counter.Registry) {
	depsMu.Lock()
	defer depsMu.Unlock()
	counters = reg
}

func getBillingService() BillingService {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return billingService
}

func getArchiver() (PayloadArchiver, *archive.Config) {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return archiver, archiveConfig
}

func getWebhookEventLedger() WebhookEventLedger {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return webhookLedger
}

func getCounters() *counter.Registry {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return counters
}
