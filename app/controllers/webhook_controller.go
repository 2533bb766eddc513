package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/billing"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/jobqueue"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/metrics/counter"
	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v82"
)

// BillingService is the slice of the billing engine the HTTP surface needs.
type BillingService interface {
	HandleEvent(ctx context.Context, event stripe.Event, payload []byte) (*billing.HandleResult, error)
	Reconcile(ctx context.Context, organizationID uint) (billing.ReconcileOutcome, error)
	MarkForReconcile(organizationID uint) error
}

// ArchiveEnqueuer schedules payload offload jobs for terminal events.
type ArchiveEnqueuer interface {
	EnqueuePayloadArchive(eventID string) (*jobqueue.Job, error)
}

// ReconcileEnqueuer schedules background reconciliation runs.
type ReconcileEnqueuer interface {
	EnqueueReconcile(organizationID uint) (*jobqueue.Job, error)
}

var (
	billingService  BillingService
	webhookVerifier billing.SignatureVerifier
	archiveQueue    ArchiveEnqueuer
	reconcileQueue  ReconcileEnqueuer
	billingCounters *counter.Registry
)

// InitializeBillingController wires the billing surface. Called once during
// router installation.
func InitializeBillingController(svc BillingService, verifier billing.SignatureVerifier, archives ArchiveEnqueuer, reconciles ReconcileEnqueuer, counters *counter.Registry) {
	billingService = svc
	webhookVerifier = verifier
	archiveQueue = archives
	reconcileQueue = reconciles
	billingCounters = counters
}

// HandleStripeWebhook is the single ingress for provider events. The
// signature check is the endpoint's only authentication; everything past it
// goes through the idempotency ledger, so replying 200 is safe for every
// outcome except a persistence failure, where a 5xx asks the provider to
// redeliver.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))

	if webhookVerifier == nil || billingService == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "billing_not_configured"})
	}

	event, err := webhookVerifier.Verify(rawBody, signature)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": string(billing.CodeSignatureInvalid)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := billingService.HandleEvent(ctx, event, rawBody)
	if err != nil {
		return c.Status(statusForBillingError(err)).JSON(fiber.Map{"error": string(billing.CodeOf(err))})
	}

	// Terminal payloads go to cold storage; failed ones stay hot for retries.
	if archiveQueue != nil && !result.Failed {
		_, _ = archiveQueue.EnqueuePayloadArchive(result.EventID)
	}

	resp := fiber.Map{"received": true}
	if result.Duplicate {
		resp["duplicate"] = true
	}
	if result.Ignored {
		resp["ignored"] = true
	}
	if result.Failed {
		resp["failed"] = true
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// statusForBillingError is the single place error codes become HTTP statuses.
func statusForBillingError(err error) int {
	switch billing.CodeOf(err) {
	case billing.CodeSignatureInvalid:
		return fiber.StatusBadRequest
	case billing.CodeDuplicateEvent, billing.CodeOutOfOrderEvent:
		return fiber.StatusOK
	default:
		return fiber.StatusInternalServerError
	}
}
