package billing

import (
	"context"
	"errors"

	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
	"github.com/OrbitDeskHQ/OrbitDesk/app/repository"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/metrics/counter"
	"gorm.io/gorm"
)

// Outcome of Begin for a single event delivery.
type Outcome string

const (
	OutcomeProcess   Outcome = "process"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Counter names recorded by the engine.
const (
	CounterWebhookReceived  = "webhook_received"
	CounterWebhookDuplicate = "webhook_duplicate"
	CounterWebhookIgnored   = "webhook_ignored_out_of_order"
	CounterWebhookProcessed = "webhook_processed"
	CounterWebhookFailed    = "webhook_failed"
	CounterReconcileRun     = "reconcile_run"
	CounterReconcileNoop    = "reconcile_noop"
)

// Orchestrator drives each event to a terminal outcome by composing the
// ledger (idempotency) and the ordering cursor (staleness). All coordination
// state lives in those two stores; nothing here survives a restart or is
// shared between process instances.
type Orchestrator struct {
	events   repository.WebhookEventRepository
	cursors  repository.OrderingCursorRepository
	counters *counter.Registry
}

// NewOrchestrator creates an orchestrator over the given stores.
func NewOrchestrator(events repository.WebhookEventRepository, cursors repository.OrderingCursorRepository, counters *counter.Registry) *Orchestrator {
	return &Orchestrator{events: events, cursors: cursors, counters: counters}
}

// Begin records the event in the ledger and decides whether the caller may
// process it. The ledger insert is the only concurrency primitive: exactly
// one delivery of a given event id sees a created row, every other
// concurrent or later delivery gets the duplicate short-circuit.
func (o *Orchestrator) Begin(ctx context.Context, env Envelope, payload []byte) (Outcome, *models.WebhookEvent, error) {
	_ = ctx

	event := &models.WebhookEvent{
		Provider:               models.BillingProviderStripe,
		EventID:                env.EventID,
		EventType:              env.Type,
		EventCreatedAt:         env.CreatedAt,
		OrganizationID:         env.OrganizationID,
		ProviderSubscriptionID: env.ProviderSubscriptionID,
		Status:                 models.WebhookStatusReceived,
		DeliveryAttempts:       1,
		PayloadJSON:            string(payload),
	}

	created, stored, err := o.events.CreateIfNotExists(event)
	if err != nil {
		return "", nil, NewError(CodePersistenceError, err)
	}
	o.counters.Inc(CounterWebhookReceived)

	if !created {
		o.counters.Inc(CounterWebhookDuplicate)
		return OutcomeDuplicate, stored, nil
	}

	if env.HasSubscription() {
		cursor, err := o.cursors.GetBySubscriptionID(models.BillingProviderStripe, env.ProviderSubscriptionID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, NewError(CodePersistenceError, err)
		}
		if ShouldIgnore(cursor, env) {
			if err := o.events.MarkStatus(models.BillingProviderStripe, env.EventID, models.WebhookStatusIgnoredOutOfOrder, "", false); err != nil {
				return "", nil, NewError(CodePersistenceError, err)
			}
			o.counters.Inc(CounterWebhookIgnored)
			return OutcomeIgnored, stored, nil
		}
	}

	return OutcomeProcess, stored, nil
}

// Complete advances the ordering cursor and marks the event processed. The
// cursor write re-evaluates staleness under a row lock, so a concurrent
// event for the same subscription that already advanced past this one leaves
// the cursor alone - it never regresses.
func (o *Orchestrator) Complete(ctx context.Context, env Envelope) error {
	_ = ctx

	if env.HasSubscription() {
		next := &models.OrderingCursor{
			Provider:               models.BillingProviderStripe,
			ProviderSubscriptionID: env.ProviderSubscriptionID,
			LastEventID:            env.EventID,
			LastEventType:          env.Type,
			LastEventCreatedAt:     env.CreatedAt,
		}
		if _, err := o.cursors.Advance(next, func(current *models.OrderingCursor) bool {
			return !ShouldIgnore(current, env)
		}); err != nil {
			return NewError(CodePersistenceError, err)
		}
	}

	if err := o.events.MarkStatus(models.BillingProviderStripe, env.EventID, models.WebhookStatusProcessed, "", false); err != nil {
		return NewError(CodePersistenceError, err)
	}
	o.counters.Inc(CounterWebhookProcessed)
	return nil
}

// Fail marks the event failed and increments its attempt counter. The cursor
// is untouched: a failed application was never applied.
func (o *Orchestrator) Fail(ctx context.Context, eventID string, cause error) error {
	_ = ctx

	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := o.events.MarkStatus(models.BillingProviderStripe, eventID, models.WebhookStatusFailed, msg, true); err != nil {
		return NewError(CodePersistenceError, err)
	}
	o.counters.Inc(CounterWebhookFailed)
	return nil
}
