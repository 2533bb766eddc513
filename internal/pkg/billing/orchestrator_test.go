package billing

import (
	"context"
	"testing"
	"time"

	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/metrics/counter"
)

func testEnvelope(eventID, eventType string, at time.Time) Envelope {
	return Envelope{
		EventID:                eventID,
		Type:                   eventType,
		CreatedAt:              at,
		OrganizationID:         1,
		ProviderSubscriptionID: "sub_1",
	}
}

func TestOrchestratorDuplicateShortCircuit(t *testing.T) {
	events := newFakeEventRepo()
	cursors := newFakeCursorRepo()
	counters := counter.NewRegistry()
	o := NewOrchestrator(events, cursors, counters)

	env := testEnvelope("evt_1", "customer.subscription.created", time.Now().UTC())

	outcome, _, err := o.Begin(context.Background(), env, []byte(`{}`))
	if err != nil {
		t.Fatalf("first Begin: %v", err)
	}
	if outcome != OutcomeProcess {
		t.Fatalf("first Begin outcome = %v, want process", outcome)
	}

	// Redelivery of the same event id must short-circuit without touching
	// anything else.
	outcome, stored, err := o.Begin(context.Background(), env, []byte(`{}`))
	if err != nil {
		t.Fatalf("second Begin: %v", err)
	}
	if outcome != OutcomeDuplicate {
		t.Fatalf("second Begin outcome = %v, want duplicate", outcome)
	}
	if stored == nil || stored.EventID != "evt_1" {
		t.Fatalf("duplicate should return the stored row")
	}
	if got := counters.Get(CounterWebhookDuplicate); got != 1 {
		t.Errorf("duplicate counter = %d, want 1", got)
	}
}

func TestOrchestratorOutOfOrderIgnored(t *testing.T) {
	events := newFakeEventRepo()
	cursors := newFakeCursorRepo()
	counters := counter.NewRegistry()
	o := NewOrchestrator(events, cursors, counters)

	now := time.Now().UTC().Truncate(time.Second)
	newer := testEnvelope("evt_2", "customer.subscription.updated", now)
	older := testEnvelope("evt_1", "customer.subscription.created", now.Add(-time.Minute))

	if outcome, _, err := o.Begin(context.Background(), newer, []byte(`{}`)); err != nil || outcome != OutcomeProcess {
		t.Fatalf("Begin(newer) = %v, %v", outcome, err)
	}
	if err := o.Complete(context.Background(), newer); err != nil {
		t.Fatalf("Complete(newer): %v", err)
	}

	outcome, _, err := o.Begin(context.Background(), older, []byte(`{}`))
	if err != nil {
		t.Fatalf("Begin(older): %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Fatalf("Begin(older) outcome = %v, want ignored", outcome)
	}

	stored, err := events.GetByEventID(models.BillingProviderStripe, "evt_1")
	if err != nil {
		t.Fatalf("GetByEventID: %v", err)
	}
	if stored.Status != models.WebhookStatusIgnoredOutOfOrder {
		t.Errorf("stale event status = %q, want %q", stored.Status, models.WebhookStatusIgnoredOutOfOrder)
	}

	// The cursor must still point at the newer event.
	cursor, err := cursors.GetBySubscriptionID(models.BillingProviderStripe, "sub_1")
	if err != nil {
		t.Fatalf("GetBySubscriptionID: %v", err)
	}
	if cursor.LastEventID != "evt_2" {
		t.Errorf("cursor LastEventID = %q, want evt_2", cursor.LastEventID)
	}
}

func TestOrchestratorCompleteAdvancesCursor(t *testing.T) {
	events := newFakeEventRepo()
	cursors := newFakeCursorRepo()
	counters := counter.NewRegistry()
	o := NewOrchestrator(events, cursors, counters)

	env := testEnvelope("evt_1", "customer.subscription.created", time.Now().UTC())
	if _, _, err := o.Begin(context.Background(), env, []byte(`{}`)); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := o.Complete(context.Background(), env); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	cursor, err := cursors.GetBySubscriptionID(models.BillingProviderStripe, "sub_1")
	if err != nil {
		t.Fatalf("cursor missing after Complete: %v", err)
	}
	if cursor.LastEventID != "evt_1" || cursor.LastEventType != env.Type {
		t.Errorf("cursor = %+v, want evt_1/%s", cursor, env.Type)
	}

	stored, _ := events.GetByEventID(models.BillingProviderStripe, "evt_1")
	if stored.Status != models.WebhookStatusProcessed {
		t.Errorf("event status = %q, want processed", stored.Status)
	}
	if got := counters.Get(CounterWebhookProcessed); got != 1 {
		t.Errorf("processed counter = %d, want 1", got)
	}
}

func TestOrchestratorCompleteNeverRegressesCursor(t *testing.T) {
	events := newFakeEventRepo()
	cursors := newFakeCursorRepo()
	o := NewOrchestrator(events, cursors, counter.NewRegistry())

	now := time.Now().UTC().Truncate(time.Second)
	older := testEnvelope("evt_old", "customer.subscription.created", now.Add(-time.Minute))
	newer := testEnvelope("evt_new", "customer.subscription.updated", now)

	// Both pass Begin before either completes, simulating concurrent
	// deliveries for the same subscription.
	if _, _, err := o.Begin(context.Background(), older, []byte(`{}`)); err != nil {
		t.Fatalf("Begin(older): %v", err)
	}
	if _, _, err := o.Begin(context.Background(), newer, []byte(`{}`)); err != nil {
		t.Fatalf("Begin(newer): %v", err)
	}

	if err := o.Complete(context.Background(), newer); err != nil {
		t.Fatalf("Complete(newer): %v", err)
	}
	if err := o.Complete(context.Background(), older); err != nil {
		t.Fatalf("Complete(older): %v", err)
	}

	cursor, _ := cursors.GetBySubscriptionID(models.BillingProviderStripe, "sub_1")
	if cursor.LastEventID != "evt_new" {
		t.Errorf("cursor regressed to %q, want evt_new", cursor.LastEventID)
	}
}

func TestOrchestratorFail(t *testing.T) {
	events := newFakeEventRepo()
	cursors := newFakeCursorRepo()
	counters := counter.NewRegistry()
	o := NewOrchestrator(events, cursors, counters)

	env := testEnvelope("evt_1", "customer.subscription.created", time.Now().UTC())
	if _, _, err := o.Begin(context.Background(), env, []byte(`{}`)); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := o.Fail(context.Background(), env.EventID, NewError(CodeSyncError, context.DeadlineExceeded)); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	stored, _ := events.GetByEventID(models.BillingProviderStripe, "evt_1")
	if stored.Status != models.WebhookStatusFailed {
		t.Errorf("event status = %q, want failed", stored.Status)
	}
	if stored.DeliveryAttempts != 2 {
		t.Errorf("delivery attempts = %d, want 2", stored.DeliveryAttempts)
	}
	if stored.ErrorMessage == "" {
		t.Error("error message should be recorded")
	}

	// The cursor must not move for a failed application.
	if _, err := cursors.GetBySubscriptionID(models.BillingProviderStripe, "sub_1"); err == nil {
		t.Error("cursor should not exist after a failed event")
	}
	if got := counters.Get(CounterWebhookFailed); got != 1 {
		t.Errorf("failed counter = %d, want 1", got)
	}
}
