package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
	"github.com/OrbitDeskHQ/OrbitDesk/app/repository"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/metrics/counter"
	"github.com/stripe/stripe-go/v82"
)

type serviceFixture struct {
	svc     *Service
	events  *fakeEventRepo
	cursors *fakeCursorRepo
	subs    *fakeSubsRepo
	fetcher *fakeFetcher
	retry   *fakeRetryQueue
}

func newServiceFixture() *serviceFixture {
	events := newFakeEventRepo()
	cursors := newFakeCursorRepo()
	subs := newFakeSubsRepo()
	fetcher := &fakeFetcher{}
	retry := &fakeRetryQueue{}

	repos := &repository.Repositories{
		WebhookEvent: events,
		Cursor:       cursors,
		Subscription: subs,
	}
	svc := NewService(repos, fetcher, retry, counter.NewRegistry(), "price_pro_monthly")
	svc.sync.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	return &serviceFixture{svc: svc, events: events, cursors: cursors, subs: subs, fetcher: fetcher, retry: retry}
}

func subscriptionEvent(eventID string, created int64, status string) stripe.Event {
	raw := fmt.Sprintf(`{
		"id": "sub_1",
		"customer": "cus_1",
		"status": %q,
		"current_period_end": 1790000000,
		"metadata": {"organization_id": "1"},
		"items": {"data": [{"price": {"id": "price_pro_monthly"}}]}
	}`, status)
	return makeEvent(eventID, "customer.subscription.updated", created, raw)
}

func TestHandleEventProcessesSubscriptionUpdate(t *testing.T) {
	f := newServiceFixture()
	event := subscriptionEvent("evt_1", 1700000000, "active")

	result, err := f.svc.HandleEvent(context.Background(), event, []byte("payload"))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if result.Duplicate || result.Ignored || result.Failed {
		t.Fatalf("unexpected result flags: %+v", result)
	}

	sub, err := f.subs.GetByOrganizationID(1)
	if err != nil {
		t.Fatalf("projection missing: %v", err)
	}
	if sub.Plan != "pro" || sub.Status != models.SubscriptionStatusActive {
		t.Errorf("projection = %s/%s, want pro/active", sub.Plan, sub.Status)
	}
	if sub.ProviderSubscriptionID != "sub_1" {
		t.Errorf("provider subscription id = %q, want sub_1", sub.ProviderSubscriptionID)
	}

	stored, _ := f.events.GetByEventID(models.BillingProviderStripe, "evt_1")
	if stored.Status != models.WebhookStatusProcessed {
		t.Errorf("ledger status = %q, want processed", stored.Status)
	}
}

func TestHandleEventDuplicateDelivery(t *testing.T) {
	f := newServiceFixture()
	event := subscriptionEvent("evt_1", 1700000000, "active")

	if _, err := f.svc.HandleEvent(context.Background(), event, []byte("p")); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	result, err := f.svc.HandleEvent(context.Background(), event, []byte("p"))
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !result.Duplicate {
		t.Fatal("second delivery should report duplicate")
	}
}

func TestHandleEventOutOfOrder(t *testing.T) {
	f := newServiceFixture()

	newer := subscriptionEvent("evt_2", 1700000600, "canceled")
	older := subscriptionEvent("evt_1", 1700000000, "active")

	if _, err := f.svc.HandleEvent(context.Background(), newer, []byte("p")); err != nil {
		t.Fatalf("newer delivery: %v", err)
	}
	result, err := f.svc.HandleEvent(context.Background(), older, []byte("p"))
	if err != nil {
		t.Fatalf("older delivery: %v", err)
	}
	if !result.Ignored {
		t.Fatal("stale delivery should be ignored")
	}

	// The stale event must not have overwritten the newer state.
	sub, _ := f.subs.GetByOrganizationID(1)
	if sub.Status != models.SubscriptionStatusCanceled {
		t.Errorf("projection status = %q, want canceled", sub.Status)
	}
}

func TestHandleEventDeletedDefaultsToCanceled(t *testing.T) {
	f := newServiceFixture()
	raw := `{"id":"sub_1","customer":"cus_1","metadata":{"organization_id":"1"}}`
	event := makeEvent("evt_del", "customer.subscription.deleted", 1700000000, raw)

	if _, err := f.svc.HandleEvent(context.Background(), event, []byte("p")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	sub, _ := f.subs.GetByOrganizationID(1)
	if sub.Status != models.SubscriptionStatusCanceled {
		t.Errorf("status = %q, want canceled", sub.Status)
	}
	if sub.Plan != "free" {
		t.Errorf("plan = %q, want free", sub.Plan)
	}
}

func TestHandleEventCheckoutPullsAuthoritativeState(t *testing.T) {
	f := newServiceFixture()
	f.fetcher.snap = &SubscriptionSnapshot{
		ID:               "sub_9",
		Status:           "active",
		PriceID:          "price_pro_monthly",
		CustomerID:       "cus_9",
		CurrentPeriodEnd: 1790000000,
	}

	raw := `{"id":"cs_1","customer":"cus_9","subscription":"sub_9","metadata":{"organization_id":"3"}}`
	event := makeEvent("evt_cs", "checkout.session.completed", 1700000000, raw)

	result, err := f.svc.HandleEvent(context.Background(), event, []byte("p"))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if result.Failed {
		t.Fatal("checkout should have succeeded")
	}
	if f.fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", f.fetcher.calls)
	}

	sub, err := f.subs.GetByOrganizationID(3)
	if err != nil {
		t.Fatalf("projection missing: %v", err)
	}
	if sub.Plan != "pro" {
		t.Errorf("plan = %q, want pro", sub.Plan)
	}
}

func TestHandleEventSyncFailureQueuesRetry(t *testing.T) {
	f := newServiceFixture()
	f.fetcher.err = errors.New("stripe unavailable")

	raw := `{"id":"cs_1","subscription":"sub_9","metadata":{"organization_id":"3"}}`
	event := makeEvent("evt_cs", "checkout.session.completed", 1700000000, raw)

	result, err := f.svc.HandleEvent(context.Background(), event, []byte("p"))
	if err != nil {
		t.Fatalf("a handled sync failure must not surface as an error: %v", err)
	}
	if !result.Failed {
		t.Fatal("result should report failure")
	}
	if len(f.retry.enqueued) != 1 || f.retry.enqueued[0] != "evt_cs" {
		t.Fatalf("retry queue = %v, want [evt_cs]", f.retry.enqueued)
	}

	stored, _ := f.events.GetByEventID(models.BillingProviderStripe, "evt_cs")
	if stored.Status != models.WebhookStatusFailed {
		t.Errorf("ledger status = %q, want failed", stored.Status)
	}
}

func TestHandleEventPersistenceFailureSurfaces(t *testing.T) {
	f := newServiceFixture()
	f.events.createErr = errors.New("db down")

	event := subscriptionEvent("evt_1", 1700000000, "active")
	if _, err := f.svc.HandleEvent(context.Background(), event, []byte("p")); CodeOf(err) != CodePersistenceError {
		t.Fatalf("err = %v, want persistence_error", err)
	}
}

func TestHandleEventUnknownOrganizationIsNoop(t *testing.T) {
	f := newServiceFixture()
	raw := `{"id":"sub_unmapped","customer":"cus_1","status":"active"}`
	event := makeEvent("evt_u", "customer.subscription.updated", 1700000000, raw)

	result, err := f.svc.HandleEvent(context.Background(), event, []byte("p"))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if result.Failed {
		t.Fatal("unmapped organization should be a successful no-op")
	}

	stored, _ := f.events.GetByEventID(models.BillingProviderStripe, "evt_u")
	if stored.Status != models.WebhookStatusProcessed {
		t.Errorf("ledger status = %q, want processed", stored.Status)
	}
}

func TestHandleEventResolvesOrganizationFromProjection(t *testing.T) {
	f := newServiceFixture()
	f.subs.byOrg[5] = &models.OrganizationSubscription{
		OrganizationID:         5,
		ProviderSubscriptionID: "sub_known",
	}

	// No metadata on the event; the projection row links the subscription.
	raw := `{"id":"sub_known","customer":"cus_5","status":"active","items":{"data":[{"price":{"id":"price_pro_monthly"}}]}}`
	event := makeEvent("evt_k", "customer.subscription.updated", 1700000000, raw)

	if _, err := f.svc.HandleEvent(context.Background(), event, []byte("p")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	sub, _ := f.subs.GetByOrganizationID(5)
	if sub.Plan != "pro" {
		t.Errorf("plan = %q, want pro", sub.Plan)
	}
}

func TestRetryEventReappliesFailedEvent(t *testing.T) {
	f := newServiceFixture()
	f.fetcher.err = errors.New("stripe unavailable")

	raw := `{"id":"cs_1","subscription":"sub_9","metadata":{"organization_id":"3"}}`
	payload := fmt.Sprintf(`{"id":"evt_cs","type":"checkout.session.completed","created":1700000000,"data":{"object":%s}}`, raw)
	event := makeEvent("evt_cs", "checkout.session.completed", 1700000000, raw)

	if result, err := f.svc.HandleEvent(context.Background(), event, []byte(payload)); err != nil || !result.Failed {
		t.Fatalf("setup delivery: result=%+v err=%v", result, err)
	}

	// Provider recovers; the queued retry must finish the job.
	f.fetcher.err = nil
	f.fetcher.snap = &SubscriptionSnapshot{ID: "sub_9", Status: "active", PriceID: "price_pro_monthly"}

	if err := f.svc.RetryEvent(context.Background(), "evt_cs"); err != nil {
		t.Fatalf("RetryEvent: %v", err)
	}

	stored, _ := f.events.GetByEventID(models.BillingProviderStripe, "evt_cs")
	if stored.Status != models.WebhookStatusProcessed {
		t.Errorf("ledger status = %q, want processed", stored.Status)
	}
	sub, err := f.subs.GetByOrganizationID(3)
	if err != nil {
		t.Fatalf("projection missing after retry: %v", err)
	}
	if sub.Plan != "pro" {
		t.Errorf("plan = %q, want pro", sub.Plan)
	}
}

func TestRetryEventSkipsTerminalEvents(t *testing.T) {
	f := newServiceFixture()
	event := subscriptionEvent("evt_1", 1700000000, "active")
	if _, err := f.svc.HandleEvent(context.Background(), event, []byte("p")); err != nil {
		t.Fatalf("setup delivery: %v", err)
	}

	// Already processed: the retry job is a no-op, not an error.
	if err := f.svc.RetryEvent(context.Background(), "evt_1"); err != nil {
		t.Fatalf("RetryEvent on terminal event: %v", err)
	}
}

func TestRetryEventDetectsStaleness(t *testing.T) {
	f := newServiceFixture()

	// A failed older event sits in the queue while a newer one completes.
	raw := `{"id":"sub_1","customer":"cus_1","status":"active","metadata":{"organization_id":"1"}}`
	payload := fmt.Sprintf(`{"id":"evt_old","type":"customer.subscription.updated","created":1700000000,"data":{"object":%s}}`, raw)
	f.events.events[eventKey(models.BillingProviderStripe, "evt_old")] = &models.WebhookEvent{
		Provider:               models.BillingProviderStripe,
		EventID:                "evt_old",
		EventType:              "customer.subscription.updated",
		EventCreatedAt:         time.Unix(1700000000, 0).UTC(),
		ProviderSubscriptionID: "sub_1",
		Status:                 models.WebhookStatusFailed,
		PayloadJSON:            payload,
	}

	newer := subscriptionEvent("evt_new", 1700000600, "canceled")
	if _, err := f.svc.HandleEvent(context.Background(), newer, []byte("p")); err != nil {
		t.Fatalf("newer delivery: %v", err)
	}

	if err := f.svc.RetryEvent(context.Background(), "evt_old"); err != nil {
		t.Fatalf("RetryEvent: %v", err)
	}

	stored, _ := f.events.GetByEventID(models.BillingProviderStripe, "evt_old")
	if stored.Status != models.WebhookStatusIgnoredOutOfOrder {
		t.Errorf("stale retried event status = %q, want ignored_out_of_order", stored.Status)
	}
	sub, _ := f.subs.GetByOrganizationID(1)
	if sub.Status != models.SubscriptionStatusCanceled {
		t.Errorf("projection status = %q, want canceled", sub.Status)
	}
}
