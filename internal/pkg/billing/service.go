package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
	"github.com/OrbitDeskHQ/OrbitDesk/app/repository"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/env"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/metrics/counter"
	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

// RetryQueue accepts failed event ids for asynchronous, backed-off retry.
// The engine only decides that a retry is warranted, never when.
type RetryQueue interface {
	EnqueueWebhookRetry(eventID string) error
}

// Service is the push-pipeline entry point: it composes the orchestrator,
// the sync service and the provider client into the full
// verify-extract-begin-apply-complete flow, plus the retry re-entry used by
// the job queue.
type Service struct {
	orchestrator *Orchestrator
	sync         *SyncService
	events       repository.WebhookEventRepository
	subs         repository.SubscriptionRepository
	fetcher      SubscriptionFetcher
	retry        RetryQueue
	counters     *counter.Registry
}

// NewService creates the billing service from injected collaborators.
func NewService(repos *repository.Repositories, fetcher SubscriptionFetcher, retry RetryQueue, counters *counter.Registry, proPriceID string) *Service {
	return &Service{
		orchestrator: NewOrchestrator(repos.WebhookEvent, repos.Cursor, counters),
		sync:         NewSyncService(repos.Subscription, proPriceID),
		events:       repos.WebhookEvent,
		subs:         repos.Subscription,
		fetcher:      fetcher,
		retry:        retry,
		counters:     counters,
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle, reading
// the pro price id from the environment.
func NewServiceFromDB(db *gorm.DB, fetcher SubscriptionFetcher, retry RetryQueue, counters *counter.Registry) *Service {
	return NewService(
		repository.NewRepositories(db),
		fetcher,
		retry,
		counters,
		env.GetEnv("STRIPE_PRO_MONTHLY_PRICE_ID", ""),
	)
}

// HandleResult summarizes the terminal outcome of one delivery.
type HandleResult struct {
	EventID   string
	Duplicate bool
	Ignored   bool
	Failed    bool
}

// HandleEvent runs one verified event through the pipeline. The returned
// error is non-nil only for persistence failures, which the HTTP boundary
// turns into a 5xx so the provider redelivers; handled sync failures are
// recorded as failed, queued for retry and reported in the result.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event, payload []byte) (*HandleResult, error) {
	result := &HandleResult{EventID: event.ID}

	env, extractErr := ExtractEnvelope(event)

	outcome, _, err := s.orchestrator.Begin(ctx, env, payload)
	if err != nil {
		return nil, err
	}
	switch outcome {
	case OutcomeDuplicate:
		result.Duplicate = true
		return result, nil
	case OutcomeIgnored:
		result.Ignored = true
		return result, nil
	}

	applyErr := extractErr
	if applyErr == nil {
		applyErr = s.applyEvent(ctx, env, event)
	}
	if applyErr != nil {
		return s.failEvent(ctx, env.EventID, applyErr, result)
	}

	if err := s.orchestrator.Complete(ctx, env); err != nil {
		return s.failEvent(ctx, env.EventID, err, result)
	}
	return result, nil
}

func (s *Service) failEvent(ctx context.Context, eventID string, cause error, result *HandleResult) (*HandleResult, error) {
	log.Errorf("[Billing] Event %s failed: %v", eventID, cause)
	if err := s.orchestrator.Fail(ctx, eventID, cause); err != nil {
		return nil, err
	}
	if s.retry != nil {
		if err := s.retry.EnqueueWebhookRetry(eventID); err != nil {
			log.Errorf("[Billing] Failed to enqueue retry for event %s: %v", eventID, err)
		}
	}
	result.Failed = true
	return result, nil
}

// applyEvent turns the event into a subscription snapshot and syncs it.
// Events that carry no applicable state (unknown types, no linked
// organization) are a successful no-op and end up marked processed.
func (s *Service) applyEvent(ctx context.Context, env Envelope, event stripe.Event) error {
	switch event.Type {
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		var payload subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
			return NewError(CodeSyncError, fmt.Errorf("decode subscription payload: %w", err))
		}
		snap := snapshotFromSubscriptionPayload(payload, string(event.Type))

		orgID, err := s.resolveOrganization(env)
		if err != nil {
			return err
		}
		if orgID == 0 {
			log.Warnf("[Billing] Event %s has no linked organization, skipping sync", env.EventID)
			return nil
		}
		if _, err := s.sync.Apply(ctx, orgID, snap); err != nil {
			return NewError(CodeSyncError, err)
		}
		return nil

	case "checkout.session.completed":
		// The session payload does not embed the full subscription, so the
		// snapshot comes from an authoritative pull.
		if !env.HasSubscription() {
			return nil
		}
		if s.fetcher == nil {
			return NewError(CodeSyncError, errors.New("no subscription fetcher configured"))
		}
		snap, err := s.fetcher.FetchSubscription(ctx, env.ProviderSubscriptionID)
		if err != nil {
			return NewError(CodeSyncError, err)
		}
		if snap.CustomerID == "" {
			var session checkoutSessionPayload
			if err := json.Unmarshal(event.Data.Raw, &session); err == nil {
				snap.CustomerID = session.Customer
			}
		}

		orgID, err := s.resolveOrganization(env)
		if err != nil {
			return err
		}
		if orgID == 0 {
			log.Warnf("[Billing] Checkout event %s has no linked organization, skipping sync", env.EventID)
			return nil
		}
		if _, err := s.sync.Apply(ctx, orgID, *snap); err != nil {
			return NewError(CodeSyncError, err)
		}
		return nil

	default:
		return nil
	}
}

// resolveOrganization prefers the metadata org id and falls back to looking
// the subscription up in the local projection (subscription events from the
// provider do not always carry our metadata).
func (s *Service) resolveOrganization(env Envelope) (uint, error) {
	if env.OrganizationID != 0 {
		return env.OrganizationID, nil
	}
	if !env.HasSubscription() {
		return 0, nil
	}
	sub, err := s.subs.GetByProviderSubscriptionID(env.ProviderSubscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, NewError(CodePersistenceError, err)
	}
	return sub.OrganizationID, nil
}

func snapshotFromSubscriptionPayload(p subscriptionPayload, eventType string) SubscriptionSnapshot {
	snap := SubscriptionSnapshot{
		ID:               p.ID,
		Status:           p.Status,
		CustomerID:       p.Customer,
		CurrentPeriodEnd: p.CurrentPeriodEnd,
	}
	if len(p.Items.Data) > 0 {
		item := p.Items.Data[0]
		snap.PriceID = item.Price.ID
		if snap.CurrentPeriodEnd == 0 {
			snap.CurrentPeriodEnd = item.CurrentPeriodEnd
		}
	}
	if eventType == "customer.subscription.deleted" && snap.Status == "" {
		snap.Status = models.SubscriptionStatusCanceled
	}
	return snap
}

// RetryEvent re-runs the apply step for a previously failed event. It is
// invoked by the job queue; a returned error means the job should be retried
// again (bounded by the queue's MaxRetries).
func (s *Service) RetryEvent(ctx context.Context, eventID string) error {
	stored, err := s.events.GetByEventID(models.BillingProviderStripe, eventID)
	if err != nil {
		return NewError(CodePersistenceError, err)
	}
	if stored.IsTerminal() {
		return nil
	}

	var event stripe.Event
	if err := json.Unmarshal([]byte(stored.PayloadJSON), &event); err != nil {
		wrapped := NewError(CodeSyncError, fmt.Errorf("decode stored payload: %w", err))
		_ = s.orchestrator.Fail(ctx, eventID, wrapped)
		return wrapped
	}
	env, err := ExtractEnvelope(event)
	if err != nil {
		wrapped := NewError(CodeSyncError, err)
		_ = s.orchestrator.Fail(ctx, eventID, wrapped)
		return wrapped
	}

	// The world may have moved on while the event sat in the queue: a newer
	// event can have advanced the cursor, making this one stale.
	if env.HasSubscription() {
		cursor, err := s.orchestrator.cursors.GetBySubscriptionID(models.BillingProviderStripe, env.ProviderSubscriptionID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(CodePersistenceError, err)
		}
		if ShouldIgnore(cursor, env) {
			if err := s.events.MarkStatus(models.BillingProviderStripe, eventID, models.WebhookStatusIgnoredOutOfOrder, "", false); err != nil {
				return NewError(CodePersistenceError, err)
			}
			s.counters.Inc(CounterWebhookIgnored)
			return nil
		}
	}

	if err := s.applyEvent(ctx, env, event); err != nil {
		_ = s.orchestrator.Fail(ctx, eventID, err)
		return err
	}
	return s.orchestrator.Complete(ctx, env)
}
