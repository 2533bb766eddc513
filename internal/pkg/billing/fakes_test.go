package billing

import (
	"context"
	"errors"
	"time"

	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
	"github.com/OrbitDeskHQ/OrbitDesk/app/repository"
	"gorm.io/gorm"
)

type fakeEventRepo struct {
	events     map[string]*models.WebhookEvent
	createErr  error
	markErr    error
	markCalls  int
	lastStatus string
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]*models.WebhookEvent)}
}

func eventKey(provider, eventID string) string {
	return provider + "/" + eventID
}

func (f *fakeEventRepo) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	if f.createErr != nil {
		return false, nil, f.createErr
	}
	key := eventKey(event.Provider, event.EventID)
	if stored, ok := f.events[key]; ok {
		cp := *stored
		return false, &cp, nil
	}
	cp := *event
	f.events[key] = &cp
	out := cp
	return true, &out, nil
}

func (f *fakeEventRepo) MarkStatus(provider, eventID, status, errorMessage string, incrementAttempts bool) error {
	f.markCalls++
	if f.markErr != nil {
		return f.markErr
	}
	stored, ok := f.events[eventKey(provider, eventID)]
	if !ok {
		return repository.ErrWebhookEventNotFound
	}
	stored.Status = status
	stored.ErrorMessage = errorMessage
	if incrementAttempts {
		stored.DeliveryAttempts++
	}
	f.lastStatus = status
	return nil
}

func (f *fakeEventRepo) GetByEventID(provider, eventID string) (*models.WebhookEvent, error) {
	stored, ok := f.events[eventKey(provider, eventID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *stored
	return &cp, nil
}

func (f *fakeEventRepo) ListByStatus(status string, limit int) ([]models.WebhookEvent, error) {
	var out []models.WebhookEvent
	for _, e := range f.events {
		if e.Status == status {
			out = append(out, *e)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeEventRepo) MarkArchived(provider, eventID string) error {
	stored, ok := f.events[eventKey(provider, eventID)]
	if !ok {
		return repository.ErrWebhookEventNotFound
	}
	now := time.Now()
	stored.ArchivedAt = &now
	stored.PayloadJSON = ""
	return nil
}

type fakeCursorRepo struct {
	cursors map[string]*models.OrderingCursor
	getErr  error
}

func newFakeCursorRepo() *fakeCursorRepo {
	return &fakeCursorRepo{cursors: make(map[string]*models.OrderingCursor)}
}

func (f *fakeCursorRepo) GetBySubscriptionID(provider, providerSubscriptionID string) (*models.OrderingCursor, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	cursor, ok := f.cursors[eventKey(provider, providerSubscriptionID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *cursor
	return &cp, nil
}

func (f *fakeCursorRepo) Advance(next *models.OrderingCursor, shouldAdvance func(current *models.OrderingCursor) bool) (bool, error) {
	key := eventKey(next.Provider, next.ProviderSubscriptionID)
	current, ok := f.cursors[key]
	if ok && !shouldAdvance(current) {
		return false, nil
	}
	cp := *next
	f.cursors[key] = &cp
	return true, nil
}

type fakeSubsRepo struct {
	byOrg     map[uint]*models.OrganizationSubscription
	upsertErr error
}

func newFakeSubsRepo() *fakeSubsRepo {
	return &fakeSubsRepo{byOrg: make(map[uint]*models.OrganizationSubscription)}
}

func (f *fakeSubsRepo) Upsert(sub *models.OrganizationSubscription) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *sub
	f.byOrg[sub.OrganizationID] = &cp
	return nil
}

func (f *fakeSubsRepo) GetByOrganizationID(organizationID uint) (*models.OrganizationSubscription, error) {
	sub, ok := f.byOrg[organizationID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeSubsRepo) GetByProviderSubscriptionID(providerSubscriptionID string) (*models.OrganizationSubscription, error) {
	for _, sub := range f.byOrg {
		if sub.ProviderSubscriptionID == providerSubscriptionID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubsRepo) SetNeedsReconcile(organizationID uint, needsReconcile bool) error {
	sub, ok := f.byOrg[organizationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sub.NeedsReconcile = needsReconcile
	return nil
}

func (f *fakeSubsRepo) ListNeedingReconcile(limit int) ([]models.OrganizationSubscription, error) {
	var out []models.OrganizationSubscription
	for _, sub := range f.byOrg {
		if sub.NeedsReconcile {
			out = append(out, *sub)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeFetcher struct {
	snap  *SubscriptionSnapshot
	err   error
	calls int
}

func (f *fakeFetcher) FetchSubscription(ctx context.Context, providerSubscriptionID string) (*SubscriptionSnapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.snap == nil {
		return nil, errors.New("no snapshot configured")
	}
	cp := *f.snap
	return &cp, nil
}

type fakeRetryQueue struct {
	enqueued []string
	err      error
}

func (f *fakeRetryQueue) EnqueueWebhookRetry(eventID string) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, eventID)
	return nil
}
