package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
	"github.com/OrbitDeskHQ/OrbitDesk/app/repository"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/entitlements"
)

// SubscriptionSnapshot is the provider-agnostic view of a subscription's
// current state, whether it came out of a webhook payload or an
// authoritative pull.
type SubscriptionSnapshot struct {
	ID               string
	Status           string
	PriceID          string
	CustomerID       string
	CurrentPeriodEnd int64 // unix seconds, 0 when unknown
}

// SyncService maps a provider snapshot onto the local subscription
// projection and persists it. Applying the same snapshot twice yields the
// same row.
type SyncService struct {
	subs       repository.SubscriptionRepository
	proPriceID string
	now        func() time.Time
}

// NewSyncService creates a sync service. proPriceID is the provider price id
// that entitles the pro plan.
func NewSyncService(subs repository.SubscriptionRepository, proPriceID string) *SyncService {
	return &SyncService{
		subs:       subs,
		proPriceID: strings.TrimSpace(proPriceID),
		now:        time.Now,
	}
}

// Apply upserts the projection row for the organization. The plan is pro only
// when the snapshot's price is the configured pro price and the status still
// entitles (trialing or active); everything else falls back to free.
func (s *SyncService) Apply(ctx context.Context, organizationID uint, snap SubscriptionSnapshot) (*models.OrganizationSubscription, error) {
	_ = ctx

	if organizationID == 0 {
		return nil, errors.New("organization_id is required")
	}
	if strings.TrimSpace(snap.ID) == "" {
		return nil, errors.New("provider subscription id is required")
	}

	status := models.NormalizeSubscriptionStatus(snap.Status)
	plan := entitlements.PlanFree
	if s.proPriceID != "" && snap.PriceID == s.proPriceID && isEntitlingStatus(status) {
		plan = entitlements.PlanPro
	}

	var periodEnd *time.Time
	if snap.CurrentPeriodEnd > 0 {
		t := time.Unix(snap.CurrentPeriodEnd, 0).UTC()
		periodEnd = &t
	}

	now := s.now()
	sub := &models.OrganizationSubscription{
		OrganizationID:         organizationID,
		Plan:                   string(plan),
		Status:                 status,
		ProviderCustomerID:     strings.TrimSpace(snap.CustomerID),
		ProviderSubscriptionID: strings.TrimSpace(snap.ID),
		CurrentPeriodEnd:       periodEnd,
		NeedsReconcile:         false,
		LastSyncedAt:           &now,
		LastProviderSnapshotAt: &now,
	}
	if err := s.subs.Upsert(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func isEntitlingStatus(status string) bool {
	switch status {
	case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing:
		return true
	default:
		return false
	}
}
