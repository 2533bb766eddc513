package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// ReconcileOutcome reports what a reconciliation run did.
type ReconcileOutcome string

const (
	ReconcileSynced         ReconcileOutcome = "synced"
	ReconcileNoSubscription ReconcileOutcome = "no_subscription"
)

// Reconcile pulls the authoritative subscription state for one organization
// and applies it, overwriting whatever the push pipeline last wrote. It
// deliberately does not consult the ordering cursor: a pull is current by
// definition, and the next webhook still has to beat the cursor on its own.
func (s *Service) Reconcile(ctx context.Context, organizationID uint) (ReconcileOutcome, error) {
	s.counters.Inc(CounterReconcileRun)

	sub, err := s.subs.GetByOrganizationID(organizationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.counters.Inc(CounterReconcileNoop)
		return ReconcileNoSubscription, nil
	}
	if err != nil {
		return "", NewError(CodePersistenceError, err)
	}

	if strings.TrimSpace(sub.ProviderSubscriptionID) == "" {
		// Nothing to pull against. Clear the flag so the sweep does not pick
		// this organization up again.
		if sub.NeedsReconcile {
			if err := s.subs.SetNeedsReconcile(organizationID, false); err != nil {
				return "", NewError(CodePersistenceError, err)
			}
		}
		s.counters.Inc(CounterReconcileNoop)
		return ReconcileNoSubscription, nil
	}

	if s.fetcher == nil {
		return "", NewError(CodeSyncError, errors.New("no subscription fetcher configured"))
	}
	snap, err := s.fetcher.FetchSubscription(ctx, sub.ProviderSubscriptionID)
	if err != nil {
		return "", NewError(CodeSyncError, err)
	}

	if _, err := s.sync.Apply(ctx, organizationID, *snap); err != nil {
		return "", NewError(CodeSyncError, err)
	}

	log.Infof("[Billing] Reconciled organization %d from subscription %s", organizationID, sub.ProviderSubscriptionID)
	return ReconcileSynced, nil
}

// MarkForReconcile flags an organization for the next reconciliation sweep.
func (s *Service) MarkForReconcile(organizationID uint) error {
	if err := s.subs.SetNeedsReconcile(organizationID, true); err != nil {
		return NewError(CodePersistenceError, err)
	}
	return nil
}

// ListNeedingReconcile returns the organization ids flagged for
// reconciliation, bounded by limit.
func (s *Service) ListNeedingReconcile(limit int) ([]uint, error) {
	subs, err := s.subs.ListNeedingReconcile(limit)
	if err != nil {
		return nil, NewError(CodePersistenceError, err)
	}
	ids := make([]uint, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.OrganizationID)
	}
	return ids, nil
}
