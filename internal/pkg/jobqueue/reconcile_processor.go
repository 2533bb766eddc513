package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
)

// processReconcileJob pulls authoritative provider state for one
// organization and applies it.
func (q *Queue) processReconcileJob(ctx context.Context, job *Job) error {
	payload, err := ReconcileJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid reconcile payload: %w", err)
	}
	if payload.OrganizationID == 0 {
		return errors.New("reconcile payload missing organization_id")
	}

	svc := getBillingService()
	if svc == nil {
		return errors.New("no billing service registered")
	}

	outcome, err := svc.Reconcile(ctx, payload.OrganizationID)
	if err != nil {
		return err
	}
	log.Infof("[JobQueue] Reconcile for organization %d: %s", payload.OrganizationID, outcome)
	return nil
}
