package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
	"github.com/OrbitDeskHQ/OrbitDesk/app/repository"
	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/entitlements"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HandleGetOrganizationSubscription returns the local subscription projection
// plus the effective plan derived from it.
func HandleGetOrganizationSubscription(c *fiber.Ctx) error {
	orgID, err := parseUintParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid organization id"})
	}

	sub, err := repository.GetGlobalRepositories().Subscription.GetByOrganizationID(orgID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "subscription_lookup_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"organization_id":          sub.OrganizationID,
		"plan":                     sub.Plan,
		"effective_plan":           string(entitlements.EffectivePlan(sub)),
		"status":                   sub.Status,
		"provider_customer_id":     sub.ProviderCustomerID,
		"provider_subscription_id": sub.ProviderSubscriptionID,
		"current_period_end":       formatTimePtr(sub.CurrentPeriodEnd),
		"needs_reconcile":          sub.NeedsReconcile,
		"last_synced_at":           formatTimePtr(sub.LastSyncedAt),
	})
}

// HandleBillingPortalReturn lands customers coming back from the provider's
// billing portal. Portal changes race their own webhooks, so the organization
// is flagged and a background reconcile is scheduled rather than trusting the
// next push to arrive.
func HandleBillingPortalReturn(c *fiber.Ctx) error {
	orgID, err := strconv.ParseUint(c.Query("org"), 10, 64)
	if err != nil || orgID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid organization id"})
	}
	if billingService == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "billing_not_configured"})
	}

	if err := billingService.MarkForReconcile(uint(orgID)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "mark_reconcile_failed"})
	}
	// Best effort: the sweep picks the flag up anyway if the enqueue fails.
	if reconcileQueue != nil {
		_, _ = reconcileQueue.EnqueueReconcile(uint(orgID))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "reconcile_scheduled": true})
}

// HandleTriggerReconcile runs a synchronous reconciliation for one
// organization. Ops endpoint, admin key protected.
func HandleTriggerReconcile(c *fiber.Ctx) error {
	orgID, err := parseUintParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid organization id"})
	}
	if billingService == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "billing_not_configured"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	outcome, err := billingService.Reconcile(ctx, orgID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reconcile_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "outcome": string(outcome)})
}

// HandleMarkReconcile flags an organization for the next background sweep
// instead of reconciling inline.
func HandleMarkReconcile(c *fiber.Ctx) error {
	orgID, err := parseUintParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid organization id"})
	}
	if billingService == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "billing_not_configured"})
	}

	if err := billingService.MarkForReconcile(orgID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "mark_reconcile_failed"})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true})
}

// HandleBillingCounters exposes the engine counters for ops dashboards.
func HandleBillingCounters(c *fiber.Ctx) error {
	if billingCounters == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{})
	}
	return c.Status(fiber.StatusOK).JSON(billingCounters.Snapshot())
}

// HandleGetWebhookEvent returns one ledger row for support lookups. The raw
// payload is omitted; archived payloads live in cold storage anyway.
func HandleGetWebhookEvent(c *fiber.Ctx) error {
	eventID := c.Params("event_id")
	if eventID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "event id missing"})
	}

	event, err := repository.GetGlobalRepositories().WebhookEvent.GetByEventID(models.BillingProviderStripe, eventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_lookup_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(webhookEventResponse(event))
}

// HandleListWebhookEvents lists ledger rows by status, oldest first.
func HandleListWebhookEvents(c *fiber.Ctx) error {
	status := c.Query("status", models.WebhookStatusFailed)
	switch status {
	case models.WebhookStatusReceived, models.WebhookStatusProcessed,
		models.WebhookStatusFailed, models.WebhookStatusIgnoredOutOfOrder:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "unknown status"})
	}

	limit := c.QueryInt("limit", 50)
	events, err := repository.GetGlobalRepositories().WebhookEvent.ListByStatus(status, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_list_failed"})
	}

	out := make([]fiber.Map, 0, len(events))
	for i := range events {
		out = append(out, webhookEventResponse(&events[i]))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"events": out})
}

// HandleGetOrganizationEntitlements returns the effective plan and its
// feature gates for one organization. No subscription row means free.
func HandleGetOrganizationEntitlements(c *fiber.Ctx) error {
	orgID, err := parseUintParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid organization id"})
	}

	sub, err := repository.GetGlobalRepositories().Subscription.GetByOrganizationID(orgID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "subscription_lookup_failed"})
	}

	plan := entitlements.EffectivePlan(sub)
	maxSeats, maxProjects := entitlements.Limits(plan)
	apiAccess, prioritySupport := entitlements.AllowedFeatures(plan)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"organization_id":  orgID,
		"plan":             string(plan),
		"max_seats":        maxSeats,
		"max_projects":     maxProjects,
		"api_access":       apiAccess,
		"priority_support": prioritySupport,
	})
}

func webhookEventResponse(event *models.WebhookEvent) fiber.Map {
	return fiber.Map{
		"event_id":                 event.EventID,
		"event_type":               event.EventType,
		"event_created_at":         event.EventCreatedAt.UTC().Format(time.RFC3339),
		"organization_id":          event.OrganizationID,
		"provider_subscription_id": event.ProviderSubscriptionID,
		"status":                   event.Status,
		"error_message":            event.ErrorMessage,
		"delivery_attempts":        event.DeliveryAttempts,
		"archived_at":              formatTimePtr(event.ArchivedAt),
	}
}
