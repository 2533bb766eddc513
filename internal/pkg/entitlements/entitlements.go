package entitlements

import (
	"strings"

	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
)

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// ParsePlan normalizes a stored plan string. Anything unrecognized is
// treated as free so a bad row never grants paid features.
func ParsePlan(s string) Plan {
	switch Plan(strings.ToLower(strings.TrimSpace(s))) {
	case PlanPro:
		return PlanPro
	default:
		return PlanFree
	}
}

// Limits returns the seat and project ceilings for a plan.
func Limits(plan Plan) (maxSeats, maxProjects int) {
	switch plan {
	case PlanPro:
		return 50, 100
	default:
		return 3, 2
	}
}

// AllowedFeatures returns which gated features a plan unlocks.
func AllowedFeatures(plan Plan) (apiAccess, prioritySupport bool) {
	switch plan {
	case PlanPro:
		return true, true
	default:
		return false, false
	}
}

// EffectivePlan combines the stored plan with the subscription status: a
// subscription that is no longer entitling (past_due, canceled, unpaid)
// drops the organization to free regardless of the stored plan.
func EffectivePlan(sub *models.OrganizationSubscription) Plan {
	if sub == nil {
		return PlanFree
	}
	switch sub.Status {
	case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing:
		return ParsePlan(sub.Plan)
	default:
		return PlanFree
	}
}
