package models

import (
	"strings"
	"time"
)

// Internal subscription statuses. Provider statuses map onto these 1:1;
// anything unrecognized collapses to inactive.
const (
	SubscriptionStatusActive            = "active"
	SubscriptionStatusTrialing          = "trialing"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusUnpaid            = "unpaid"
	SubscriptionStatusIncomplete        = "incomplete"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
	SubscriptionStatusPaused            = "paused"
	SubscriptionStatusInactive          = "inactive"
)

// NormalizeSubscriptionStatus maps a provider status string to the internal
// status enum, defaulting to inactive for unknown values.
func NormalizeSubscriptionStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case SubscriptionStatusActive:
		return SubscriptionStatusActive
	case SubscriptionStatusTrialing:
		return SubscriptionStatusTrialing
	case SubscriptionStatusPastDue:
		return SubscriptionStatusPastDue
	case SubscriptionStatusCanceled:
		return SubscriptionStatusCanceled
	case SubscriptionStatusUnpaid:
		return SubscriptionStatusUnpaid
	case SubscriptionStatusIncomplete:
		return SubscriptionStatusIncomplete
	case SubscriptionStatusIncompleteExpired:
		return SubscriptionStatusIncompleteExpired
	case SubscriptionStatusPaused:
		return SubscriptionStatusPaused
	default:
		return SubscriptionStatusInactive
	}
}

// OrganizationSubscription is the local projection of an organization's
// provider subscription: one row per organization, written only by the sync
// service and read by the rest of the application (billing UI, entitlement
// checks).
type OrganizationSubscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	OrganizationID         uint       `gorm:"not null;uniqueIndex:ux_org_subscriptions_org" json:"organization_id"`
	Plan                   string     `gorm:"type:varchar(50);not null;default:'free';index" json:"plan"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'inactive';index" json:"status"`
	ProviderCustomerID     string     `gorm:"type:varchar(191);index" json:"provider_customer_id"`
	ProviderSubscriptionID string     `gorm:"type:varchar(191);index" json:"provider_subscription_id"`
	CurrentPeriodEnd       *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	NeedsReconcile         bool       `gorm:"not null;default:false;index" json:"needs_reconcile"`
	LastSyncedAt           *time.Time `gorm:"type:timestamp;default:null" json:"last_synced_at,omitempty"`
	LastProviderSnapshotAt *time.Time `gorm:"type:timestamp;default:null" json:"last_provider_snapshot_at,omitempty"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
