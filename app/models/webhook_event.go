package models

import "time"

// Billing provider constants used across billing-related models.
const (
	BillingProviderStripe = "stripe"
)

// Webhook event lifecycle statuses. An event row is immutable once it is
// processed or ignored; failed rows may be retried and re-marked.
const (
	WebhookStatusReceived          = "received"
	WebhookStatusProcessed         = "processed"
	WebhookStatusFailed            = "failed"
	WebhookStatusIgnoredOutOfOrder = "ignored_out_of_order"
)

// WebhookEvent is the idempotency ledger: one row per distinct provider event
// id. The unique (provider, event_id) index is the sole guard against
// duplicate application. Rows are never deleted (audit trail).
type WebhookEvent struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	Provider               string     `gorm:"type:varchar(20);not null;index:ux_webhook_events_provider_event,unique,priority:1" json:"provider"`
	EventID                string     `gorm:"type:varchar(191);not null;index:ux_webhook_events_provider_event,unique,priority:2" json:"event_id"`
	EventType              string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	EventCreatedAt         time.Time  `gorm:"type:timestamp;not null" json:"event_created_at"`
	OrganizationID         uint       `gorm:"index" json:"organization_id"`
	ProviderSubscriptionID string     `gorm:"type:varchar(191);index" json:"provider_subscription_id"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'received';index" json:"status"`
	ErrorMessage           string     `gorm:"type:text" json:"error_message"`
	DeliveryAttempts       int        `gorm:"not null;default:1" json:"delivery_attempts"`
	PayloadJSON            string     `gorm:"type:longtext;not null" json:"payload_json"`
	ArchivedAt             *time.Time `gorm:"type:timestamp" json:"archived_at,omitempty"`
	CreatedAt              time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the event reached a state that must not change.
func (e *WebhookEvent) IsTerminal() bool {
	return e.Status == WebhookStatusProcessed || e.Status == WebhookStatusIgnoredOutOfOrder
}
