package models

import "time"

// OrderingCursor marks the last successfully applied event per provider
// subscription. It only ever advances to strictly newer events (timestamp
// first, then type precedence on ties) and is written exclusively when an
// event completes processing.
type OrderingCursor struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	Provider               string    `gorm:"type:varchar(20);not null;index:ux_ordering_cursors_provider_sub,unique,priority:1" json:"provider"`
	ProviderSubscriptionID string    `gorm:"type:varchar(191);not null;index:ux_ordering_cursors_provider_sub,unique,priority:2" json:"provider_subscription_id"`
	LastEventID            string    `gorm:"type:varchar(191);not null" json:"last_event_id"`
	LastEventType          string    `gorm:"type:varchar(100);not null" json:"last_event_type"`
	LastEventCreatedAt     time.Time `gorm:"type:timestamp;not null" json:"last_event_created_at"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
