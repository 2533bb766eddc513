package repository

import (
	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
	"gorm.io/gorm"
)

// WebhookEventRepository defines the typed contract for the webhook event
// ledger. CreateIfNotExists must be atomic against concurrent inserts of the
// same event id; the unique (provider, event_id) index does the arbitration.
type WebhookEventRepository interface {
	// CreateIfNotExists inserts the event unless a row with the same
	// provider+event id already exists. It reports whether a new row was
	// created and always returns the stored row.
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	// MarkStatus updates an existing ledger row. It never creates one and
	// returns ErrWebhookEventNotFound when the row is missing.
	MarkStatus(provider, eventID, status, errorMessage string, incrementAttempts bool) error
	GetByEventID(provider, eventID string) (*models.WebhookEvent, error)
	ListByStatus(status string, limit int) ([]models.WebhookEvent, error)
	// MarkArchived records that the raw payload was offloaded to cold
	// storage and clears it from the row.
	MarkArchived(provider, eventID string) error
}

// OrderingCursorRepository defines the typed contract for per-subscription
// ordering cursors.
type OrderingCursorRepository interface {
	GetBySubscriptionID(provider, providerSubscriptionID string) (*models.OrderingCursor, error)
	// Advance upserts the cursor for next's subscription inside a
	// transaction holding a row lock. shouldAdvance is evaluated against the
	// current locked row; when it returns false the cursor is left untouched
	// and Advance reports false. A missing cursor always advances.
	Advance(next *models.OrderingCursor, shouldAdvance func(current *models.OrderingCursor) bool) (bool, error)
}

// SubscriptionRepository defines the typed contract for the organization
// subscription projection.
type SubscriptionRepository interface {
	Upsert(sub *models.OrganizationSubscription) error
	GetByOrganizationID(organizationID uint) (*models.OrganizationSubscription, error)
	GetByProviderSubscriptionID(providerSubscriptionID string) (*models.OrganizationSubscription, error)
	SetNeedsReconcile(organizationID uint, needsReconcile bool) error
	ListNeedingReconcile(limit int) ([]models.OrganizationSubscription, error)
}

// OrganizationRepository defines the interface for organization-related
// database operations.
type OrganizationRepository interface {
	Create(org *models.Organization) error
	GetByID(id uint) (*models.Organization, error)
	GetBySlug(slug string) (*models.Organization, error)
	AddMember(member *models.OrganizationMember) error
	GetMember(organizationID, userID uint) (*models.OrganizationMember, error)
}

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Organization OrganizationRepository
	WebhookEvent WebhookEventRepository
	Cursor       OrderingCursorRepository
	Subscription SubscriptionRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Organization: NewOrganizationRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
		Cursor:       NewOrderingCursorRepository(db),
		Subscription: NewSubscriptionRepository(db),
	}
}
