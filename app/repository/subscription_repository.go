package repository

import (
	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormSubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a subscription projection store backed by GORM.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &gormSubscriptionRepository{db: db}
}

func (r *gormSubscriptionRepository) Upsert(sub *models.OrganizationSubscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan",
			"status",
			"provider_customer_id",
			"provider_subscription_id",
			"current_period_end",
			"needs_reconcile",
			"last_synced_at",
			"last_provider_snapshot_at",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("organization_id = ?", sub.OrganizationID).First(sub).Error
}

func (r *gormSubscriptionRepository) GetByOrganizationID(organizationID uint) (*models.OrganizationSubscription, error) {
	var sub models.OrganizationSubscription
	err := r.db.Where("organization_id = ?", organizationID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormSubscriptionRepository) GetByProviderSubscriptionID(providerSubscriptionID string) (*models.OrganizationSubscription, error) {
	var sub models.OrganizationSubscription
	err := r.db.Where("provider_subscription_id = ?", providerSubscriptionID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormSubscriptionRepository) SetNeedsReconcile(organizationID uint, needsReconcile bool) error {
	return r.db.Model(&models.OrganizationSubscription{}).
		Where("organization_id = ?", organizationID).
		Update("needs_reconcile", needsReconcile).Error
}

func (r *gormSubscriptionRepository) ListNeedingReconcile(limit int) ([]models.OrganizationSubscription, error) {
	if limit <= 0 {
		limit = 50
	}
	var subs []models.OrganizationSubscription
	err := r.db.Where("needs_reconcile = ?", true).
		Order("updated_at ASC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}
