package repository

import (
	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
	"gorm.io/gorm"
)

type gormOrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates an organization repository backed by GORM.
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &gormOrganizationRepository{db: db}
}

// Create provisions the organization together with its owner membership and
// the free-plan subscription projection row, in one transaction.
func (r *gormOrganizationRepository) Create(org *models.Organization) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		member := &models.OrganizationMember{
			OrganizationID: org.ID,
			UserID:         org.OwnerID,
			Role:           models.MemberRoleOwner,
		}
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		sub := &models.OrganizationSubscription{
			OrganizationID: org.ID,
			Plan:           "free",
			Status:         models.SubscriptionStatusInactive,
		}
		return tx.Create(sub).Error
	})
}

func (r *gormOrganizationRepository) GetByID(id uint) (*models.Organization, error) {
	var org models.Organization
	err := r.db.First(&org, id).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *gormOrganizationRepository) GetBySlug(slug string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Where("slug = ?", slug).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *gormOrganizationRepository) AddMember(member *models.OrganizationMember) error {
	return r.db.Create(member).Error
}

func (r *gormOrganizationRepository) GetMember(organizationID, userID uint) (*models.OrganizationMember, error) {
	var member models.OrganizationMember
	err := r.db.Where("organization_id = ? AND user_id = ?", organizationID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}
