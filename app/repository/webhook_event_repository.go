package repository

import (
	"errors"

	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrWebhookEventNotFound signals a MarkStatus call against a ledger row that
// was never created - an invariant violation on the caller's side.
var ErrWebhookEventNotFound = errors.New("webhook event not found")

type gormWebhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a webhook event ledger backed by GORM.
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &gormWebhookEventRepository{db: db}
}

func (r *gormWebhookEventRepository) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND event_id = ?", event.Provider, event.EventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormWebhookEventRepository) MarkStatus(provider, eventID, status, errorMessage string, incrementAttempts bool) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": errorMessage,
	}
	if incrementAttempts {
		updates["delivery_attempts"] = gorm.Expr("delivery_attempts + 1")
	}

	tx := r.db.Model(&models.WebhookEvent{}).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrWebhookEventNotFound
	}
	return nil
}

func (r *gormWebhookEventRepository) MarkArchived(provider, eventID string) error {
	tx := r.db.Model(&models.WebhookEvent{}).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Updates(map[string]interface{}{
			"payload_json": "",
			"archived_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrWebhookEventNotFound
	}
	return nil
}

func (r *gormWebhookEventRepository) GetByEventID(provider, eventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.Where("provider = ? AND event_id = ?", provider, eventID).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *gormWebhookEventRepository) ListByStatus(status string, limit int) ([]models.WebhookEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []models.WebhookEvent
	err := r.db.Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
