package repository

import (
	"errors"

	"github.com/OrbitDeskHQ/OrbitDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormOrderingCursorRepository struct {
	db *gorm.DB
}

// NewOrderingCursorRepository creates an ordering cursor store backed by GORM.
func NewOrderingCursorRepository(db *gorm.DB) OrderingCursorRepository {
	return &gormOrderingCursorRepository{db: db}
}

func (r *gormOrderingCursorRepository) GetBySubscriptionID(provider, providerSubscriptionID string) (*models.OrderingCursor, error) {
	var cursor models.OrderingCursor
	err := r.db.Where("provider = ? AND provider_subscription_id = ?", provider, providerSubscriptionID).
		First(&cursor).Error
	if err != nil {
		return nil, err
	}
	return &cursor, nil
}

// Advance performs the read-compare-write under a transaction with a
// SELECT ... FOR UPDATE on the cursor row, so two events for the same
// subscription cannot both pass the staleness check against a stale cursor.
func (r *gormOrderingCursorRepository) Advance(next *models.OrderingCursor, shouldAdvance func(current *models.OrderingCursor) bool) (bool, error) {
	advanced := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var current models.OrderingCursor
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("provider = ? AND provider_subscription_id = ?", next.Provider, next.ProviderSubscriptionID).
			First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// First event for this subscription. OnConflict keeps a
			// concurrent creator from failing the whole transaction; the
			// loser simply re-runs against the now-existing row.
			createTx := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "provider"},
					{Name: "provider_subscription_id"},
				},
				DoNothing: true,
			}).Create(next)
			if createTx.Error != nil {
				return createTx.Error
			}
			advanced = createTx.RowsAffected > 0
			return nil
		}
		if err != nil {
			return err
		}

		if !shouldAdvance(&current) {
			return nil
		}

		updates := map[string]interface{}{
			"last_event_id":         next.LastEventID,
			"last_event_type":       next.LastEventType,
			"last_event_created_at": next.LastEventCreatedAt,
		}
		if err := tx.Model(&models.OrderingCursor{}).
			Where("id = ?", current.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		advanced = true
		return nil
	})
	return advanced, err
}
