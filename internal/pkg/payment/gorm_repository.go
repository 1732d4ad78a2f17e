package payment

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/getyoursite/getyoursite/app/models"
)

type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repository backed by GORM (MySQL).
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, tx *models.PaymentTransaction) error {
	err := r.db.WithContext(ctx).Create(tx).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errDuplicateSession(tx.SessionID)
	}
	return err
}

func (r *GormRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *GormRepository) ApplyUpdate(ctx context.Context, sessionID string, u Update, g Guard) (bool, error) {
	res := conditionalUpdate(r.db.WithContext(ctx), sessionID, u, g)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.PaymentWebhookEvent) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *GormRepository) MarkWebhookProcessed(ctx context.Context, provider, providerEventID, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.PaymentWebhookEvent{}).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		Updates(updates).Error
}

// conditionalUpdate is UPDATE ... WHERE session_id = ? AND payment_status NOT IN (?).
func conditionalUpdate(db *gorm.DB, sessionID string, u Update, g Guard) *gorm.DB {
	q := db.Model(&models.PaymentTransaction{}).Where("session_id = ?", sessionID)
	if len(g.BlockedStatuses) > 0 {
		q = q.Where("payment_status NOT IN ?", g.BlockedStatuses)
	}
	return q.Updates(updateColumns(u))
}
