package repository

import (
	"context"
	"errors"
	"time"

	"github.com/pavra/push-dispatch/internal/domain"
	"github.com/pavra/push-dispatch/internal/provider"
	"gorm.io/gorm"
)

// NotificationRepository is the store access port for dispatch.
type NotificationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	// ClaimForDispatch atomically transitions READY -> DISPATCHING and
	// returns the claimed record. A missed claim (record not READY anymore)
	// returns (nil, nil).
	ClaimForDispatch(ctx context.Context, id string) (*domain.Notification, error)
	// ReleaseClaim returns a DISPATCHING record to READY so a later
	// invocation can retry it.
	ReleaseClaim(ctx context.Context, id string) error
	// RecordOutcome writes the provider outcome and marks the record
	// DISPATCHED.
	RecordOutcome(ctx context.Context, id string, result *provider.Result) error
}

type GormNotificationRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormNotificationRepo(db *gorm.DB) *GormNotificationRepo {
	return &GormNotificationRepo{db: db, now: time.Now}
}

func (r *GormNotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	var model NotificationModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return notificationModelToDomain(&model)
}

func (r *GormNotificationRepo) ClaimForDispatch(ctx context.Context, id string) (*domain.Notification, error) {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND status = ?", id, domain.StatusReady).
		Update("status", domain.StatusDispatching)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		// Distinguish "gone" from "not ready".
		var model NotificationModel
		err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, nil
	}

	var model NotificationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, err
	}
	n, err := notificationModelToDomain(&model)
	if err != nil {
		// The claim succeeded but the record cannot be dispatched as stored;
		// put it back so the failure is not sticky.
		_ = r.ReleaseClaim(ctx, id)
		return nil, err
	}
	return n, nil
}

func (r *GormNotificationRepo) ReleaseClaim(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND status = ?", id, domain.StatusDispatching).
		Update("status", domain.StatusReady)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormNotificationRepo) RecordOutcome(ctx context.Context, id string, result *provider.Result) error {
	if result == nil {
		return errors.New("provider result is required")
	}

	now := r.now().UTC()
	update := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":                   domain.StatusDispatched,
			"provider_notification_id": result.ProviderID,
			"recipients_count":         result.Recipients,
			"successful_deliveries":    result.Recipients,
			"sent_at":                  now,
			"updated_at":               now,
		})
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
