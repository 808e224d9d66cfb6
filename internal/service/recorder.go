package service

import (
	"context"
	"fmt"

	"github.com/pavra/push-dispatch/internal/provider"
	"github.com/pavra/push-dispatch/internal/repository"
	"go.uber.org/zap"
)

// DeliveryRecorder writes provider outcomes back to the notification store.
type DeliveryRecorder struct {
	notifications repository.NotificationRepository
	logger        *zap.Logger
}

func NewDeliveryRecorder(notifications repository.NotificationRepository, logger *zap.Logger) (*DeliveryRecorder, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryRecorder{
		notifications: notifications,
		logger:        logger,
	}, nil
}

// Record persists the provider id, recipient counts, and timestamps. Errors
// are returned for the caller to log; they never abort a dispatch.
func (r *DeliveryRecorder) Record(ctx context.Context, notificationID string, result *provider.Result) error {
	if result == nil {
		return fmt.Errorf("provider result is required")
	}

	if err := r.notifications.RecordOutcome(ctx, notificationID, result); err != nil {
		return fmt.Errorf("failed to record dispatch outcome: %w", err)
	}

	r.logger.Debug("dispatch outcome recorded",
		zap.String("notificationId", notificationID),
		zap.String("providerId", result.ProviderID),
		zap.Int("recipients", result.Recipients),
	)
	return nil
}
