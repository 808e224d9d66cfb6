package repository

import (
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pavra/push-dispatch/internal/domain"
)

// NotificationModel is the persistence model for the notifications table.
// Status and target type are stored as raw strings and parsed into domain
// enums on read, so a row written with unexpected values surfaces as a
// deserialization error instead of leaking through the pipeline.
type NotificationModel struct {
	ID            string         `gorm:"type:uuid;primaryKey"`
	Title         string         `gorm:"type:varchar(255);not null"`
	Message       string         `gorm:"type:text;not null"`
	Type          string         `gorm:"type:varchar(50)"`
	Status        string         `gorm:"type:varchar(20);not null"`
	TargetType    string         `gorm:"type:varchar(10);not null"`
	TargetUserIDs pq.StringArray `gorm:"type:text[]"`
	TargetRoles   pq.StringArray `gorm:"type:text[]"`
	Data          map[string]any `gorm:"serializer:json;type:jsonb"`

	Sound    *string `gorm:"type:varchar(100)"`
	Category *string `gorm:"type:varchar(100)"`
	Priority *int    `gorm:"type:int"`

	ProviderNotificationID *string `gorm:"type:varchar(255)"`
	RecipientsCount        int     `gorm:"not null;default:0"`
	SuccessfulDeliveries   int     `gorm:"not null;default:0"`
	SentAt                 *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (NotificationModel) TableName() string {
	return "notifications"
}

// ProfileModel is the persistence model for the user directory table.
type ProfileModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Role      string `gorm:"type:varchar(50);not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProfileModel) TableName() string {
	return "profiles"
}

func notificationModelToDomain(m *NotificationModel) (*domain.Notification, error) {
	if m == nil {
		return nil, nil
	}

	status, err := domain.ParseStatusFromString(m.Status)
	if err != nil {
		return nil, fmt.Errorf("notification %s: %w", m.ID, err)
	}
	targetType, err := domain.ParseTargetTypeFromString(m.TargetType)
	if err != nil {
		return nil, fmt.Errorf("notification %s: %w", m.ID, err)
	}

	return &domain.Notification{
		ID:                     m.ID,
		Title:                  m.Title,
		Message:                m.Message,
		Type:                   m.Type,
		Status:                 status,
		TargetType:             targetType,
		TargetUserIDs:          m.TargetUserIDs,
		TargetRoles:            m.TargetRoles,
		Data:                   m.Data,
		Sound:                  m.Sound,
		Category:               m.Category,
		Priority:               m.Priority,
		ProviderNotificationID: m.ProviderNotificationID,
		RecipientsCount:        m.RecipientsCount,
		SuccessfulDeliveries:   m.SuccessfulDeliveries,
		SentAt:                 m.SentAt,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}, nil
}
