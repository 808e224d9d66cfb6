package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Status represents the dispatch lifecycle state of a notification.
// Anything other than READY is not dispatchable.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusReady       Status = "READY"
	StatusDispatching Status = "DISPATCHING"
	StatusDispatched  Status = "DISPATCHED"
	StatusCanceled    Status = "CANCELED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusReady, StatusDispatching, StatusDispatched, StatusCanceled:
		return true
	}
	return false
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// TargetType declares who a notification is intended for.
type TargetType string

const (
	TargetSingle TargetType = "SINGLE"
	TargetCustom TargetType = "CUSTOM"
	TargetRole   TargetType = "ROLE"
	TargetAll    TargetType = "ALL"
)

func (t TargetType) String() string { return string(t) }

func (t TargetType) IsValid() bool {
	switch t {
	case TargetSingle, TargetCustom, TargetRole, TargetAll:
		return true
	}
	return false
}

func ParseTargetTypeFromString(s string) (TargetType, error) {
	tt := TargetType(strings.ToUpper(strings.TrimSpace(s)))
	if !tt.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTargetType, s)
	}
	return tt, nil
}

// Notification is the persisted record this service dispatches. The record is
// owned by the store; dispatch only reads it and writes the outcome fields.
type Notification struct {
	ID            string         `gorm:"type:uuid;primaryKey"`
	Title         string         `gorm:"type:varchar(255);not null"`
	Message       string         `gorm:"type:text;not null"`
	Type          string         `gorm:"type:varchar(50)"`
	Status        Status         `gorm:"type:varchar(20);not null"`
	TargetType    TargetType     `gorm:"type:varchar(10);not null"`
	TargetUserIDs pq.StringArray `gorm:"type:text[]"`
	TargetRoles   pq.StringArray `gorm:"type:text[]"`
	Data          map[string]any `gorm:"serializer:json;type:jsonb"`

	// Optional presentation fields, forwarded to the provider only when set.
	Sound    *string `gorm:"type:varchar(100)"`
	Category *string `gorm:"type:varchar(100)"`
	Priority *int    `gorm:"type:int"`

	// Outcome fields, written back after a successful provider call.
	ProviderNotificationID *string `gorm:"type:varchar(255)"`
	RecipientsCount        int     `gorm:"not null;default:0"`
	SuccessfulDeliveries   int     `gorm:"not null;default:0"`
	SentAt                 *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (n *Notification) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}
	if n.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if n.Message == "" {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	if !n.TargetType.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownTargetType, n.TargetType)
	}
	return nil
}

// Dispatchable reports whether the record is in the ready-to-send state.
func (n *Notification) Dispatchable() bool {
	return n.Status == StatusReady
}
