package queue

import (
	"fmt"
	"strings"
)

// DispatchMessage is the broker payload requesting one dispatch.
type DispatchMessage struct {
	NotificationID string `json:"notificationId"`
	CorrelationID  string `json:"correlationId,omitempty"`
}

func (m DispatchMessage) Validate() error {
	if strings.TrimSpace(m.NotificationID) == "" {
		return fmt.Errorf("notificationId is required")
	}
	return nil
}
