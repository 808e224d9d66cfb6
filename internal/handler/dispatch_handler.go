package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pavra/push-dispatch/internal/domain"
	"github.com/pavra/push-dispatch/internal/provider"
	"github.com/pavra/push-dispatch/internal/queue"
	"github.com/pavra/push-dispatch/internal/service"
)

// DispatchService is the dispatch entry point consumed by the HTTP layer.
type DispatchService interface {
	Dispatch(ctx context.Context, notificationID string) (*service.DispatchResult, error)
}

type dispatchRequest struct {
	NotificationID string `json:"notificationId"`
}

type dispatchResponse struct {
	Success        bool   `json:"success"`
	NotificationID string `json:"notificationId"`
	ProviderID     string `json:"providerId,omitempty"`
	Recipients     *int   `json:"recipients,omitempty"`
	Skipped        bool   `json:"skipped,omitempty"`
	Message        string `json:"message,omitempty"`
}

type asyncDispatchResponse struct {
	Success        bool   `json:"success"`
	NotificationID string `json:"notificationId"`
	Queued         bool   `json:"queued"`
	CorrelationID  string `json:"correlationId"`
}

type DispatchHandler struct {
	service   DispatchService
	publisher queue.Publisher
}

func NewDispatchHandler(service DispatchService, publisher queue.Publisher) (*DispatchHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	return &DispatchHandler{
		service:   service,
		publisher: publisher,
	}, nil
}

// RegisterDispatchRoutes mounts the dispatch endpoints. The async route is
// only registered when a queue publisher is configured.
func RegisterDispatchRoutes(router fiber.Router, service DispatchService, publisher queue.Publisher) error {
	h, err := NewDispatchHandler(service, publisher)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notifications/dispatch", h.Dispatch)
	if publisher != nil {
		v1.Post("/notifications/dispatch/async", h.DispatchAsync)
	}

	return nil
}

func (h *DispatchHandler) Dispatch(c *fiber.Ctx) error {
	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Dispatch(c.Context(), req.NotificationID)
	if err != nil {
		return toHTTPError(err)
	}

	resp := dispatchResponse{
		Success:        true,
		NotificationID: result.NotificationID,
	}
	if result.Skipped {
		resp.Skipped = true
		resp.Message = result.SkipReason
	} else {
		resp.ProviderID = result.ProviderID
		recipients := result.Recipients
		resp.Recipients = &recipients
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *DispatchHandler) DispatchAsync(c *fiber.Ctx) error {
	if h.publisher == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "async dispatch is not configured")
	}

	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	notificationID := strings.TrimSpace(req.NotificationID)
	if notificationID == "" {
		return toHTTPError(fmt.Errorf("%w: notificationId is required", domain.ErrValidation))
	}

	msg := queue.DispatchMessage{
		NotificationID: notificationID,
		CorrelationID:  requestCorrelationID(c),
	}
	if err := h.publisher.Publish(c.Context(), queue.DispatchQueue, msg); err != nil {
		return fmt.Errorf("failed to enqueue dispatch: %w", err)
	}

	return c.Status(fiber.StatusAccepted).JSON(asyncDispatchResponse{
		Success:        true,
		NotificationID: notificationID,
		Queued:         true,
		CorrelationID:  msg.CorrelationID,
	})
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	return uuid.NewString()
}

func toHTTPError(err error) error {
	var providerErr *provider.ProviderError
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnknownTargetType), errors.Is(err, domain.ErrEmptyAudience):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrAudienceLookup):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrMissingCredentials):
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	case errors.As(err, &providerErr):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return err
	}
}
