package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pavra/push-dispatch/internal/domain"
	"github.com/pavra/push-dispatch/internal/observability"
	"github.com/pavra/push-dispatch/internal/provider"
	"github.com/pavra/push-dispatch/internal/ratelimit"
	"github.com/pavra/push-dispatch/internal/repository"
	"go.uber.org/zap"
)

const providerChannel = "push"

// AudienceResolver maps a notification to its delivery directive.
type AudienceResolver interface {
	Resolve(ctx context.Context, n *domain.Notification) (domain.TargetDirective, error)
}

// DispatchResult is the outcome of one dispatch invocation.
type DispatchResult struct {
	NotificationID string
	Skipped        bool
	SkipReason     string
	ProviderID     string
	Recipients     int
}

// DispatchService sequences the dispatch pipeline: claim, resolve, build,
// send, record. Each invocation is strictly linear.
type DispatchService struct {
	notifications repository.NotificationRepository
	resolver      AudienceResolver
	provider      provider.Provider
	recorder      *DeliveryRecorder
	limiter       ratelimit.RateLimiter
	appID         string
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewDispatchService(
	notifications repository.NotificationRepository,
	resolver AudienceResolver,
	pushProvider provider.Provider,
	recorder *DeliveryRecorder,
	appID string,
	logger *zap.Logger,
) (*DispatchService, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("audience resolver is required")
	}
	if pushProvider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("delivery recorder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchService{
		notifications: notifications,
		resolver:      resolver,
		provider:      pushProvider,
		recorder:      recorder,
		appID:         appID,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// SetRateLimiter applies a provider-call throttle. Optional.
func (s *DispatchService) SetRateLimiter(limiter ratelimit.RateLimiter) {
	if s == nil {
		return
	}
	s.limiter = limiter
}

func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Dispatch sends one ready notification to the push provider and records the
// outcome. A record that is not in the ready state yields a successful no-op
// result; the claim transition makes concurrent invocations for the same id
// collapse into exactly one send.
func (s *DispatchService) Dispatch(ctx context.Context, notificationID string) (*DispatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return nil, fmt.Errorf("%w: notificationId is required", domain.ErrValidation)
	}

	claimed, err := s.notifications.ClaimForDispatch(ctx, notificationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: notification %s", domain.ErrNotFound, notificationID)
		}
		return nil, fmt.Errorf("failed to claim notification for dispatch: %w", err)
	}

	// Nil means the record was not in the ready state; another workflow owns
	// it or a concurrent invocation already claimed it.
	if claimed == nil {
		reason := s.skipReason(ctx, notificationID)
		s.logger.Info("dispatch skipped",
			zap.String("notificationId", notificationID),
			zap.String("reason", reason),
		)
		if s.metrics != nil {
			s.metrics.IncDispatch("skipped")
		}
		return &DispatchResult{
			NotificationID: notificationID,
			Skipped:        true,
			SkipReason:     reason,
		}, nil
	}

	directive, err := s.resolver.Resolve(ctx, claimed)
	if err != nil {
		s.releaseClaim(ctx, notificationID)
		if s.metrics != nil {
			s.metrics.IncDispatch("failed")
		}
		return nil, err
	}

	payload := provider.BuildPayload(s.appID, claimed, directive)

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, providerChannel); err != nil {
			s.releaseClaim(ctx, notificationID)
			if s.metrics != nil {
				s.metrics.IncDispatch("failed")
			}
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	sendStart := s.now()
	result, err := s.provider.Send(ctx, payload)
	if s.metrics != nil {
		s.metrics.ObserveProviderSendDuration(s.now().Sub(sendStart))
	}
	if err != nil {
		s.releaseClaim(ctx, notificationID)
		if s.metrics != nil {
			s.metrics.IncDispatch("failed")
		}
		return nil, err
	}

	s.logger.Info("notification dispatched",
		zap.String("notificationId", claimed.ID),
		zap.String("providerId", result.ProviderID),
		zap.Int("recipients", result.Recipients),
		zap.String("targetType", claimed.TargetType.String()),
	)

	// The push already happened; a bookkeeping failure must not fail the
	// operation.
	if err := s.recorder.Record(ctx, claimed.ID, result); err != nil {
		s.logger.Warn("failed to record dispatch outcome, push already delivered",
			zap.String("notificationId", claimed.ID),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.IncPersistenceWarning()
		}
	}

	if s.metrics != nil {
		s.metrics.IncDispatch("sent")
		s.metrics.ObserveRecipients(result.Recipients)
	}

	return &DispatchResult{
		NotificationID: claimed.ID,
		ProviderID:     result.ProviderID,
		Recipients:     result.Recipients,
	}, nil
}

func (s *DispatchService) skipReason(ctx context.Context, notificationID string) string {
	current, err := s.notifications.GetByID(ctx, notificationID)
	// Dispatchable here means the record raced back to READY after the missed
	// claim; its status would be a misleading reason to report.
	if err != nil || current == nil || current.Dispatchable() {
		return "notification is not in a dispatchable state"
	}
	return fmt.Sprintf("notification status is %s, skipping send", current.Status)
}

func (s *DispatchService) releaseClaim(ctx context.Context, notificationID string) {
	if err := s.notifications.ReleaseClaim(ctx, notificationID); err != nil {
		s.logger.Warn("failed to release dispatch claim",
			zap.String("notificationId", notificationID),
			zap.Error(err),
		)
	}
}
