package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pavra/push-dispatch/internal/domain"
	"github.com/pavra/push-dispatch/internal/observability"
	"github.com/pavra/push-dispatch/internal/provider"
	"github.com/pavra/push-dispatch/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// Dispatcher is the dispatch entry point consumed by the worker.
type Dispatcher interface {
	Dispatch(ctx context.Context, notificationID string) (*DispatchResult, error)
}

// DispatchWorker consumes queue-triggered dispatch requests and runs them
// through the same pipeline as the HTTP entry point.
type DispatchWorker struct {
	dispatcher  Dispatcher
	consumer    queue.Consumer
	logger      *zap.Logger
	concurrency int
}

func NewDispatchWorker(
	dispatcher Dispatcher,
	consumer queue.Consumer,
	concurrency int,
	logger *zap.Logger,
) (*DispatchWorker, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchWorker{
		dispatcher:  dispatcher,
		consumer:    consumer,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

// Start consumes the dispatch queue until context cancellation.
func (w *DispatchWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("dispatch worker started", zap.Int("workerId", workerID))

			err := w.consumer.Consume(groupCtx, queue.DispatchQueue, w.processMessage)
			if err != nil {
				w.logger.Error("dispatch worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("dispatch worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (w *DispatchWorker) processMessage(ctx context.Context, msg queue.DispatchMessage) error {
	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}
	logger := observability.WithContextLogger(w.logger, ctx)

	result, err := w.dispatcher.Dispatch(ctx, msg.NotificationID)
	if err != nil {
		// Permanent failures are dead-lettered; infrastructure failures are
		// requeued.
		if isPermanentDispatchError(err) {
			logger.Error("dispatch failed permanently",
				zap.String("notificationId", msg.NotificationID),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %w", queue.ErrPermanent, err)
		}
		return err
	}

	if result.Skipped {
		logger.Info("queued dispatch skipped",
			zap.String("notificationId", msg.NotificationID),
			zap.String("reason", result.SkipReason),
		)
	}

	return nil
}

func isPermanentDispatchError(err error) bool {
	if err == nil {
		return false
	}

	for _, sentinel := range []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrUnknownTargetType,
		domain.ErrEmptyAudience,
		domain.ErrMissingCredentials,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	var providerErr *provider.ProviderError
	if errors.As(err, &providerErr) {
		// A rejected payload will not succeed on redelivery; transport-level
		// failures (Cause set, no status) might.
		return providerErr.StatusCode > 0
	}

	return false
}
