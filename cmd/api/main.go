package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/pavra/push-dispatch/internal/audience"
	"github.com/pavra/push-dispatch/internal/config"
	"github.com/pavra/push-dispatch/internal/directory"
	"github.com/pavra/push-dispatch/internal/handler"
	"github.com/pavra/push-dispatch/internal/infra/postgresql"
	"github.com/pavra/push-dispatch/internal/infra/postgresql/migrations"
	infraredis "github.com/pavra/push-dispatch/internal/infra/redis"
	"github.com/pavra/push-dispatch/internal/observability"
	"github.com/pavra/push-dispatch/internal/provider"
	"github.com/pavra/push-dispatch/internal/queue"
	"github.com/pavra/push-dispatch/internal/repository"
	"github.com/pavra/push-dispatch/internal/service"
	"github.com/pavra/push-dispatch/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	notificationRepo := repository.NewGormNotificationRepo(db)

	var userDirectory audience.Directory
	if cfg.DirectoryURL != "" {
		restDirectory, err := directory.NewRESTDirectory(cfg.DirectoryURL)
		if err != nil {
			logger.Fatal("directory initialization failed", zap.Error(err))
		}
		userDirectory = restDirectory
	} else {
		userDirectory = repository.NewGormProfileRepo(db)
	}
	resolver := audience.NewResolver(userDirectory, logger)

	pushProvider, err := provider.NewOneSignalProvider(cfg.OneSignalAPIURL, cfg.OneSignalAPIKey)
	if err != nil {
		logger.Fatal("provider initialization failed", zap.Error(err))
	}

	recorder, err := service.NewDeliveryRecorder(notificationRepo, logger)
	if err != nil {
		logger.Fatal("recorder initialization failed", zap.Error(err))
	}

	dispatchService, err := service.NewDispatchService(
		notificationRepo,
		resolver,
		pushProvider,
		recorder,
		cfg.OneSignalAppID,
		logger,
	)
	if err != nil {
		logger.Fatal("dispatch service initialization failed", zap.Error(err))
	}
	dispatchService.SetRateLimiter(limiter)

	metrics := observability.NewMetrics()
	dispatchService.SetMetrics(metrics)

	var publisher queue.Publisher
	var worker *service.DispatchWorker
	if cfg.AsyncEnabled() {
		mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			logger.Fatal("rabbitmq initialization failed", zap.Error(err))
		}
		defer mq.Close()

		publisher = queue.NewRabbitMQPublisher(mq)
		consumer := queue.NewRabbitMQConsumer(mq, cfg.WorkerConcurrency, logger)

		worker, err = service.NewDispatchWorker(dispatchService, consumer, cfg.WorkerConcurrency, logger)
		if err != nil {
			logger.Fatal("dispatch worker initialization failed", zap.Error(err))
		}
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterDispatchRoutes(app, dispatchService, publisher); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("push-dispatch api started",
			zap.Int("port", cfg.APIPort),
			zap.Bool("async", cfg.AsyncEnabled()),
		)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if worker != nil {
		g.Go(func() error {
			return worker.Start(gctx)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("service terminated", zap.Error(err))
	}

	logger.Info("push-dispatch api stopped")
}
