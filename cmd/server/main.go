// Package main runs the event management HTTP API with realtime notification
// delivery and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/eventia/backend/config"
	"github.com/eventia/backend/internal/auth"
	"github.com/eventia/backend/internal/events"
	"github.com/eventia/backend/internal/notifications"
	"github.com/eventia/backend/internal/realtime"
	"github.com/eventia/backend/internal/registrations"
	"github.com/eventia/backend/internal/seed"
	"github.com/eventia/backend/internal/worker"
	"github.com/eventia/backend/pkg/database"
	"github.com/eventia/backend/pkg/queue"
	"github.com/eventia/backend/pkg/redis"
	"github.com/eventia/backend/pkg/response"
	"github.com/eventia/backend/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis is optional: without it joins still commit their notification,
	// there is just no push to websocket clients.
	var (
		rdb        *redis.Client
		notifier   registrations.Notifier
		subscriber realtime.Subscriber
		dispatcher *worker.NotificationDispatcher
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()

		jobQueue := queue.NewQueue(rdb.Client, logger)
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		notifier = jobQueue
		subscriber = pubsub
		if cfg.Redis.DispatchInServer {
			dispatcher = worker.NewNotificationDispatcher(jobQueue, pubsub, logger)
		}
	} else {
		logger.Warn("REDIS_ADDR not set, realtime notifications disabled")
	}
	hub := realtime.NewHub(logger, subscriber)
	defer hub.Close()

	var images events.ImageStore
	if cfg.AWS.ImagesBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ImagesBucket:    cfg.AWS.ImagesBucket,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled, images stay inline", zap.Error(err))
		} else {
			images = storage.NewImageOffloader(s3Client, logger)
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Identity
	authService := auth.NewService(auth.NewRepository(pool), nil)
	authHandler := auth.NewHandler(authService, jwtService, logger)

	// Notifications outbox
	notificationService := notifications.NewService(notifications.NewRepository(pool))
	notificationHandler := notifications.NewHandler(notificationService, logger)

	// Catalog
	eventService := events.NewService(events.NewRepository(pool), images, logger)
	eventHandler := events.NewHandler(eventService, logger)

	// Ledger
	registrationService := registrations.NewService(registrations.NewRepository(pool, notificationService), notifier, logger)
	registrationHandler := registrations.NewHandler(registrationService, logger)

	if cfg.Seed.OnStart {
		seeded, err := seed.NewSeeder(pool, authService, logger).Run(ctx)
		if err != nil {
			logger.Fatal("seed", zap.Error(err))
		}
		logger.Info("seed checked", zap.Bool("seeded", seeded))
	}

	validate := func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID, nil
	}
	upgrader := realtime.NewUpgrader(cfg.Server.AllowedOrigins())

	router := newRouter(routerConfig{
		AllowedOrigins:     cfg.Server.AllowedOrigins(),
		BodyLimit:          cfg.Server.BodyLimitBytes(),
		RequireToken:       cfg.Auth.RequireToken,
		LoginRatePerMinute: cfg.Auth.LoginRatePerMinute,
	}, handlers{
		Auth:          authHandler,
		Events:        eventHandler,
		Registrations: registrationHandler,
		Notifications: notificationHandler,
		WS:            realtime.ServeWs(hub, upgrader, validate, logger),
		Health:        healthHandler(pool, rdb),
	}, jwtService, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if dispatcher != nil {
		g.Go(func() error { return dispatcher.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler reports 503 when the database (or Redis, when configured) is down.
func healthHandler(db pinger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "database": "ok"}
		healthy := true
		if err := db.Ping(ctx); err != nil {
			status["database"] = "down"
			healthy = false
		}
		if rdb != nil {
			status["redis"] = "ok"
			if err := rdb.Healthy(ctx); err != nil {
				status["redis"] = "down"
				healthy = false
			}
		}
		if !healthy {
			status["status"] = "degraded"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		response.OK(c, status)
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
