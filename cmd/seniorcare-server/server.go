package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/config"
	"github.com/seniorcare/seniorcare/internal/domain/admin"
	"github.com/seniorcare/seniorcare/internal/domain/alert"
	"github.com/seniorcare/seniorcare/internal/domain/appointment"
	"github.com/seniorcare/seniorcare/internal/domain/benefits"
	"github.com/seniorcare/seniorcare/internal/domain/contact"
	"github.com/seniorcare/seniorcare/internal/domain/device"
	"github.com/seniorcare/seniorcare/internal/domain/health"
	"github.com/seniorcare/seniorcare/internal/domain/reminder"
	"github.com/seniorcare/seniorcare/internal/domain/social"
	"github.com/seniorcare/seniorcare/internal/domain/user"
	"github.com/seniorcare/seniorcare/internal/platform/auth"
	"github.com/seniorcare/seniorcare/internal/platform/blobstore"
	"github.com/seniorcare/seniorcare/internal/platform/cache"
	"github.com/seniorcare/seniorcare/internal/platform/db"
	"github.com/seniorcare/seniorcare/internal/platform/metrics"
	"github.com/seniorcare/seniorcare/internal/platform/middleware"
	"github.com/seniorcare/seniorcare/internal/platform/notification"
	"github.com/seniorcare/seniorcare/internal/platform/sandbox"
	"github.com/seniorcare/seniorcare/internal/platform/websocket"
)

// app holds the assembled HTTP server and the background pieces that need
// to be started or released with it.
type app struct {
	echo        *echo.Echo
	issuer      *auth.TokenIssuer
	scheduler   *reminder.Scheduler
	revocations *auth.TokenRevocationStore
	closeCache  func() error
	logger      zerolog.Logger
}

func (a *app) Close() {
	a.revocations.Close()
	if err := a.closeCache(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close cache")
	}
}

func runServer() error {
	// Logger
	logger := newLogger(os.Getenv("ENV"))

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	a, err := newApp(ctx, cfg, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise server")
	}
	defer a.Close()

	// Reminder scheduler
	if n, err := a.scheduler.Recover(ctx); err != nil {
		logger.Error().Err(err).Msg("reminder recovery failed")
	} else if n > 0 {
		logger.Info().Int("count", n).Msg("reminders rescheduled after restart")
	}
	schedCtx, schedCancel := context.WithCancel(ctx)
	defer schedCancel()
	go a.scheduler.Run(schedCtx)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = a.echo.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = a.echo.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	schedCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newApp builds every service and registers every route. It does not start
// the scheduler or the listener.
func newApp(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*app, error) {
	secret, generated, err := resolveJWTSecret(cfg)
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Warn().Msg("JWT_SECRET not set; using a random secret, tokens will not survive a restart")
	}
	issuer := auth.NewTokenIssuer(secret, cfg.JWTIssuer, cfg.JWTTTL())
	revocations := auth.NewTokenRevocationStore(5 * time.Minute)

	kv, closeCache := cache.New(ctx, cfg.RedisURL, logger)

	// Real-time events
	hub := websocket.NewHub(logger)

	// Users
	userRepo := user.NewCachedRepository(user.NewRepoPG(pool), kv, logger)
	userSvc := user.NewService(userRepo, issuer, logger)
	userSvc.SetPublisher(hub)
	userSvc.SetRevocations(revocations)

	// Devices and notifications
	deviceSvc := device.NewService(device.NewRepoPG(pool))

	smsSender, err := newSMSSender(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	pushSender, err := newPushSender(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	notifier := notification.NewManager(smsSender, pushSender, deviceSvc, nil, logger)

	// Domain services
	healthSvc := health.NewService(health.NewRepoPG(pool), logger)
	healthSvc.SetPublisher(hub)

	reminderRepo := reminder.NewRepoPG(pool)
	reminderSvc := reminder.NewService(reminderRepo, logger)
	reminderSvc.SetPublisher(hub)

	apptSvc := appointment.NewService(appointment.NewRepoPG(pool), logger)
	apptSvc.SetPublisher(hub)
	apptSvc.SetReminderScheduler(reminderSvc)

	benefitSvc := benefits.NewService(benefits.NewCachedRepository(benefits.NewRepoPG(pool), logger), userSvc, logger)
	benefitSvc.SetPublisher(hub)
	benefitSvc.SetNotifier(notifier)

	contactSvc := contact.NewService(contact.NewRepoPG(pool), logger)
	contactSvc.SetPublisher(hub)

	socialSvc := social.NewService(social.NewRepoPG(pool), logger)
	socialSvc.SetPublisher(hub)

	alertSvc := alert.NewService(alert.NewRepoPG(pool), userSvc, contactSvc, notifier, logger)
	alertSvc.SetPublisher(hub)

	adminSvc := admin.NewService(admin.Sources{
		Users:        userSvc,
		Appointments: apptSvc,
		Benefits:     benefitSvc,
		Alerts:       alertSvc,
		Reminders:    reminderSvc,
		Devices:      deviceSvc,
	}, logger)

	// Account deletion cascades to everything a user owns.
	userSvc.AddCleaner(user.NewCleaner(db.CollectionHealthRecords, healthSvc.DeleteByUser))
	userSvc.AddCleaner(user.NewCleaner(db.CollectionAppointments, apptSvc.DeleteByUser))
	userSvc.AddCleaner(user.NewCleaner(db.CollectionReminders, reminderSvc.DeleteByUser))
	userSvc.AddCleaner(user.NewCleaner(db.CollectionEmergencyContacts, contactSvc.DeleteByUser))
	userSvc.AddCleaner(user.NewCleaner(db.CollectionClaimedBenefits, benefitSvc.DeleteByUser))
	userSvc.AddCleaner(user.NewCleaner(db.CollectionSocialParticipants, socialSvc.DeleteByUser))
	userSvc.AddCleaner(user.NewCleaner(db.CollectionDeviceTokens, deviceSvc.DeleteByUser))
	userSvc.AddCleaner(user.NewCleaner(db.CollectionEmergencyAlerts, alertSvc.DeleteByUser))

	scheduler := reminder.NewScheduler(reminderRepo, reminder.NewPushDispatcher(notifier, userSvc), cfg.ReminderInterval(), logger)
	scheduler.SetSweeper(apptSvc)
	scheduler.SetPublisher(hub)

	store, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit("1M", "10M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))

	// Auth middleware
	jwtCfg := auth.JWTConfig{
		Secret:      secret,
		Issuer:      cfg.JWTIssuer,
		Skipper:     auth.AuthSkipper,
		Revocations: revocations,
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// API group with rate limiting
	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}
	apiV1 := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler())

	user.NewHandler(userSvc).RegisterRoutes(apiV1)
	health.NewHandler(healthSvc).RegisterRoutes(apiV1)
	appointment.NewHandler(apptSvc).RegisterRoutes(apiV1)
	reminder.NewHandler(reminderSvc).RegisterRoutes(apiV1)
	benefits.NewHandler(benefitSvc).RegisterRoutes(apiV1)
	contact.NewHandler(contactSvc).RegisterRoutes(apiV1)
	social.NewHandler(socialSvc).RegisterRoutes(apiV1)
	device.NewHandler(deviceSvc).RegisterRoutes(apiV1)
	alert.NewHandler(alertSvc).RegisterRoutes(apiV1)
	admin.NewHandler(adminSvc).RegisterRoutes(apiV1)
	notification.NewNotificationHandler(notifier).RegisterRoutes(apiV1)
	blobstore.NewBlobHandler(store).RegisterRoutes(apiV1)
	websocket.NewWebSocketHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	if cfg.IsDev() {
		sandboxGroup := apiV1.Group("/sandbox", auth.RequireRole(auth.RoleAdmin))
		sandbox.NewSeedHandler(benefitSvc, logger).RegisterRoutes(sandboxGroup)
	}

	return &app{
		echo:        e,
		issuer:      issuer,
		scheduler:   scheduler,
		revocations: revocations,
		closeCache:  closeCache,
		logger:      logger,
	}, nil
}

// resolveJWTSecret returns the configured signing secret. In development an
// unset secret is replaced by a random one and generated is true.
func resolveJWTSecret(cfg *config.Config) (secret []byte, generated bool, err error) {
	if cfg.JWTSecret != "" {
		return []byte(cfg.JWTSecret), false, nil
	}
	if !cfg.IsDev() {
		return nil, false, fmt.Errorf("JWT_SECRET is required when ENV=%q", cfg.Env)
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("failed to generate random JWT secret: %w", err)
	}
	return []byte(hex.EncodeToString(key)), true, nil
}

func newSMSSender(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (notification.SMSSender, error) {
	switch cfg.SMSProvider {
	case "semaphore":
		return notification.NewSemaphoreSender(cfg.SemaphoreAPIKey, cfg.SemaphoreSender, cfg.SemaphoreURL), nil
	case "sns":
		s, err := notification.NewSNSSender(ctx, cfg.AWSRegion, "SeniorCare")
		if err != nil {
			return nil, fmt.Errorf("create sns sender: %w", err)
		}
		return s, nil
	case "log", "":
		return notification.NewLogSMSSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown SMS provider %q", cfg.SMSProvider)
	}
}

func newPushSender(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (notification.PushSender, error) {
	if cfg.FCMCredentials == "" {
		return notification.NewLogPushSender(logger), nil
	}
	s, err := notification.NewFCMSender(ctx, cfg.FCMCredentials)
	if err != nil {
		return nil, fmt.Errorf("create fcm sender: %w", err)
	}
	return s, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blobstore.BlobStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		s, err := blobstore.NewS3BlobStore(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Endpoint)
		if err != nil {
			return nil, fmt.Errorf("create s3 blob store: %w", err)
		}
		return s, nil
	case "memory", "":
		return blobstore.NewInMemoryBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
