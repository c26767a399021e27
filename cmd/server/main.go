package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appsync "github.com/promosync/backend/internal/application/sync"
	domainsync "github.com/promosync/backend/internal/domain/sync"
	"github.com/promosync/backend/internal/infrastructure/auth"
	"github.com/promosync/backend/internal/infrastructure/cache"
	"github.com/promosync/backend/internal/infrastructure/config"
	"github.com/promosync/backend/internal/infrastructure/gateway"
	"github.com/promosync/backend/internal/infrastructure/logger"
	"github.com/promosync/backend/internal/infrastructure/notification"
	"github.com/promosync/backend/internal/infrastructure/persistence"
	"github.com/promosync/backend/internal/infrastructure/scheduler"
	"github.com/promosync/backend/internal/interfaces/http/handler"
	"github.com/promosync/backend/internal/interfaces/http/middleware"
	"github.com/promosync/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting PromoSync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB)
	storeRepo := persistence.NewGormStoreRepository(db.DB)
	configurationRepo := persistence.NewGormSyncConfigurationRepository(db.DB)
	executionRepo := persistence.NewGormExecutionRepository(db.DB)
	channelRepo := persistence.NewGormNotificationChannelRepository(db.DB)

	// Run lock: Redis when reachable, in-memory otherwise
	runLock, err := cache.NewRunLockFactory(cfg.Redis, cache.WithLogger(log)).CreateLock()
	if err != nil {
		log.Fatal("Failed to create run lock", zap.Error(err))
	}

	// Gateways and notification channels
	gatewayFactory := gateway.NewFactory(cfg.Sync, log)
	dispatcher := notification.NewDispatcher(
		channelRepo,
		notification.DefaultSenders(notification.NewEmailSender(cfg.SMTP)),
		log.Named("notification"),
	)

	// Application services
	orchestrator := appsync.NewOrchestrator(
		appsync.OrchestratorConfig{
			MaxWorkers: cfg.Sync.MaxWorkers,
			LockMargin: cfg.Sync.LockMargin,
			Thresholds: domainsync.ComparatorThresholds{
				Normal:   cfg.Sync.NormalThreshold,
				Critical: cfg.Sync.CriticalThreshold,
			},
		},
		configurationRepo,
		integrationRepo,
		storeRepo,
		executionRepo,
		gatewayFactory,
		runLock,
		dispatcher,
		log.Named("orchestrator"),
	)
	executionService := appsync.NewExecutionService(executionRepo, orchestrator, log.Named("executions"))

	// Executions left RUNNING by a previous process are finalized as FAILED
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := executionService.RecoverInterrupted(startupCtx); err != nil {
		log.Error("Failed to recover interrupted executions", zap.Error(err))
	}
	cancelStartup()

	// Cron scheduler for configurations with a schedule
	syncScheduler := scheduler.NewSyncScheduler(
		scheduler.SyncSchedulerConfig{
			Enabled:        cfg.Scheduler.Enabled,
			ReloadInterval: cfg.Scheduler.ReloadInterval,
		},
		configurationRepo,
		orchestrator,
		log.Named("scheduler"),
	)
	if cfg.Scheduler.Enabled {
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer syncScheduler.Stop()
		log.Info("Scheduler started",
			zap.Duration("reload_interval", cfg.Scheduler.ReloadInterval),
		)
	} else {
		log.Info("Scheduler disabled")
	}

	// HTTP engine and middleware
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Health stays outside the authenticated group
	systemHandler := handler.NewSystemHandler(db)
	engine.GET("/health", systemHandler.Health)

	// Authenticated API surface
	tokenService := auth.NewTokenService(cfg.JWT)
	syncHandler := handler.NewSyncHandler(orchestrator, executionService, log.Named("http"))
	router.NewRouter(engine,
		router.WithMiddleware(middleware.JWTAuthMiddleware(tokenService)),
	).
		Register(syncHandler).
		Register(systemHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
