package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authapp "github.com/postrack/backend/internal/application/auth"
	ingestapp "github.com/postrack/backend/internal/application/ingest"
	ledgerapp "github.com/postrack/backend/internal/application/ledger"
	reconcileapp "github.com/postrack/backend/internal/application/reconcile"
	terminalapp "github.com/postrack/backend/internal/application/terminal"
	"github.com/postrack/backend/internal/domain/shared"
	"github.com/postrack/backend/internal/infrastructure/auth"
	"github.com/postrack/backend/internal/infrastructure/cache"
	"github.com/postrack/backend/internal/infrastructure/config"
	"github.com/postrack/backend/internal/infrastructure/event"
	"github.com/postrack/backend/internal/infrastructure/feed"
	"github.com/postrack/backend/internal/infrastructure/logger"
	"github.com/postrack/backend/internal/infrastructure/persistence"
	"github.com/postrack/backend/internal/infrastructure/scheduler"
	"github.com/postrack/backend/internal/infrastructure/storage"
	"github.com/postrack/backend/internal/infrastructure/telemetry"
	"github.com/postrack/backend/internal/interfaces/http/handler"
	"github.com/postrack/backend/internal/interfaces/http/middleware"
	"github.com/postrack/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/postrack/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// version is stamped at build time via -ldflags.
var version = "1.0.0"

//	@title			POSTrack API
//	@version		1.0
//	@description	Payment terminal fleet tracking and settlement reconciliation backend

//	@contact.name	API Support
//	@contact.url	https://github.com/postrack/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting POSTrack backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry providers. Each is a no-op when telemetry is disabled, so
	// the wiring below stays unconditional.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	// Tee zap output into the OTLP log pipeline when it is up
	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore, zap.AddCaller())
		log.Info("Log export to OTLP collector enabled")
	}

	// Continuous profiling (Pyroscope); the profiler starts on construction
	profilerCfg := telemetry.DefaultProfilerConfig(cfg.App.Name, cfg.Telemetry.ProfilingServer)
	profilerCfg.Enabled = cfg.Telemetry.ProfilingEnabled
	profiler, err := telemetry.NewProfiler(profilerCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Query tracing (otelgorm + slow query events)
	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         "postgresql",
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Query and pool metrics
	var dbMetrics *telemetry.DBMetrics
	if meterProvider.IsEnabled() {
		dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
		dbMetricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
		dbMetrics, err = telemetry.NewDBMetrics(meterProvider.Meter("postrack.db"), dbMetricsCfg, log)
		if err != nil {
			log.Fatal("Failed to initialize database metrics", zap.Error(err))
		}
		if sqlDB, err := db.DB.DB(); err == nil {
			dbMetrics.SetSQLDB(sqlDB)
		}
		if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
			log.Warn("Failed to register database metrics plugin", zap.Error(err))
		}
		dbMetrics.StartPoolStatsCollection(ctx)
		defer dbMetrics.Stop()
	}

	// Initialize repositories
	terminalRepo := persistence.NewGormTerminalRepository(db.DB)
	issuanceRepo := persistence.NewGormIssuanceRepository(db.DB)
	assignmentRepo := persistence.NewGormAssignmentRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Initialize event bus and the audit trail handler
	eventBus := event.NewInMemoryEventBus(log)
	auditHandler := event.NewAuditLogHandler(log)
	eventBus.Subscribe(auditHandler)
	log.Info("Event handlers registered",
		zap.Strings("audit_events", auditHandler.EventTypes()),
	)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Initialize application services
	terminalService := terminalapp.NewTerminalService(txScope, terminalRepo, issuanceRepo, eventBus, log)
	reconciliationService := reconcileapp.NewReconciliationService(
		txScope, terminalRepo, issuanceRepo, assignmentRepo, paymentRepo,
		cfg.Recon.UnitPriceValue(), log,
	)
	feedClient := feed.NewClient(&cfg.Feed, log)
	paymentService := ledgerapp.NewPaymentService(paymentRepo, feedClient, log)

	// Upload archive: S3-compatible storage when configured, otherwise a
	// stub that drops files
	var archive ingestapp.ArchiveStore
	if cfg.Storage.Enabled {
		s3Archive, err := storage.NewS3ArchiveStore(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize upload archive", zap.Error(err))
		}
		archive = s3Archive
		log.Info("Upload archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		archive = storage.NewStubArchiveStore(log)
	}
	ingestService := ingestapp.NewIngestService(reconciliationService, paymentService, archive, log)

	// Redis backs the poller single-flight lock and the token blacklist.
	// When it is unreachable the server still comes up on in-process
	// fallbacks, which hold for a single instance.
	var syncLock shared.SyncLock
	var tokenBlacklist auth.TokenBlacklist
	if redisLock, lockErr := cache.NewRedisSyncLock(&cfg.Redis); lockErr != nil {
		log.Warn("Redis unavailable, using in-process lock and token blacklist", zap.Error(lockErr))
		syncLock = cache.NewLocalSyncLock()
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		syncLock = redisLock
		redisBlacklist, blErr := auth.NewRedisTokenBlacklist(&cfg.Redis)
		if blErr != nil {
			log.Warn("Redis token blacklist unavailable, using in-memory fallback", zap.Error(blErr))
			tokenBlacklist = auth.NewInMemoryTokenBlacklist()
		} else {
			tokenBlacklist = redisBlacklist
		}
	}
	defer func() {
		if err := syncLock.Close(); err != nil {
			log.Error("Error closing sync lock", zap.Error(err))
		}
	}()

	// Operator authentication
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := authapp.NewAuthService(cfg.Auth.Username, cfg.Auth.PasswordHash, jwtService, tokenBlacklist, log)

	// Fleet business metrics with periodic gauge collection
	var fleetMetrics *telemetry.FleetMetrics
	if meterProvider.IsEnabled() {
		fleetMetrics, err = telemetry.NewFleetMetrics(telemetry.FleetMetricsConfig{
			Meter:         meterProvider.Meter("postrack.fleet"),
			Logger:        log,
			FleetProvider: telemetry.NewGormFleetMetricsProvider(db.DB),
		})
		if err != nil {
			log.Fatal("Failed to initialize fleet metrics", zap.Error(err))
		}
		fleetMetrics.StartPeriodicCollection(ctx, 0)
		defer fleetMetrics.Stop()
	}

	// Background feed poller; Start is a no-op when disabled, and the
	// system info endpoint reads its stats either way
	feedPoller, err := scheduler.NewFeedPoller(scheduler.FeedPollerConfig{
		Enabled:      cfg.Scheduler.Enabled,
		PollInterval: cfg.Scheduler.PollInterval,
		JobTimeout:   cfg.Scheduler.JobTimeout,
		LockTTL:      cfg.Scheduler.LockTTL,
	}, paymentService, syncLock, fleetMetrics, log)
	if err != nil {
		log.Fatal("Failed to initialize feed poller", zap.Error(err))
	}
	if err := feedPoller.Start(ctx); err != nil {
		log.Fatal("Failed to start feed poller", zap.Error(err))
	}
	defer func() {
		if err := feedPoller.Stop(context.Background()); err != nil {
			log.Error("Error stopping feed poller", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	terminalHandler := handler.NewTerminalHandler(terminalService)
	reconciliationHandler := handler.NewReconciliationHandler(reconciliationService, ingestService)
	paymentHandler := handler.NewPaymentHandler(paymentService, ingestService)
	authHandler := handler.NewAuthHandler(authService)
	systemHandler := handler.NewSystemHandler(db.DB, feedPoller, version)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - otelgin spans + error marking
	// 5. Metrics - HTTP server metrics
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	// 9. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Swagger documentation endpoint
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, middleware.JWTAuthMiddleware(jwtService)),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	// Configure skip paths for public endpoints
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/ping",
			"/api/v1/system/health",
			"/api/v1/system/info",
			"/api/v1/system/ping",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Auth domain; login and refresh get a tighter per-IP limiter against
	// password guessing
	authRoutes := router.NewDomainGroup("auth", "/auth")
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		authRoutes.Use(middleware.RateLimitByKey(authLimiter, func(c *gin.Context) string {
			return "auth:" + c.ClientIP()
		}))
		log.Info("Auth rate limiting enabled",
			zap.Int("requests", cfg.HTTP.AuthRateLimitRequests),
			zap.Duration("window", cfg.HTTP.AuthRateLimitWindow),
		)
	}
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/refresh", authHandler.RefreshToken)
	authRoutes.POST("/logout", authHandler.Logout)

	// Terminal inventory domain
	terminalRoutes := router.NewDomainGroup("terminals", "/terminals")
	terminalRoutes.POST("/import", terminalHandler.Import)
	terminalRoutes.POST("/reset", terminalHandler.Reset)
	terminalRoutes.GET("", terminalHandler.List)
	terminalRoutes.GET("/stats", terminalHandler.Stats)
	terminalRoutes.GET("/:serial", terminalHandler.Get)
	terminalRoutes.POST("/:serial/issue", terminalHandler.Issue)
	terminalRoutes.POST("/:serial/return", terminalHandler.Return)
	terminalRoutes.POST("/:serial/status", terminalHandler.ChangeStatus)

	// Reconciliation domain
	reconciliationRoutes := router.NewDomainGroup("reconciliation", "/reconciliation")
	reconciliationRoutes.POST("/assignments", reconciliationHandler.UploadAssignments)
	reconciliationRoutes.POST("/assignments/csv", reconciliationHandler.UploadAssignmentsCSV)
	reconciliationRoutes.GET("/summaries", reconciliationHandler.Summaries)
	reconciliationRoutes.GET("/issues", reconciliationHandler.Issues)
	reconciliationRoutes.GET("/overview", reconciliationHandler.Overview)

	// Payment ledger domain
	paymentRoutes := router.NewDomainGroup("payments", "/payments")
	paymentRoutes.GET("", paymentHandler.List)
	paymentRoutes.POST("/merge", paymentHandler.Merge)
	paymentRoutes.POST("/merge/csv", paymentHandler.MergeCSV)
	paymentRoutes.POST("/fetch", paymentHandler.Fetch)
	paymentRoutes.DELETE("", paymentHandler.Clear)

	// System domain (liveness, build info; public per JWT skip paths)
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/health", systemHandler.Health)
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Register all domain groups
	r.Register(authRoutes).
		Register(terminalRoutes).
		Register(reconciliationRoutes).
		Register(paymentRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for the root health check endpoint
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
