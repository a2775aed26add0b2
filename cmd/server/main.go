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

	formsapp "github.com/formbox/backend/internal/application/forms"
	"github.com/formbox/backend/internal/infrastructure/cache"
	"github.com/formbox/backend/internal/infrastructure/config"
	"github.com/formbox/backend/internal/infrastructure/logger"
	"github.com/formbox/backend/internal/infrastructure/persistence"
	"github.com/formbox/backend/internal/infrastructure/persistence/models"
	"github.com/formbox/backend/internal/interfaces/http/handler"
	"github.com/formbox/backend/internal/interfaces/http/middleware"
	"github.com/formbox/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: time.RFC3339,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting FormBox backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("driver", cfg.Database.Driver),
	)

	// Connect to the database with the zap-backed GORM logger
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLogger := logger.NewGormLogger(log, gormLogLevel,
		logger.WithSlowThreshold(200*time.Millisecond),
	)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Postgres deployments run versioned migrations through the migrate CLI.
	// SQLite is for local development only, so the schema table is created
	// in place.
	if db.Driver == "sqlite" {
		if err := db.DB.AutoMigrate(&models.FormSchemaModel{}); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}

	// Analytics cache: Redis when enabled, in-process otherwise
	analyticsCache, err := cache.NewAnalyticsCacheFactory(cfg.Redis,
		cache.WithLogger(log),
	).CreateCache()
	if err != nil {
		log.Fatal("Failed to create analytics cache", zap.Error(err))
	}
	defer analyticsCache.Close()

	// Wire repositories and services
	schemaRegistry := persistence.NewGormSchemaRegistry(db.DB)
	schemaCache := persistence.NewSchemaCache()
	submissionRepo := persistence.NewGormSubmissionRepository(db)

	formService := formsapp.NewFormService(schemaRegistry, schemaCache, submissionRepo, log)
	submissionService := formsapp.NewSubmissionService(
		formService, submissionRepo, analyticsCache,
		cfg.Form.DefaultPageSize, cfg.Form.MaxPageSize, log)
	analyticsService := formsapp.NewAnalyticsService(
		formService, submissionRepo, analyticsCache, cfg.Form.AnalyticsCacheTTL, log)

	// Seed schemas from the definition file; a missing file is fine on a
	// fresh install
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := formService.LoadSchemaFile(startupCtx, cfg.Form.SchemaFile); err != nil {
		cancelStartup()
		log.Fatal("Failed to load schema file",
			zap.String("path", cfg.Form.SchemaFile),
			zap.Error(err),
		)
	}
	cancelStartup()

	// HTTP engine and middleware stack
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	engine.GET("/health", healthHandler(db))

	// Handlers and routes
	formHandler := handler.NewFormHandler(formService)
	submissionHandler := handler.NewSubmissionHandler(submissionService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	systemHandler := handler.NewSystemHandler()

	schemasGroup := router.NewDomainGroup("schemas", "/schemas").
		POST("", formHandler.Register).
		GET("", formHandler.List).
		GET("/:table", formHandler.Get)

	formsGroup := router.NewDomainGroup("forms", "/forms").
		POST("/:table/submissions", submissionHandler.Submit).
		GET("/:table/submissions", submissionHandler.List).
		GET("/:table/analytics", analyticsHandler.Stats)

	systemGroup := router.NewDomainGroup("system", "/system").
		GET("/info", systemHandler.GetSystemInfo).
		GET("/ping", systemHandler.Ping)

	router.NewRouter(engine).
		Register(schemasGroup).
		Register(formsGroup).
		Register(systemGroup).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}

// healthHandler reports process liveness and database reachability
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			logger.GetGinLogger(c).Error("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
