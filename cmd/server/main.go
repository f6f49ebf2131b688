package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/calendar-ai-api/api/swagger"
	"github.com/noah-isme/calendar-ai-api/internal/handler"
	"github.com/noah-isme/calendar-ai-api/internal/logs"
	"github.com/noah-isme/calendar-ai-api/internal/middleware"
	"github.com/noah-isme/calendar-ai-api/internal/plan"
	"github.com/noah-isme/calendar-ai-api/internal/repository"
	"github.com/noah-isme/calendar-ai-api/internal/service"
	"github.com/noah-isme/calendar-ai-api/internal/store"
	"github.com/noah-isme/calendar-ai-api/pkg/cache"
	"github.com/noah-isme/calendar-ai-api/pkg/config"
	"github.com/noah-isme/calendar-ai-api/pkg/database"
	"github.com/noah-isme/calendar-ai-api/pkg/jobs"
	"github.com/noah-isme/calendar-ai-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/calendar-ai-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/calendar-ai-api/pkg/middleware/requestid"
	"github.com/noah-isme/calendar-ai-api/pkg/storage"
)

// @title Calendar AI API
// @version 1.0.0
// @description Personal calendar with prompt driven editing
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence adapters share one backend selection.
	var (
		eventStore store.EventStore
		userRepo   repository.UserRepository
	)
	switch cfg.Storage.Backend {
	case config.BackendFile:
		fileStore, err := store.NewFileEventStore(cfg.Storage.DataDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init file event store", "error", err)
		}
		fileUsers, err := repository.NewFileUserRepository(cfg.Storage.DataDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init file user repository", "error", err)
		}
		eventStore = fileStore
		userRepo = fileUsers
	default:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
		}
		defer db.Close() //nolint:errcheck

		pgEvents := store.NewPostgresEventStore(db)
		if err := pgEvents.EnsureSchema(ctx); err != nil {
			logr.Sugar().Fatalw("failed to ensure event schema", "error", err)
		}
		pgUsers := repository.NewPostgresUserRepository(db)
		if err := pgUsers.EnsureSchema(ctx); err != nil {
			logr.Sugar().Fatalw("failed to ensure user schema", "error", err)
		}
		eventStore = pgEvents
		userRepo = pgUsers
	}

	metrics := service.NewMetricsService()
	buffer := logs.NewBuffer(cfg.Logs.Capacity)

	var cacheSvc *service.CacheService
	if cfg.Events.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
			cacheSvc = service.NewCacheService(nil, metrics, cfg.Events.CacheTTL, logr, false)
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(client, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Events.CacheTTL, logr, true)
		}
	} else {
		cacheSvc = service.NewCacheService(nil, metrics, cfg.Events.CacheTTL, logr, false)
	}

	validate := validator.New()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	eventSvc := service.NewEventService(eventStore, cacheSvc, validate, logr)
	applySvc := service.NewApplyService(eventStore, cacheSvc, metrics, logr)

	llm, err := plan.NewOllamaModel(cfg.Ollama)
	if err != nil {
		logr.Sugar().Fatalw("failed to init ollama client", "error", err)
	}
	planner := plan.NewPlanner(llm, buffer, logr, plan.PlannerConfig{
		Temperature: cfg.Ollama.Temperature,
		Timeout:     cfg.Ollama.Timeout,
	})
	assistantSvc := service.NewAssistantService(eventSvc, planner, applySvc, metrics, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	assistantHandler := handler.NewAssistantHandler(assistantSvc)
	logsHandler := handler.NewLogsHandler(buffer)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	protected.GET("/auth/me", authHandler.Me)
	protected.GET("/events", eventHandler.List)
	protected.GET("/events/upcoming", eventHandler.Upcoming)
	protected.POST("/events", eventHandler.Create)
	protected.PUT("/events/:id", eventHandler.Update)
	protected.DELETE("/events/:id", eventHandler.Delete)
	protected.POST("/assistant/edits", assistantHandler.Edit)
	protected.GET("/logs", logsHandler.List)

	if cfg.Exports.Enabled {
		localStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

		var exportSvc *service.ExportService
		queue := jobs.NewQueue("agenda-export", func(ctx context.Context, job jobs.Job) error {
			return exportSvc.Handle(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportSvc = service.NewExportService(eventSvc, queue, localStorage, signer, logr, service.ExportServiceConfig{
			ResultTTL:        cfg.Exports.SignedURLTTL,
			CleanupSchedule:  cfg.Exports.CleanupSchedule,
			DownloadBasePath: cfg.APIPrefix + "/exports/download",
		})
		queue.Start(ctx)
		defer queue.Stop()
		if err := exportSvc.StartCleanup(cfg.Exports.CleanupSchedule); err != nil {
			logr.Sugar().Fatalw("failed to schedule export cleanup", "error", err)
		}
		defer exportSvc.StopCleanup()

		exportHandler := handler.NewExportHandler(exportSvc)
		protected.POST("/exports", exportHandler.Create)
		protected.GET("/exports/:id", exportHandler.Status)
		api.GET("/exports/download", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting",
			"addr", addr,
			"env", cfg.Env,
			"backend", cfg.Storage.Backend,
			"model", cfg.Ollama.Model)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
