package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/certprep-labs/analysis-service/internal/cache"
	"github.com/certprep-labs/analysis-service/internal/config"
	"github.com/certprep-labs/analysis-service/internal/events"
	"github.com/certprep-labs/analysis-service/internal/handlers"
	"github.com/certprep-labs/analysis-service/internal/llm"
	"github.com/certprep-labs/analysis-service/internal/models"
	"github.com/certprep-labs/analysis-service/internal/repositories/postgres"
	"github.com/certprep-labs/analysis-service/internal/scheduler"
	"github.com/certprep-labs/analysis-service/internal/services"
	"github.com/certprep-labs/analysis-service/internal/utils"
	"github.com/certprep-labs/analysis-service/pkg"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.IsDevelopment() {
		logger = utils.NewDevelopmentLogger()
	} else {
		logger = utils.NewDefaultLogger()
	}

	logger.Info("Starting analysis service", "environment", cfg.Environment, "port", cfg.Port)

	// Database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Onboarding{},
		&models.Category{},
		&models.Quiz{},
		&models.Question{},
		&models.QuestionOption{},
		&models.QuizAttempt{},
		&models.QuestionAttempt{},
		&models.AnalysisReport{},
	); err != nil {
		logger.Error("Database migration failed", "error", err)
		os.Exit(1)
	}

	// Redis. The service degrades to DB-only caching when unavailable.
	var cacheService cache.CacheService
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, serving reports from the database only", "error", err)
	} else {
		defer redisClient.Close()
		cacheService = cache.NewRedisCache(redisClient, logger)
	}

	// Gemini provider
	ctx := context.Background()
	provider, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	})
	if err != nil {
		logger.Error("Failed to init Gemini provider", "error", err)
		os.Exit(1)
	}

	// Event publisher. Without brokers configured events are recorded in
	// memory, which keeps local development broker-free.
	var publisher events.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: cfg.KafkaBrokers,
			TopicName:    cfg.ReportTopic,
			Logger:       utils.ToSlogLogger(logger),
		})
		if err != nil {
			logger.Error("Failed to init Kafka publisher", "error", err)
			os.Exit(1)
		}
		publisher = kafkaPublisher
	} else {
		logger.Warn("No Kafka brokers configured, using in-memory event publisher")
		publisher = events.NewMockEventPublisher(utils.ToSlogLogger(logger))
	}
	defer publisher.Close()

	// Repositories and services
	repo := postgres.NewRepository(db)
	testDataService := services.NewTestDataService(repo, logger)
	analysisService := services.NewAnalysisService(testDataService, provider, logger,
		cfg.ModuleTimeout, cfg.PipelineTimeout)
	reportService := services.NewReportService(repo, analysisService, cacheService, publisher, logger)
	exportService := services.NewExportService(reportService, logger)

	// HTTP surface
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(reportService, exportService, logger)
	handlerManager.SetupRoutes(router)

	// Weekly refresh job
	sched := scheduler.New(reportService, logger)
	if err := sched.Start(); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("Analysis service listening", "addr", server.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}
