package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-report-card/api/swagger"
	"github.com/noah-isme/sma-report-card/internal/fixtures"
	"github.com/noah-isme/sma-report-card/internal/grading"
	"github.com/noah-isme/sma-report-card/internal/handler"
	"github.com/noah-isme/sma-report-card/internal/middleware"
	"github.com/noah-isme/sma-report-card/internal/models"
	"github.com/noah-isme/sma-report-card/internal/repository"
	"github.com/noah-isme/sma-report-card/internal/service"
	"github.com/noah-isme/sma-report-card/pkg/cache"
	"github.com/noah-isme/sma-report-card/pkg/config"
	"github.com/noah-isme/sma-report-card/pkg/logger"
)

// @title School Report Card API
// @version 1.0.0
// @description Grade calculation and report card generation
// @BasePath /
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to open document store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer store.Close(context.Background()) //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{
		"store": func(ctx context.Context) error { return repository.Ping(ctx, store) },
	}

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("report card cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(redisClient, cache.ReportCardPrefix, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}

	validate := validator.New()
	remarks := grading.NewRemarkGenerator(cfg.Grading.DeterministicRemarks)
	assembler := grading.NewAssembler(remarks, grading.DefaultAssessment(cfg.Grading.DefaultWeights), logr)
	writer := repository.NewDocumentWriter(store, logr,
		repository.WithBatchTimeout(cfg.Setup.BatchTimeout),
		repository.WithObserver(metricsSvc),
	)

	if cfg.Store.Driver == config.StoreMemory {
		seedMemoryStore(ctx, cfg, writer, assembler, metricsSvc, logr)
	}

	gradingSvc := service.NewGradingService(remarks, cfg.Grading.DefaultWeights, validate, logr)
	reportCardSvc := service.NewReportCardService(store, writer, assembler, cacheSvc, metricsSvc, validate, logr)
	exportSvc := service.NewExportService(nil, nil, logr)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration)
	if !tokenSvc.Enabled() {
		logr.Info("JWT_SECRET not set, requests are treated as anonymous")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.OptionalJWT(tokenSvc, logr))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	gradeHandler := handler.NewGradeHandler(gradingSvc)
	reportCardHandler := handler.NewReportCardHandler(reportCardSvc, exportSvc, logr)

	api := r.Group(cfg.APIPrefix)
	api.POST("/grades/calculate", gradeHandler.Calculate)
	api.POST("/report-cards", reportCardHandler.Generate)
	api.GET("/report-cards/:id", reportCardHandler.Get)
	api.GET("/report-cards/:id/pdf", reportCardHandler.PDF)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

// seedMemoryStore loads the configured fixtures so an in-memory server has data to serve.
func seedMemoryStore(ctx context.Context, cfg *config.Config, writer *repository.DocumentWriter, assembler *grading.Assembler, metrics *service.MetricsService, logr *zap.Logger) {
	fx, err := fixtures.Load(cfg.Setup.FixturesPath)
	if err != nil {
		logr.Warn("memory store left empty", zap.Error(err))
		return
	}
	setup := service.NewSetupService(writer, assembler, nil, metrics, logr, service.SetupServiceConfig{BcryptCost: cfg.Setup.BcryptCost})
	report, err := setup.Run(ctx, fx, service.SetupOptions{
		Mode:            repository.ModePushAlways,
		SkipReportCards: true,
		Actor:           models.SystemActor,
	})
	if err != nil || report.Failed() {
		logr.Warn("memory store seeding incomplete", zap.Error(err))
		return
	}
	logr.Info("memory store seeded", zap.String("term", fx.Term), zap.String("academic_year", fx.AcademicYear))
}
