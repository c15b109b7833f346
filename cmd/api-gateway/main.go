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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/caraka20/tutontrack/api/swagger"
	"github.com/caraka20/tutontrack/internal/handler"
	internalmiddleware "github.com/caraka20/tutontrack/internal/middleware"
	"github.com/caraka20/tutontrack/internal/repository"
	"github.com/caraka20/tutontrack/internal/service"
	"github.com/caraka20/tutontrack/pkg/cache"
	"github.com/caraka20/tutontrack/pkg/config"
	"github.com/caraka20/tutontrack/pkg/database"
	"github.com/caraka20/tutontrack/pkg/export"
	"github.com/caraka20/tutontrack/pkg/logger"
	corsmiddleware "github.com/caraka20/tutontrack/pkg/middleware/cors"
	reqidmiddleware "github.com/caraka20/tutontrack/pkg/middleware/requestid"
)

// @title TutonTrack API
// @version 1.0.0
// @description Tutoring progress, deadline and reminder engine
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "api-gateway")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Progress.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, progress cache disabled", zap.Error(err))
			redisClient = nil
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Progress.CacheTTL, logr, redisClient != nil)

	adminRepo := repository.NewAdminRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	itemRepo := repository.NewTutonItemRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	authSvc := service.NewAuthService(adminRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	progressSvc := service.NewProgressService(studentRepo, enrollmentRepo, itemRepo, courseRepo, cacheSvc, metricsSvc, logr, service.ProgressConfig{
		DueSoonWindow: cfg.Progress.DueSoonWindow,
		CacheTTL:      cfg.Progress.CacheTTL,
	})
	itemSvc := service.NewTutonItemService(itemRepo, enrollmentRepo, progressSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, progressSvc, validate, logr)
	courseDeadlineSvc := service.NewCourseDeadlineService(courseRepo, progressSvc, validate, logr)
	reminderSvc := service.NewReminderService(reminderRepo, itemRepo, courseRepo, validate, metricsSvc, logr, service.ReminderConfig{
		DefaultOffsetMin: cfg.Reminders.DefaultOffsetMin,
	})
	csvOpts := []export.CSVOption{export.WithDelimiter(cfg.Progress.ExportCSVDelimiter)}
	if cfg.Progress.ExportExcelBOM {
		csvOpts = append(csvOpts, export.WithExcelBOM())
	}
	exportSvc := service.NewExportService(progressSvc, export.NewRenderer(csvOpts...), service.ExportConfig{
		TitleFormat: cfg.Progress.ExportTitleFmt,
	}, logr)

	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
		"postgres": db,
		"redis":    handler.PingFunc(cacheRepo.Ping),
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.WithResponseMeta())
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:            handler.NewAuthHandler(authSvc),
		Progress:        handler.NewProgressHandler(progressSvc, exportSvc),
		Enrollments:     handler.NewEnrollmentHandler(enrollmentSvc, itemSvc),
		Items:           handler.NewItemHandler(itemSvc),
		Reminders:       handler.NewReminderHandler(reminderSvc),
		CourseDeadlines: handler.NewCourseDeadlineHandler(courseDeadlineSvc),
	}, internalmiddleware.JWT(authSvc), logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
