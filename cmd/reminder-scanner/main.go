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

	"go.uber.org/zap"

	"github.com/caraka20/tutontrack/internal/repository"
	"github.com/caraka20/tutontrack/internal/scanner"
	"github.com/caraka20/tutontrack/internal/service"
	"github.com/caraka20/tutontrack/pkg/cache"
	"github.com/caraka20/tutontrack/pkg/config"
	"github.com/caraka20/tutontrack/pkg/database"
	"github.com/caraka20/tutontrack/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "reminder-scanner")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	events := repository.NewCacheRepository(redisClient, logr)
	defer events.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	reminderSvc := service.NewReminderService(
		repository.NewReminderRepository(db),
		repository.NewTutonItemRepository(db),
		repository.NewCourseRepository(db),
		nil,
		metricsSvc,
		logr,
		service.ReminderConfig{DefaultOffsetMin: cfg.Reminders.DefaultOffsetMin},
	)

	s := scanner.New(reminderSvc, events, metricsSvc, logr, scanner.Config{
		Interval:   cfg.Scanner.Interval,
		Workers:    cfg.Scanner.Workers,
		Retries:    cfg.Scanner.Retries,
		RetryDelay: time.Second,
		DedupeTTL:  cfg.Scanner.DedupeTTL,
		Channel:    cfg.Scanner.EventsChannel,
	})
	if err := s.Start(ctx); err != nil {
		logr.Fatal("failed to start scanner", zap.Error(err))
	}

	var metricsSrv *http.Server
	if cfg.Scanner.MetricsPort > 0 {
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Scanner.MetricsPort),
			Handler:           metricsSvc.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logr.Info("metrics listener starting", zap.String("addr", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logr.Error("metrics listener failed", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logr.Info("shutting down", zap.Any("stats", s.Stats()))
	s.Stop()

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}
