// Package scanner polls for due reminders and publishes "reminder due" events
// for the external notifier. It never marks reminders as sent.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/service"
	"github.com/caraka20/tutontrack/pkg/cache"
	"github.com/caraka20/tutontrack/pkg/jobs"
)

const jobType = "reminder.due"

type dueSource interface {
	Due(ctx context.Context) ([]dto.DueReminder, error)
}

type eventPublisher interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Publish(ctx context.Context, channel string, message interface{}) error
}

type eventRecorder interface {
	RecordReminderEvent(outcome string)
}

// Config tunes the polling loop and its worker pool.
type Config struct {
	Interval   time.Duration
	Workers    int
	Retries    int
	RetryDelay time.Duration
	DedupeTTL  time.Duration
	Channel    string
}

// Scanner schedules due scans with gocron and fans events out through a job queue.
type Scanner struct {
	source    dueSource
	publisher eventPublisher
	metrics   eventRecorder
	logger    *zap.Logger
	cfg       Config
	queue     *jobs.Queue
	scheduler *gocron.Scheduler
	now       service.Clock
}

// New builds a Scanner. The queue is created eagerly; Start begins consumption.
func New(source dueSource, publisher eventPublisher, metrics eventRecorder, logger *zap.Logger, cfg Config) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = 24 * time.Hour
	}
	if cfg.Channel == "" {
		cfg.Channel = cache.Key("reminders", "due")
	}
	s := &Scanner{
		source:    source,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.queue = jobs.NewQueue("reminder-events", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		DeadLetter: s.deadLetter,
	})
	return s
}

// WithClock overrides the time source used for emittedAt.
func (s *Scanner) WithClock(clock service.Clock) *Scanner {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Start runs the queue and schedules a scan every Interval, starting immediately.
func (s *Scanner) Start(ctx context.Context) error {
	s.queue.Start(ctx)

	s.scheduler = gocron.NewScheduler(time.UTC)
	s.scheduler.SingletonModeAll()
	if _, err := s.scheduler.Every(s.cfg.Interval).Do(func() {
		if _, err := s.Scan(ctx); err != nil {
			s.logger.Error("reminder scan failed", zap.Error(err))
		}
	}); err != nil {
		s.queue.Stop()
		return fmt.Errorf("schedule reminder scan: %w", err)
	}
	s.scheduler.StartAsync()
	s.logger.Info("reminder scanner started", zap.Duration("interval", s.cfg.Interval), zap.String("channel", s.cfg.Channel))
	return nil
}

// Stop halts scheduling and drains the workers.
func (s *Scanner) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.queue.Stop()
}

// Scan enqueues one job per due reminder and returns how many were enqueued.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	due, err := s.source.Due(ctx)
	if err != nil {
		return 0, fmt.Errorf("list due reminders: %w", err)
	}
	enqueued := 0
	for _, reminder := range due {
		job := jobs.Job{ID: uuid.NewString(), Type: jobType, Payload: reminder}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			return enqueued, fmt.Errorf("enqueue reminder %d: %w", reminder.ReminderID, err)
		}
		enqueued++
	}
	s.logger.Debug("reminder scan complete", zap.Int("due", len(due)), zap.Int("enqueued", enqueued))
	return enqueued, nil
}

func (s *Scanner) handle(ctx context.Context, job jobs.Job) error {
	reminder, ok := job.Payload.(dto.DueReminder)
	if !ok {
		s.record(service.OutcomeError)
		s.logger.Error("unexpected job payload", zap.String("job_id", job.ID))
		return nil
	}

	key := dedupeKey(reminder.ReminderID)
	claimed, err := s.publisher.Claim(ctx, key, s.cfg.DedupeTTL)
	if err != nil {
		return err
	}
	if !claimed {
		s.record(service.OutcomeSkipped)
		return nil
	}

	event := dto.ReminderDueEvent{
		EventID:    job.ID,
		ReminderID: reminder.ReminderID,
		ItemID:     reminder.ItemID,
		Channel:    string(reminder.Channel),
		OffsetMin:  reminder.OffsetMin,
		DeadlineAt: reminder.DeadlineAt,
		DueAt:      reminder.DueAt,
		EmittedAt:  s.now(),
	}
	if err := s.publisher.Publish(ctx, s.cfg.Channel, event); err != nil {
		if releaseErr := s.publisher.Release(ctx, key); releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
		return err
	}
	s.record(service.OutcomeOK)
	s.logger.Info("reminder due event published",
		zap.Int64("reminder_id", reminder.ReminderID),
		zap.Int64("item_id", reminder.ItemID),
		zap.Time("due_at", reminder.DueAt))
	return nil
}

func (s *Scanner) deadLetter(job jobs.Job, err error) {
	s.record(service.OutcomeError)
	s.logger.Error("reminder due event dropped", zap.String("job_id", job.ID), zap.Error(err))
}

func (s *Scanner) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordReminderEvent(outcome)
	}
}

// Stats exposes the queue counters.
func (s *Scanner) Stats() jobs.Stats {
	return s.queue.Stats()
}

func dedupeKey(reminderID int64) string {
	return cache.Key("reminder", "due", strconv.FormatInt(reminderID, 10))
}
