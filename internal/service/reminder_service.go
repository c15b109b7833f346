package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/models"
	"github.com/caraka20/tutontrack/internal/repository"
	"github.com/caraka20/tutontrack/internal/tuton"
	appErrors "github.com/caraka20/tutontrack/pkg/errors"
)

type reminderRepository interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	CreateWebPreference(ctx context.Context, reminder *models.Reminder) error
	FindByID(ctx context.Context, id int64) (*models.Reminder, error)
	ListByItem(ctx context.Context, itemID int64) ([]models.Reminder, error)
	FindPendingWebByItem(ctx context.Context, itemID int64) (*models.Reminder, error)
	TransitionFromPending(ctx context.Context, id int64, to models.ReminderStatus, sentAt *time.Time) error
	UpdatePreference(ctx context.Context, id int64, offsetMin *int, active bool) (*models.Reminder, error)
	ListDueCandidates(ctx context.Context) ([]models.ReminderCandidate, error)
}

type itemDetailReader interface {
	FindDetailByID(ctx context.Context, id int64) (*models.ItemDetail, error)
}

// ReminderConfig holds reminder defaults.
type ReminderConfig struct {
	DefaultOffsetMin int
}

// ReminderService manages the reminder lifecycle.
type ReminderService struct {
	repo      reminderRepository
	items     itemDetailReader
	deadlines courseDeadlineReader
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ReminderConfig
	now       Clock
}

// NewReminderService constructs the reminder service.
func NewReminderService(
	repo reminderRepository,
	items itemDetailReader,
	deadlines courseDeadlineReader,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg ReminderConfig,
) *ReminderService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultOffsetMin < 0 {
		cfg.DefaultOffsetMin = 1440
	}
	return &ReminderService{
		repo:      repo,
		items:     items,
		deadlines: deadlines,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       utcNow,
	}
}

// WithClock overrides the time source.
func (s *ReminderService) WithClock(now Clock) *ReminderService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create adds a pending ADMIN reminder attributed to the calling admin.
func (s *ReminderService) Create(ctx context.Context, itemID, adminID int64, req dto.CreateReminderRequest) (*models.Reminder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid reminder payload")
	}
	if _, err := s.loadItem(ctx, itemID); err != nil {
		return nil, err
	}

	reminder := &models.Reminder{
		ItemID:  itemID,
		Source:  models.ReminderSourceAdmin,
		Status:  models.ReminderStatusPending,
		Channel: models.ReminderChannelWA,
		Note:    trimNote(req.Note),
		Active:  true,
	}
	if adminID > 0 {
		reminder.CreatedByAdminID = &adminID
	}
	if err := s.repo.Create(ctx, reminder); err != nil {
		return nil, appErrors.Internal(err, "failed to create reminder")
	}
	s.logger.Info("reminder created", zap.Int64("reminder_id", reminder.ID), zap.Int64("item_id", itemID), zap.Int64("admin_id", adminID))
	return reminder, nil
}

// UpsertPreference updates the pending WEB reminder of an item or creates one.
func (s *ReminderService) UpsertPreference(ctx context.Context, itemID int64, req dto.ReminderPreferenceRequest) (*models.Reminder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid reminder preference")
	}
	if _, err := s.loadItem(ctx, itemID); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindPendingWebByItem(ctx, itemID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load reminder preference")
	}

	if existing == nil {
		reminder := s.newPreference(itemID, req)
		err := s.repo.CreateWebPreference(ctx, reminder)
		if err == nil {
			s.logger.Info("reminder preference created", zap.Int64("reminder_id", reminder.ID), zap.Int64("item_id", itemID))
			return reminder, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Internal(err, "failed to create reminder preference")
		}
		// A concurrent request created the preference first; update that one.
		existing, err = s.repo.FindPendingWebByItem(ctx, itemID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load reminder preference")
		}
	}

	offset := existing.OffsetMin
	if req.OffsetMin != nil {
		offset = req.OffsetMin
	}
	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}
	updated, err := s.repo.UpdatePreference(ctx, existing.ID, offset, active)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to update reminder preference")
	}
	return updated, nil
}

func (s *ReminderService) newPreference(itemID int64, req dto.ReminderPreferenceRequest) *models.Reminder {
	offset := s.cfg.DefaultOffsetMin
	if req.OffsetMin != nil {
		offset = *req.OffsetMin
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &models.Reminder{
		ItemID:    itemID,
		Source:    models.ReminderSourceWeb,
		Status:    models.ReminderStatusPending,
		Channel:   models.ReminderChannelWA,
		OffsetMin: &offset,
		Active:    active,
	}
}

// MarkSent moves a pending reminder to SENT.
func (s *ReminderService) MarkSent(ctx context.Context, id int64) (*models.Reminder, error) {
	return s.transition(ctx, id, models.ReminderStatusSent)
}

// Cancel moves a pending reminder to CANCELLED.
func (s *ReminderService) Cancel(ctx context.Context, id int64) (*models.Reminder, error) {
	return s.transition(ctx, id, models.ReminderStatusCancelled)
}

func (s *ReminderService) transition(ctx context.Context, id int64, to models.ReminderStatus) (*models.Reminder, error) {
	reminder, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reminder not found")
		}
		s.metrics.RecordReminderTransition(to, OutcomeError)
		return nil, appErrors.Internal(err, "failed to load reminder")
	}

	if err := tuton.CheckTransition(reminder.Status, to); err != nil {
		if errors.Is(err, tuton.ErrReminderConflict) {
			s.metrics.RecordReminderTransition(to, OutcomeConflict)
			return nil, appErrors.Clone(appErrors.ErrReminderNotPending, "reminder is already "+strings.ToLower(string(reminder.Status)))
		}
		return nil, appErrors.Validation(err, "invalid reminder transition")
	}

	now := s.now()
	var sentAt *time.Time
	if to == models.ReminderStatusSent {
		sentAt = &now
	}
	if err := s.repo.TransitionFromPending(ctx, id, to, sentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordReminderTransition(to, OutcomeConflict)
			return nil, appErrors.Clone(appErrors.ErrReminderNotPending, "reminder is no longer pending")
		}
		s.metrics.RecordReminderTransition(to, OutcomeError)
		return nil, appErrors.Internal(err, "failed to update reminder")
	}

	if err := tuton.Apply(reminder, to, now); err != nil {
		return nil, appErrors.Internal(err, "reminder state diverged")
	}
	s.metrics.RecordReminderTransition(to, OutcomeOK)
	s.logger.Info("reminder transitioned", zap.Int64("reminder_id", id), zap.String("status", string(to)))
	return reminder, nil
}

// SetActive toggles a WEB reminder without touching its status.
func (s *ReminderService) SetActive(ctx context.Context, id int64, req dto.SetReminderActiveRequest) (*models.Reminder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid reminder payload")
	}
	reminder, err := s.loadWebReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.writePreference(ctx, reminder.ID, reminder.OffsetMin, *req.Active)
}

// SetOffset changes how many minutes before the deadline a WEB reminder fires.
func (s *ReminderService) SetOffset(ctx context.Context, id int64, req dto.SetReminderOffsetRequest) (*models.Reminder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid reminder payload")
	}
	reminder, err := s.loadWebReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.writePreference(ctx, reminder.ID, req.OffsetMin, reminder.Active)
}

// ListByItem returns the reminders attached to an item.
func (s *ReminderService) ListByItem(ctx context.Context, itemID int64) ([]models.Reminder, error) {
	if _, err := s.loadItem(ctx, itemID); err != nil {
		return nil, err
	}
	reminders, err := s.repo.ListByItem(ctx, itemID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list reminders")
	}
	if reminders == nil {
		reminders = []models.Reminder{}
	}
	return reminders, nil
}

// Due scans active pending WEB reminders and returns those whose fire time has
// been reached, earliest first.
func (s *ReminderService) Due(ctx context.Context) ([]dto.DueReminder, error) {
	candidates, err := s.repo.ListDueCandidates(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load reminders")
	}

	courseIDs := make([]int64, 0, len(candidates))
	seen := make(map[int64]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.CourseID]; ok {
			continue
		}
		seen[c.CourseID] = struct{}{}
		courseIDs = append(courseIDs, c.CourseID)
	}
	var byCourse map[int64]tuton.DeadlineIndex
	if len(courseIDs) > 0 {
		deadlines, err := s.deadlines.ListDeadlinesByCourses(ctx, courseIDs)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load course deadlines")
		}
		byCourse = tuton.IndexByCourse(deadlines)
	}

	now := s.now()
	due := make([]dto.DueReminder, 0)
	for _, c := range candidates {
		item := models.TutonItem{ID: c.ItemID, Jenis: c.Jenis, Sesi: c.Sesi, DeadlineAt: c.ItemDeadlineAt}
		deadline := tuton.Resolve(item, byCourse[c.CourseID])
		if !tuton.IsDue(c.Reminder, deadline, now) {
			continue
		}
		offset := 0
		if c.OffsetMin != nil {
			offset = *c.OffsetMin
		}
		due = append(due, dto.DueReminder{
			ReminderID: c.ID,
			ItemID:     c.ItemID,
			Channel:    c.Channel,
			OffsetMin:  offset,
			DeadlineAt: *deadline,
			DueAt:      tuton.DueAt(c.Reminder, *deadline),
		})
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].DueAt.Before(due[j].DueAt)
	})
	s.metrics.SetRemindersDue(len(due))
	return due, nil
}

func (s *ReminderService) loadWebReminder(ctx context.Context, id int64) (*models.Reminder, error) {
	reminder, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reminder not found")
		}
		return nil, appErrors.Internal(err, "failed to load reminder")
	}
	if reminder.Source != models.ReminderSourceWeb {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only WEB reminders carry a preference")
	}
	return reminder, nil
}

func (s *ReminderService) writePreference(ctx context.Context, id int64, offsetMin *int, active bool) (*models.Reminder, error) {
	updated, err := s.repo.UpdatePreference(ctx, id, offsetMin, active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reminder not found")
		}
		return nil, appErrors.Internal(err, "failed to update reminder")
	}
	return updated, nil
}

func (s *ReminderService) loadItem(ctx context.Context, itemID int64) (*models.ItemDetail, error) {
	item, err := s.items.FindDetailByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Internal(err, "failed to load item")
	}
	return item, nil
}

func trimNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
