package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/models"
	"github.com/caraka20/tutontrack/internal/repository"
	appErrors "github.com/caraka20/tutontrack/pkg/errors"
)

type tutonItemRepository interface {
	FindDetailByID(ctx context.Context, id int64) (*models.ItemDetail, error)
	UpdateStatus(ctx context.Context, id int64, status models.ItemStatus, nilai *float64, deskripsi *string, selesaiAt *time.Time, updatedAt time.Time) (*models.TutonItem, error)
	UpdateDeadline(ctx context.Context, id int64, deadlineAt *time.Time, updatedAt time.Time) (*models.TutonItem, error)
	Create(ctx context.Context, item *models.TutonItem) error
}

type enrollmentDetailReader interface {
	FindDetailByID(ctx context.Context, id int64) (*models.EnrollmentDetail, error)
}

// TutonItemService mutates checklist items.
type TutonItemService struct {
	repo        tutonItemRepository
	enrollments enrollmentDetailReader
	progress    progressInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
	now         Clock
}

// NewTutonItemService constructs the item service.
func NewTutonItemService(repo tutonItemRepository, enrollments enrollmentDetailReader, progress progressInvalidator, validate *validator.Validate, logger *zap.Logger) *TutonItemService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutonItemService{repo: repo, enrollments: enrollments, progress: progress, validator: validate, logger: logger, now: utcNow}
}

// WithClock overrides the time source.
func (s *TutonItemService) WithClock(now Clock) *TutonItemService {
	if now != nil {
		s.now = now
	}
	return s
}

// UpdateStatus marks an item done or not done. SELESAI stamps selesaiAt unless
// the item was already done; BELUM clears it.
func (s *TutonItemService) UpdateStatus(ctx context.Context, id int64, req dto.UpdateItemStatusRequest) (*models.TutonItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid item status payload")
	}
	status, ok := parseItemStatus(req.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be BELUM or SELESAI")
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var selesaiAt *time.Time
	if status == models.ItemStatusSelesai {
		selesaiAt = &now
		if current.Status.IsSelesai() && current.SelesaiAt != nil {
			selesaiAt = current.SelesaiAt
		}
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status, req.Nilai, req.Deskripsi, selesaiAt, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Internal(err, "failed to update item")
	}

	s.progress.InvalidateStudent(ctx, current.StudentID)
	s.logger.Info("item status updated", zap.Int64("item_id", id), zap.String("status", string(status)))
	return updated, nil
}

// SetDeadline writes or clears the deadline override of an item.
func (s *TutonItemService) SetDeadline(ctx context.Context, id int64, req dto.SetItemDeadlineRequest) (*models.TutonItem, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	deadline := req.DeadlineAt
	if deadline != nil {
		utc := deadline.UTC()
		deadline = &utc
	}
	updated, err := s.repo.UpdateDeadline(ctx, id, deadline, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Internal(err, "failed to update item deadline")
	}

	s.progress.InvalidateStudent(ctx, current.StudentID)
	return updated, nil
}

// AddQuiz appends a QUIZ item to an enrollment checklist.
func (s *TutonItemService) AddQuiz(ctx context.Context, enrollmentID int64, req dto.AddQuizRequest) (*models.TutonItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid quiz payload")
	}

	enrollment, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}

	item := &models.TutonItem{
		EnrollmentID: enrollmentID,
		Jenis:        models.JenisQuiz,
		Sesi:         req.Sesi,
		Status:       models.ItemStatusBelum,
	}
	if req.DeadlineAt != nil {
		utc := req.DeadlineAt.UTC()
		item.DeadlineAt = &utc
	}
	if err := s.repo.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "quiz already exists for this session")
		}
		return nil, appErrors.Internal(err, "failed to create quiz item")
	}

	s.progress.InvalidateStudent(ctx, enrollment.StudentID)
	return item, nil
}

func (s *TutonItemService) load(ctx context.Context, id int64) (*models.ItemDetail, error) {
	item, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Internal(err, "failed to load item")
	}
	return item, nil
}

func parseItemStatus(raw string) (models.ItemStatus, bool) {
	status := models.ItemStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return status, status.Valid()
}
