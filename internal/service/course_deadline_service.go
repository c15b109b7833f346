package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/models"
	appErrors "github.com/caraka20/tutontrack/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	ListDeadlines(ctx context.Context, courseID int64) ([]models.CourseDeadline, error)
	UpsertDeadline(ctx context.Context, deadline *models.CourseDeadline) error
}

// CourseDeadlineService maintains course master deadlines.
type CourseDeadlineService struct {
	repo      courseRepository
	progress  progressInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseDeadlineService constructs the service.
func NewCourseDeadlineService(repo courseRepository, progress progressInvalidator, validate *validator.Validate, logger *zap.Logger) *CourseDeadlineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseDeadlineService{repo: repo, progress: progress, validator: validate, logger: logger}
}

// List returns the master deadlines of a course.
func (s *CourseDeadlineService) List(ctx context.Context, courseID int64) ([]models.CourseDeadline, error) {
	if err := s.ensureCourse(ctx, courseID); err != nil {
		return nil, err
	}
	deadlines, err := s.repo.ListDeadlines(ctx, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list course deadlines")
	}
	if deadlines == nil {
		deadlines = []models.CourseDeadline{}
	}
	return deadlines, nil
}

// Upsert writes the master deadline of one (jenis, sesi) pair.
func (s *CourseDeadlineService) Upsert(ctx context.Context, courseID int64, req dto.UpsertCourseDeadlineRequest) (*models.CourseDeadline, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid course deadline payload")
	}
	jenis, ok := models.ParseJenis(req.Jenis)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "jenis must be one of DISKUSI, ABSEN, TUGAS, QUIZ")
	}
	if err := s.ensureCourse(ctx, courseID); err != nil {
		return nil, err
	}

	deadline := &models.CourseDeadline{CourseID: courseID, Jenis: jenis, Sesi: req.Sesi}
	if req.DeadlineAt != nil {
		utc := req.DeadlineAt.UTC()
		deadline.DeadlineAt = &utc
	}
	if err := s.repo.UpsertDeadline(ctx, deadline); err != nil {
		return nil, appErrors.Internal(err, "failed to save course deadline")
	}

	s.progress.InvalidateAll(ctx)
	s.logger.Info("course deadline saved",
		zap.Int64("course_id", courseID), zap.String("jenis", string(jenis)), zap.Int("sesi", req.Sesi))
	return deadline, nil
}

func (s *CourseDeadlineService) ensureCourse(ctx context.Context, courseID int64) error {
	if _, err := s.repo.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Internal(err, "failed to load course")
	}
	return nil
}
