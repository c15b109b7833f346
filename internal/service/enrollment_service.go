package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/models"
	"github.com/caraka20/tutontrack/internal/repository"
	appErrors "github.com/caraka20/tutontrack/pkg/errors"
)

type enrollmentRepository interface {
	FindDetailByID(ctx context.Context, id int64) (*models.EnrollmentDetail, error)
	Exists(ctx context.Context, studentID, courseID int64) (bool, error)
	CreateWithChecklist(ctx context.Context, enrollment *models.Enrollment, seeds []models.ItemSeed) error
	CountItems(ctx context.Context, enrollmentID int64) (int, error)
	DeleteCascade(ctx context.Context, id int64) error
}

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

// EnrollmentService orchestrates enrollment workflows.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	courses   courseReader
	progress  progressInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, courses courseReader, progress progressInvalidator, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, courses: courses, progress: progress, validator: validate, logger: logger}
}

// Enroll links a student to a course and seeds the default checklist.
func (s *EnrollmentService) Enroll(ctx context.Context, req dto.EnrollRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid enrollment payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}

	exists, err := s.repo.Exists(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this course")
	}

	enrollment := &models.Enrollment{StudentID: req.StudentID, CourseID: req.CourseID}
	if err := s.repo.CreateWithChecklist(ctx, enrollment, models.DefaultChecklist()); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this course")
		}
		return nil, appErrors.Internal(err, "failed to create enrollment")
	}

	s.progress.InvalidateStudent(ctx, req.StudentID)
	s.logger.Info("student enrolled",
		zap.Int64("enrollment_id", enrollment.ID), zap.Int64("student_id", req.StudentID), zap.Int64("course_id", req.CourseID))

	return &models.EnrollmentDetail{
		Enrollment:  *enrollment,
		CourseName:  course.Nama,
		StudentName: student.Nama,
		StudentNIM:  student.NIM,
	}, nil
}

// Delete removes an enrollment. Without force it refuses while checklist
// items exist.
func (s *EnrollmentService) Delete(ctx context.Context, id int64, force bool) error {
	enrollment, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Internal(err, "failed to load enrollment")
	}

	if !force {
		count, err := s.repo.CountItems(ctx, id)
		if err != nil {
			return appErrors.Internal(err, "failed to count enrollment items")
		}
		if count > 0 {
			return appErrors.Clone(appErrors.ErrEnrollmentHasItems, fmt.Sprintf("enrollment has %d checklist items; retry with force=true", count))
		}
	}

	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Internal(err, "failed to delete enrollment")
	}

	s.progress.InvalidateStudent(ctx, enrollment.StudentID)
	s.logger.Info("enrollment deleted", zap.Int64("enrollment_id", id), zap.Bool("force", force))
	return nil
}
