package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/models"
	"github.com/caraka20/tutontrack/internal/tuton"
	"github.com/caraka20/tutontrack/pkg/cache"
	appErrors "github.com/caraka20/tutontrack/pkg/errors"
)

type studentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

type progressEnrollmentReader interface {
	ListDetailsByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error)
	FindDetailByID(ctx context.Context, id int64) (*models.EnrollmentDetail, error)
}

type progressItemReader interface {
	ListByEnrollment(ctx context.Context, enrollmentID int64) ([]models.TutonItem, error)
	ListByEnrollments(ctx context.Context, enrollmentIDs []int64) ([]models.TutonItem, error)
}

type courseDeadlineReader interface {
	ListDeadlines(ctx context.Context, courseID int64) ([]models.CourseDeadline, error)
	ListDeadlinesByCourses(ctx context.Context, courseIDs []int64) ([]models.CourseDeadline, error)
}

// progressInvalidator drops cached summaries after writes.
type progressInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID int64)
	InvalidateAll(ctx context.Context)
}

// ProgressConfig tunes summary construction.
type ProgressConfig struct {
	DueSoonWindow int
	CacheTTL      time.Duration
}

// ProgressService assembles progress summaries from persisted snapshots.
type ProgressService struct {
	students    studentReader
	enrollments progressEnrollmentReader
	items       progressItemReader
	deadlines   courseDeadlineReader
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         ProgressConfig
	now         Clock
}

// NewProgressService constructs the progress service.
func NewProgressService(
	students studentReader,
	enrollments progressEnrollmentReader,
	items progressItemReader,
	deadlines courseDeadlineReader,
	cacheSvc *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg ProgressConfig,
) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DueSoonWindow < 0 {
		cfg.DueSoonWindow = 7
	}
	return &ProgressService{
		students:    students,
		enrollments: enrollments,
		items:       items,
		deadlines:   deadlines,
		cache:       cacheSvc,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         utcNow,
	}
}

// WithClock overrides the time source.
func (s *ProgressService) WithClock(now Clock) *ProgressService {
	if now != nil {
		s.now = now
	}
	return s
}

// StudentProgress returns the per-student aggregate. The boolean reports a
// cache hit.
func (s *ProgressService) StudentProgress(ctx context.Context, studentID int64, windowDays *int) (*dto.StudentProgress, bool, error) {
	window, err := s.window(windowDays)
	if err != nil {
		return nil, false, err
	}
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, false, err
	}

	key := studentCacheKey(studentID, window)
	var cached interface{}
	if s.cache.Fetch(ctx, key, &cached) {
		progress := tuton.NormalizeStudentProgress(cached)
		if progress.StudentID == studentID {
			return &progress, true, nil
		}
		s.logger.Warn("discarding cached progress for another student",
			zap.String("key", key), zap.Int64("cached_student_id", progress.StudentID))
	}

	start := time.Now()
	enrollments, err := s.enrollments.ListDetailsByStudent(ctx, studentID)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load enrollments")
	}
	snapshots, err := s.snapshots(ctx, enrollments)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	summaries := make([]dto.ProgressSummary, 0, len(snapshots))
	for _, snapshot := range snapshots {
		summaries = append(summaries, tuton.Summarize(snapshot, now, window))
	}
	progress := tuton.SummarizeStudent(studentID, summaries)
	s.metrics.ObserveProgressBuild(time.Since(start))

	s.cache.Store(ctx, key, progress, s.cfg.CacheTTL)
	return &progress, false, nil
}

// EnrollmentProgress returns the summary of a single enrollment.
func (s *ProgressService) EnrollmentProgress(ctx context.Context, enrollmentID int64, windowDays *int) (*dto.ProgressSummary, error) {
	window, err := s.window(windowDays)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}
	items, err := s.items.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load items")
	}
	deadlines, err := s.deadlines.ListDeadlines(ctx, enrollment.CourseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load course deadlines")
	}

	summary := tuton.Summarize(tuton.Snapshot{
		Enrollment: *enrollment,
		Items:      items,
		Deadlines:  tuton.NewDeadlineIndex(deadlines),
	}, s.now(), window)
	return &summary, nil
}

// DueSoon returns the flattened due list across the student's enrollments.
func (s *ProgressService) DueSoon(ctx context.Context, studentID int64, windowDays *int, includeUndated bool) ([]dto.DueSoonRow, error) {
	window, err := s.window(windowDays)
	if err != nil {
		return nil, err
	}
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListDetailsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load enrollments")
	}
	snapshots, err := s.snapshots(ctx, enrollments)
	if err != nil {
		return nil, err
	}
	return tuton.FlattenDueSoon(snapshots, s.now(), window, includeUndated), nil
}

// InvalidateStudent drops every cached summary of a student.
func (s *ProgressService) InvalidateStudent(ctx context.Context, studentID int64) {
	pattern := cache.Key("progress", "student", strconv.FormatInt(studentID, 10), "*")
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("failed to invalidate student progress", zap.Int64("student_id", studentID), zap.Error(err))
	}
}

// InvalidateAll drops every cached summary.
func (s *ProgressService) InvalidateAll(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.Key("progress", "*")); err != nil {
		s.logger.Warn("failed to invalidate progress cache", zap.Error(err))
	}
}

func (s *ProgressService) snapshots(ctx context.Context, enrollments []models.EnrollmentDetail) ([]tuton.Snapshot, error) {
	if len(enrollments) == 0 {
		return nil, nil
	}
	enrollmentIDs := make([]int64, 0, len(enrollments))
	courseIDs := make([]int64, 0, len(enrollments))
	seenCourse := make(map[int64]struct{}, len(enrollments))
	for _, e := range enrollments {
		enrollmentIDs = append(enrollmentIDs, e.ID)
		if _, ok := seenCourse[e.CourseID]; !ok {
			seenCourse[e.CourseID] = struct{}{}
			courseIDs = append(courseIDs, e.CourseID)
		}
	}

	start := time.Now()
	items, err := s.items.ListByEnrollments(ctx, enrollmentIDs)
	s.metrics.ObserveDBQuery("items_by_enrollments", time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load items")
	}

	start = time.Now()
	deadlines, err := s.deadlines.ListDeadlinesByCourses(ctx, courseIDs)
	s.metrics.ObserveDBQuery("deadlines_by_courses", time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load course deadlines")
	}

	byEnrollment := make(map[int64][]models.TutonItem, len(enrollments))
	for _, item := range items {
		byEnrollment[item.EnrollmentID] = append(byEnrollment[item.EnrollmentID], item)
	}
	byCourse := tuton.IndexByCourse(deadlines)

	snapshots := make([]tuton.Snapshot, 0, len(enrollments))
	for _, e := range enrollments {
		snapshots = append(snapshots, tuton.Snapshot{
			Enrollment: e,
			Items:      byEnrollment[e.ID],
			Deadlines:  byCourse[e.CourseID],
		})
	}
	return snapshots, nil
}

func (s *ProgressService) ensureStudent(ctx context.Context, studentID int64) error {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to load student")
	}
	return nil
}

func (s *ProgressService) window(windowDays *int) (int, error) {
	if windowDays == nil {
		return s.cfg.DueSoonWindow, nil
	}
	if *windowDays < 0 || *windowDays > 365 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "windowDays must be between 0 and 365")
	}
	return *windowDays, nil
}

func studentCacheKey(studentID int64, window int) string {
	return cache.Key("progress", "student", strconv.FormatInt(studentID, 10), fmt.Sprintf("w%d", window))
}
