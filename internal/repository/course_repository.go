package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/caraka20/tutontrack/internal/models"
)

// CourseRepository reads courses and maintains their master deadlines.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	const query = `SELECT id, nama, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// ListDeadlines returns the master deadlines of a course.
func (r *CourseRepository) ListDeadlines(ctx context.Context, courseID int64) ([]models.CourseDeadline, error) {
	const query = `SELECT id, course_id, jenis, sesi, deadline_at FROM course_deadlines
        WHERE course_id = $1 ORDER BY jenis, sesi`
	var deadlines []models.CourseDeadline
	if err := r.db.SelectContext(ctx, &deadlines, query, courseID); err != nil {
		return nil, fmt.Errorf("list course deadlines: %w", err)
	}
	return deadlines, nil
}

// ListDeadlinesByCourses returns the master deadlines of several courses.
func (r *CourseRepository) ListDeadlinesByCourses(ctx context.Context, courseIDs []int64) ([]models.CourseDeadline, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, course_id, jenis, sesi, deadline_at FROM course_deadlines
        WHERE course_id = ANY($1) ORDER BY course_id, jenis, sesi`
	var deadlines []models.CourseDeadline
	if err := r.db.SelectContext(ctx, &deadlines, query, pq.Array(courseIDs)); err != nil {
		return nil, fmt.Errorf("list deadlines by courses: %w", err)
	}
	return deadlines, nil
}

// UpsertDeadline writes the master deadline of a (jenis, sesi) pair.
func (r *CourseRepository) UpsertDeadline(ctx context.Context, deadline *models.CourseDeadline) error {
	const query = `INSERT INTO course_deadlines (course_id, jenis, sesi, deadline_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (course_id, jenis, sesi) DO UPDATE SET deadline_at = EXCLUDED.deadline_at
RETURNING id, course_id, jenis, sesi, deadline_at`
	if err := r.db.GetContext(ctx, deadline, query, deadline.CourseID, deadline.Jenis, deadline.Sesi, deadline.DeadlineAt); err != nil {
		return fmt.Errorf("upsert course deadline: %w", err)
	}
	return nil
}
