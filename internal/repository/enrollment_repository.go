package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/caraka20/tutontrack/internal/models"
)

const enrollmentDetailSelect = `SELECT e.id, e.student_id, e.course_id, e.created_at,
        c.nama AS course_name, s.nama AS student_name, s.nim AS student_nim
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        JOIN students s ON s.id = e.student_id`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListDetailsByStudent returns every enrollment of a student with course info.
func (r *EnrollmentRepository) ListDetailsByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.student_id = $1 ORDER BY e.created_at, e.id`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return details, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id int64) (*models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &detail, nil
}

// Exists checks whether the student is already enrolled in the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, courseID int64) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// CreateWithChecklist inserts the enrollment and its seeded items atomically.
func (r *EnrollmentRepository) CreateWithChecklist(ctx context.Context, enrollment *models.Enrollment, seeds []models.ItemSeed) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	const insertEnrollment = `INSERT INTO enrollments (student_id, course_id) VALUES ($1, $2) RETURNING id, created_at`
	if err := tx.QueryRowxContext(ctx, insertEnrollment, enrollment.StudentID, enrollment.CourseID).
		Scan(&enrollment.ID, &enrollment.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create enrollment: %w", err)
	}

	const insertItem = `INSERT INTO tuton_items (enrollment_id, jenis, sesi, status) VALUES ($1, $2, $3, $4)`
	for _, seed := range seeds {
		if _, err := tx.ExecContext(ctx, insertItem, enrollment.ID, seed.Jenis, seed.Sesi, models.ItemStatusBelum); err != nil {
			return fmt.Errorf("seed %s %d: %w", seed.Jenis, seed.Sesi, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	commit = true
	return nil
}

// CountItems returns the number of checklist items of an enrollment.
func (r *EnrollmentRepository) CountItems(ctx context.Context, enrollmentID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM tuton_items WHERE enrollment_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, enrollmentID); err != nil {
		return 0, fmt.Errorf("count enrollment items: %w", err)
	}
	return total, nil
}

// DeleteCascade removes the enrollment with its items and their reminders.
// It returns sql.ErrNoRows when the enrollment does not exist.
func (r *EnrollmentRepository) DeleteCascade(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete enrollment: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE item_id IN (SELECT id FROM tuton_items WHERE enrollment_id = $1)`, id); err != nil {
		return fmt.Errorf("delete enrollment reminders: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tuton_items WHERE enrollment_id = $1`, id); err != nil {
		return fmt.Errorf("delete enrollment items: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete enrollment rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete enrollment: %w", err)
	}
	commit = true
	return nil
}
