package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/caraka20/tutontrack/internal/models"
)

const itemColumns = `id, enrollment_id, jenis, sesi, status, nilai, deskripsi, deadline_at, selesai_at, created_at, updated_at`

// TutonItemRepository persists checklist items.
type TutonItemRepository struct {
	db *sqlx.DB
}

// NewTutonItemRepository constructs the repository.
func NewTutonItemRepository(db *sqlx.DB) *TutonItemRepository {
	return &TutonItemRepository{db: db}
}

// ListByEnrollment returns the items of one enrollment in creation order.
func (r *TutonItemRepository) ListByEnrollment(ctx context.Context, enrollmentID int64) ([]models.TutonItem, error) {
	query := `SELECT ` + itemColumns + ` FROM tuton_items WHERE enrollment_id = $1 ORDER BY created_at, id`
	var items []models.TutonItem
	if err := r.db.SelectContext(ctx, &items, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list enrollment items: %w", err)
	}
	return items, nil
}

// ListByEnrollments returns the items of several enrollments in creation order.
func (r *TutonItemRepository) ListByEnrollments(ctx context.Context, enrollmentIDs []int64) ([]models.TutonItem, error) {
	if len(enrollmentIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + itemColumns + ` FROM tuton_items WHERE enrollment_id = ANY($1) ORDER BY created_at, id`
	var items []models.TutonItem
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(enrollmentIDs)); err != nil {
		return nil, fmt.Errorf("list items by enrollments: %w", err)
	}
	return items, nil
}

// FindDetailByID returns an item with its owning student and course.
func (r *TutonItemRepository) FindDetailByID(ctx context.Context, id int64) (*models.ItemDetail, error) {
	const query = `SELECT i.id, i.enrollment_id, i.jenis, i.sesi, i.status, i.nilai, i.deskripsi, i.deadline_at,
        i.selesai_at, i.created_at, i.updated_at, e.student_id, e.course_id
        FROM tuton_items i JOIN enrollments e ON e.id = i.enrollment_id
        WHERE i.id = $1`
	var detail models.ItemDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find item: %w", err)
	}
	return &detail, nil
}

// UpdateStatus writes status and completion time. Nil nilai or deskripsi keep
// the stored value.
func (r *TutonItemRepository) UpdateStatus(ctx context.Context, id int64, status models.ItemStatus, nilai *float64, deskripsi *string, selesaiAt *time.Time, updatedAt time.Time) (*models.TutonItem, error) {
	query := `UPDATE tuton_items SET status = $2, nilai = COALESCE($3, nilai), deskripsi = COALESCE($4, deskripsi),
        selesai_at = $5, updated_at = $6 WHERE id = $1 RETURNING ` + itemColumns
	var item models.TutonItem
	if err := r.db.GetContext(ctx, &item, query, id, status, nilai, deskripsi, selesaiAt, updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update item status: %w", err)
	}
	return &item, nil
}

// UpdateDeadline sets or clears the item deadline override.
func (r *TutonItemRepository) UpdateDeadline(ctx context.Context, id int64, deadlineAt *time.Time, updatedAt time.Time) (*models.TutonItem, error) {
	query := `UPDATE tuton_items SET deadline_at = $2, updated_at = $3 WHERE id = $1 RETURNING ` + itemColumns
	var item models.TutonItem
	if err := r.db.GetContext(ctx, &item, query, id, deadlineAt, updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update item deadline: %w", err)
	}
	return &item, nil
}

// Create inserts a single item. A clash on (enrollment, jenis, sesi) yields
// ErrDuplicate.
func (r *TutonItemRepository) Create(ctx context.Context, item *models.TutonItem) error {
	query := `INSERT INTO tuton_items (enrollment_id, jenis, sesi, status, deadline_at)
        VALUES ($1, $2, $3, $4, $5) RETURNING ` + itemColumns
	if err := r.db.GetContext(ctx, item, query, item.EnrollmentID, item.Jenis, item.Sesi, item.Status, item.DeadlineAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}
