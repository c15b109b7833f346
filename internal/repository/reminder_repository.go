package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/caraka20/tutontrack/internal/models"
)

const reminderColumns = `id, item_id, source, status, channel, note, created_by_admin_id, offset_min, active, created_at, sent_at`

// ReminderRepository persists reminders.
type ReminderRepository struct {
	db *sqlx.DB
}

// NewReminderRepository constructs the repository.
func NewReminderRepository(db *sqlx.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Create inserts a reminder and fills generated columns.
func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	query := `INSERT INTO reminders (item_id, source, status, channel, note, created_by_admin_id, offset_min, active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING ` + reminderColumns
	if err := r.db.GetContext(ctx, reminder, query,
		reminder.ItemID,
		reminder.Source,
		reminder.Status,
		reminder.Channel,
		reminder.Note,
		reminder.CreatedByAdminID,
		reminder.OffsetMin,
		reminder.Active,
	); err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

// CreateWebPreference inserts a pending WEB reminder. The partial unique index
//
//	CREATE UNIQUE INDEX reminders_pending_web_item_uidx ON reminders (item_id)
//	    WHERE source = 'WEB' AND status = 'PENDING';
//
// keeps one such reminder per item. When one already exists nothing is
// written and ErrDuplicate is returned.
func (r *ReminderRepository) CreateWebPreference(ctx context.Context, reminder *models.Reminder) error {
	query := `INSERT INTO reminders (item_id, source, status, channel, note, created_by_admin_id, offset_min, active)
        VALUES ($1, 'WEB', 'PENDING', $2, $3, NULL, $4, $5)
        ON CONFLICT (item_id) WHERE source = 'WEB' AND status = 'PENDING' DO NOTHING
        RETURNING ` + reminderColumns
	err := r.db.GetContext(ctx, reminder, query,
		reminder.ItemID,
		reminder.Channel,
		reminder.Note,
		reminder.OffsetMin,
		reminder.Active,
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return ErrDuplicate
	}
	return fmt.Errorf("create web reminder: %w", err)
}

// FindByID returns a reminder by identifier.
func (r *ReminderRepository) FindByID(ctx context.Context, id int64) (*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`
	var reminder models.Reminder
	if err := r.db.GetContext(ctx, &reminder, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find reminder: %w", err)
	}
	return &reminder, nil
}

// ListByItem returns the reminders of an item, oldest first.
func (r *ReminderRepository) ListByItem(ctx context.Context, itemID int64) ([]models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE item_id = $1 ORDER BY created_at, id`
	var reminders []models.Reminder
	if err := r.db.SelectContext(ctx, &reminders, query, itemID); err != nil {
		return nil, fmt.Errorf("list item reminders: %w", err)
	}
	return reminders, nil
}

// FindPendingWebByItem returns the pending WEB preference of an item.
func (r *ReminderRepository) FindPendingWebByItem(ctx context.Context, itemID int64) (*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders
        WHERE item_id = $1 AND source = $2 AND status = $3
        ORDER BY created_at DESC, id DESC LIMIT 1`
	var reminder models.Reminder
	if err := r.db.GetContext(ctx, &reminder, query, itemID, models.ReminderSourceWeb, models.ReminderStatusPending); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find web reminder: %w", err)
	}
	return &reminder, nil
}

// TransitionFromPending moves a reminder out of PENDING. The update only
// applies while the stored status is still PENDING; otherwise sql.ErrNoRows is
// returned and nothing changes.
func (r *ReminderRepository) TransitionFromPending(ctx context.Context, id int64, to models.ReminderStatus, sentAt *time.Time) error {
	const query = `UPDATE reminders SET status = $2, sent_at = COALESCE($3, sent_at)
        WHERE id = $1 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, id, to, sentAt, models.ReminderStatusPending)
	if err != nil {
		return fmt.Errorf("transition reminder: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition reminder rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdatePreference writes offset and active flag of a WEB reminder.
func (r *ReminderRepository) UpdatePreference(ctx context.Context, id int64, offsetMin *int, active bool) (*models.Reminder, error) {
	query := `UPDATE reminders SET offset_min = $2, active = $3
        WHERE id = $1 AND source = $4 RETURNING ` + reminderColumns
	var reminder models.Reminder
	if err := r.db.GetContext(ctx, &reminder, query, id, offsetMin, active, models.ReminderSourceWeb); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update reminder preference: %w", err)
	}
	return &reminder, nil
}

// ListDueCandidates returns active pending WEB reminders joined with the
// deadline inputs of their items.
func (r *ReminderRepository) ListDueCandidates(ctx context.Context) ([]models.ReminderCandidate, error) {
	const query = `SELECT r.id, r.item_id, r.source, r.status, r.channel, r.note, r.created_by_admin_id,
        r.offset_min, r.active, r.created_at, r.sent_at,
        i.enrollment_id, e.course_id, i.jenis, i.sesi, i.status AS item_status, i.deadline_at AS item_deadline_at
        FROM reminders r
        JOIN tuton_items i ON i.id = r.item_id
        JOIN enrollments e ON e.id = i.enrollment_id
        WHERE r.source = $1 AND r.active AND r.status = $2
        ORDER BY r.id`
	var candidates []models.ReminderCandidate
	if err := r.db.SelectContext(ctx, &candidates, query, models.ReminderSourceWeb, models.ReminderStatusPending); err != nil {
		return nil, fmt.Errorf("list due reminder candidates: %w", err)
	}
	return candidates, nil
}
