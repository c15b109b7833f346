package tuton

import (
	"errors"
	"fmt"
	"time"

	"github.com/caraka20/tutontrack/internal/models"
)

var (
	// ErrReminderConflict reports a transition attempted from a non-pending state.
	ErrReminderConflict = errors.New("reminder is not pending")
	// ErrInvalidTransition reports a target state no transition leads to.
	ErrInvalidTransition = errors.New("invalid reminder transition")
)

// CheckTransition validates a reminder status change. Only PENDING reminders
// move, and only to SENT or CANCELLED.
func CheckTransition(from, to models.ReminderStatus) error {
	switch to {
	case models.ReminderStatusSent, models.ReminderStatusCancelled:
	case models.ReminderStatusPending:
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}

	switch from {
	case models.ReminderStatusPending:
		return nil
	case models.ReminderStatusSent, models.ReminderStatusCancelled:
		return fmt.Errorf("%w: already %s", ErrReminderConflict, from)
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, from)
	}
}

// Apply performs a checked transition on an in-memory reminder.
func Apply(r *models.Reminder, to models.ReminderStatus, now time.Time) error {
	if err := CheckTransition(r.Status, to); err != nil {
		return err
	}
	r.Status = to
	if to == models.ReminderStatusSent {
		sentAt := now.UTC()
		r.SentAt = &sentAt
	}
	return nil
}

// DueAt returns the instant a preference reminder fires for a deadline.
func DueAt(r models.Reminder, deadline time.Time) time.Time {
	offset := 0
	if r.OffsetMin != nil {
		offset = *r.OffsetMin
	}
	return deadline.Add(-time.Duration(offset) * time.Minute)
}

// IsDue reports whether an active WEB preference reminder should fire.
func IsDue(r models.Reminder, deadline *time.Time, now time.Time) bool {
	if r.Source != models.ReminderSourceWeb || !r.Active || r.Status != models.ReminderStatusPending {
		return false
	}
	if deadline == nil {
		return false
	}
	return !now.Before(DueAt(r, *deadline))
}
