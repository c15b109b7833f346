package models

import "time"

// ReminderSource tells who created a reminder.
type ReminderSource string

// Reminder sources.
const (
	ReminderSourceAdmin ReminderSource = "ADMIN"
	ReminderSourceWeb   ReminderSource = "WEB"
)

// Valid reports whether s is a known source.
func (s ReminderSource) Valid() bool {
	switch s {
	case ReminderSourceAdmin, ReminderSourceWeb:
		return true
	}
	return false
}

// ReminderStatus is the lifecycle state of a reminder.
type ReminderStatus string

// Reminder statuses. SENT and CANCELLED are terminal.
const (
	ReminderStatusPending   ReminderStatus = "PENDING"
	ReminderStatusSent      ReminderStatus = "SENT"
	ReminderStatusCancelled ReminderStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s ReminderStatus) Valid() bool {
	switch s {
	case ReminderStatusPending, ReminderStatusSent, ReminderStatusCancelled:
		return true
	}
	return false
}

// ReminderChannel is the delivery channel of a reminder.
type ReminderChannel string

// ReminderChannelWA is the only channel in use.
const ReminderChannelWA ReminderChannel = "WA"

// Reminder is a follow-up notice attached to a tutoring item.
type Reminder struct {
	ID               int64           `db:"id" json:"id"`
	ItemID           int64           `db:"item_id" json:"itemId"`
	Source           ReminderSource  `db:"source" json:"source"`
	Status           ReminderStatus  `db:"status" json:"status"`
	Channel          ReminderChannel `db:"channel" json:"channel"`
	Note             *string         `db:"note" json:"note,omitempty"`
	CreatedByAdminID *int64          `db:"created_by_admin_id" json:"createdByAdminId,omitempty"`
	OffsetMin        *int            `db:"offset_min" json:"offsetMin,omitempty"`
	Active           bool            `db:"active" json:"active"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	SentAt           *time.Time      `db:"sent_at" json:"sentAt,omitempty"`
}

// ReminderCandidate joins a reminder with the deadline inputs of its item.
type ReminderCandidate struct {
	Reminder
	EnrollmentID   int64      `db:"enrollment_id" json:"enrollmentId"`
	CourseID       int64      `db:"course_id" json:"courseId"`
	Jenis          Jenis      `db:"jenis" json:"jenis"`
	Sesi           int        `db:"sesi" json:"sesi"`
	ItemStatus     ItemStatus `db:"item_status" json:"itemStatus"`
	ItemDeadlineAt *time.Time `db:"item_deadline_at" json:"itemDeadlineAt,omitempty"`
}
