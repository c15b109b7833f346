package dto

import (
	"time"

	"github.com/caraka20/tutontrack/internal/models"
)

// DueSoonItem is an incomplete item ranked by days left before its deadline.
type DueSoonItem struct {
	ItemID     int64        `json:"itemId"`
	Jenis      models.Jenis `json:"jenis"`
	Sesi       int          `json:"sesi"`
	DeadlineAt time.Time    `json:"deadlineAt"`
	DaysLeft   int          `json:"daysLeft"`
}

// ProgressSummary aggregates one enrollment's checklist.
type ProgressSummary struct {
	EnrollmentID int64         `json:"enrollmentId"`
	CourseID     int64         `json:"courseId"`
	CourseName   string        `json:"courseName"`
	Total        int           `json:"total"`
	Selesai      int           `json:"selesai"`
	ProgressPct  int           `json:"progressPct"`
	Overdue      int           `json:"overdue"`
	DueSoon      []DueSoonItem `json:"dueSoon"`
	LastUpdated  *time.Time    `json:"lastUpdated,omitempty"`
}

// StudentTotals rolls up every enrollment summary of a student.
type StudentTotals struct {
	Courses        int `json:"courses"`
	TotalItems     int `json:"totalItems"`
	TotalSelesai   int `json:"totalSelesai"`
	AvgProgressPct int `json:"avgProgressPct"`
	Overdue        int `json:"overdue"`
}

// StudentProgress is the per-student progress aggregate.
type StudentProgress struct {
	StudentID int64             `json:"studentId"`
	Items     []ProgressSummary `json:"items"`
	Summary   StudentTotals     `json:"summary"`
}

// DueSoonRow is one entry of the flattened cross-enrollment due list.
// DeadlineAt and DaysLeft are nil for items without a resolvable deadline.
type DueSoonRow struct {
	EnrollmentID int64        `json:"enrollmentId"`
	CourseName   string       `json:"courseName"`
	ItemID       int64        `json:"itemId"`
	Jenis        models.Jenis `json:"jenis"`
	Sesi         int          `json:"sesi"`
	DeadlineAt   *time.Time   `json:"deadlineAt"`
	DaysLeft     *int         `json:"daysLeft"`
}

// DueReminder is a reminder whose fire time has been reached.
type DueReminder struct {
	ReminderID int64                  `json:"reminderId"`
	ItemID     int64                  `json:"itemId"`
	Channel    models.ReminderChannel `json:"channel"`
	OffsetMin  int                    `json:"offsetMin"`
	DeadlineAt time.Time              `json:"deadlineAt"`
	DueAt      time.Time              `json:"dueAt"`
}
