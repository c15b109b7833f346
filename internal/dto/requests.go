package dto

import "time"

// EnrollRequest enrolls a student into a course.
type EnrollRequest struct {
	StudentID int64 `json:"studentId" validate:"required,gt=0"`
	CourseID  int64 `json:"courseId" validate:"required,gt=0"`
}

// UpdateItemStatusRequest changes the completion state of an item.
type UpdateItemStatusRequest struct {
	Status    string   `json:"status" validate:"required"`
	Nilai     *float64 `json:"nilai" validate:"omitempty,gte=0,lte=100"`
	Deskripsi *string  `json:"deskripsi" validate:"omitempty,max=1000"`
}

// SetItemDeadlineRequest sets or clears an item deadline override.
type SetItemDeadlineRequest struct {
	DeadlineAt *time.Time `json:"deadlineAt"`
}

// AddQuizRequest adds a QUIZ item to an enrollment.
type AddQuizRequest struct {
	Sesi       int        `json:"sesi" validate:"required,gte=1,lte=99"`
	DeadlineAt *time.Time `json:"deadlineAt"`
}

// UpsertCourseDeadlineRequest writes one course master deadline.
type UpsertCourseDeadlineRequest struct {
	Jenis      string     `json:"jenis" validate:"required"`
	Sesi       int        `json:"sesi" validate:"required,gte=1,lte=99"`
	DeadlineAt *time.Time `json:"deadlineAt"`
}

// CreateReminderRequest creates an ADMIN reminder on an item.
type CreateReminderRequest struct {
	Note *string `json:"note" validate:"omitempty,max=500"`
}

// ReminderPreferenceRequest upserts the WEB reminder preference of an item.
type ReminderPreferenceRequest struct {
	OffsetMin *int  `json:"offsetMin" validate:"omitempty,gte=0,lte=43200"`
	Active    *bool `json:"active"`
}

// SetReminderActiveRequest toggles a WEB reminder.
type SetReminderActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// SetReminderOffsetRequest changes how early a WEB reminder fires.
type SetReminderOffsetRequest struct {
	OffsetMin *int `json:"offsetMin" validate:"required,gte=0,lte=43200"`
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReminderDueEvent is published for the external notifier when a reminder is due.
type ReminderDueEvent struct {
	EventID    string    `json:"eventId"`
	ReminderID int64     `json:"reminderId"`
	ItemID     int64     `json:"itemId"`
	Channel    string    `json:"channel"`
	OffsetMin  int       `json:"offsetMin"`
	DeadlineAt time.Time `json:"deadlineAt"`
	DueAt      time.Time `json:"dueAt"`
	EmittedAt  time.Time `json:"emittedAt"`
}
