package models

import "time"

// Course is a subject a student can be enrolled in.
type Course struct {
	ID        int64     `db:"id" json:"id"`
	Nama      string    `db:"nama" json:"nama"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// CourseDeadline is the master deadline of one (jenis, sesi) pair within a course.
type CourseDeadline struct {
	ID         int64      `db:"id" json:"id"`
	CourseID   int64      `db:"course_id" json:"courseId"`
	Jenis      Jenis      `db:"jenis" json:"jenis"`
	Sesi       int        `db:"sesi" json:"sesi"`
	DeadlineAt *time.Time `db:"deadline_at" json:"deadlineAt"`
}
