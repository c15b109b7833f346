package models

import "time"

// Enrollment links one student to one course.
type Enrollment struct {
	ID        int64     `db:"id" json:"id"`
	StudentID int64     `db:"student_id" json:"studentId"`
	CourseID  int64     `db:"course_id" json:"courseId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	CourseName  string `db:"course_name" json:"courseName"`
	StudentName string `db:"student_name" json:"studentName"`
	StudentNIM  string `db:"student_nim" json:"studentNim"`
}
