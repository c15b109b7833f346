package models

import (
	"strings"
	"time"
)

// Jenis is the kind of a tutoring checklist item.
type Jenis string

// Supported item kinds.
const (
	JenisDiskusi Jenis = "DISKUSI"
	JenisAbsen   Jenis = "ABSEN"
	JenisTugas   Jenis = "TUGAS"
	JenisQuiz    Jenis = "QUIZ"
)

// Valid reports whether j is a known item kind.
func (j Jenis) Valid() bool {
	switch j {
	case JenisDiskusi, JenisAbsen, JenisTugas, JenisQuiz:
		return true
	}
	return false
}

// ParseJenis normalises a raw token into a Jenis.
func ParseJenis(raw string) (Jenis, bool) {
	j := Jenis(strings.ToUpper(strings.TrimSpace(raw)))
	return j, j.Valid()
}

// ItemStatus tracks whether an item has been completed.
type ItemStatus string

// Item statuses.
const (
	ItemStatusBelum   ItemStatus = "BELUM"
	ItemStatusSelesai ItemStatus = "SELESAI"
)

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusBelum, ItemStatusSelesai:
		return true
	}
	return false
}

// IsSelesai compares case-insensitively against SELESAI.
func (s ItemStatus) IsSelesai() bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), string(ItemStatusSelesai))
}

// TutonItem is one graded checklist entry of an enrollment.
type TutonItem struct {
	ID           int64      `db:"id" json:"id"`
	EnrollmentID int64      `db:"enrollment_id" json:"enrollmentId"`
	Jenis        Jenis      `db:"jenis" json:"jenis"`
	Sesi         int        `db:"sesi" json:"sesi"`
	Status       ItemStatus `db:"status" json:"status"`
	Nilai        *float64   `db:"nilai" json:"nilai,omitempty"`
	Deskripsi    *string    `db:"deskripsi" json:"deskripsi,omitempty"`
	DeadlineAt   *time.Time `db:"deadline_at" json:"deadlineAt,omitempty"`
	SelesaiAt    *time.Time `db:"selesai_at" json:"selesaiAt,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// ItemDetail carries the owning enrollment context of an item.
type ItemDetail struct {
	TutonItem
	StudentID int64 `db:"student_id" json:"studentId"`
	CourseID  int64 `db:"course_id" json:"courseId"`
}

// ItemSeed describes an item to create when seeding a checklist.
type ItemSeed struct {
	Jenis Jenis
	Sesi  int
}

// DefaultChecklist returns the items every new enrollment starts with.
func DefaultChecklist() []ItemSeed {
	seeds := make([]ItemSeed, 0, 19)
	for sesi := 1; sesi <= 8; sesi++ {
		seeds = append(seeds, ItemSeed{Jenis: JenisDiskusi, Sesi: sesi})
	}
	for sesi := 1; sesi <= 8; sesi++ {
		seeds = append(seeds, ItemSeed{Jenis: JenisAbsen, Sesi: sesi})
	}
	for _, sesi := range []int{3, 5, 7} {
		seeds = append(seeds, ItemSeed{Jenis: JenisTugas, Sesi: sesi})
	}
	return seeds
}
