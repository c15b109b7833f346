package tuton

import (
	"math"
	"time"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/models"
)

// Progress is the completion tally of one enrollment.
type Progress struct {
	Total   int
	Done    int
	Percent int
}

// Snapshot is everything the engine needs to summarise one enrollment.
type Snapshot struct {
	Enrollment models.EnrollmentDetail
	Items      []models.TutonItem
	Deadlines  DeadlineIndex
}

// Aggregate counts items and completed items. An explicit percentage from an
// upstream source is kept (clamped); otherwise it is derived from the counts.
func Aggregate(items []models.TutonItem, explicitPct *float64) Progress {
	p := Progress{Total: len(items)}
	for _, item := range items {
		if item.Status.IsSelesai() {
			p.Done++
		}
	}
	if explicitPct != nil {
		p.Percent = ClampPercent(*explicitPct)
	} else {
		p.Percent = Percent(p.Done, p.Total)
	}
	return p
}

// Percent returns round_half_up(done/total*100), or 0 when total is 0.
// Integer arithmetic keeps exact halves such as 23/40 from rounding down.
func Percent(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return (done*200 + total) / (2 * total)
}

// ClampPercent rounds half-up and clamps into [0, 100].
func ClampPercent(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	if v <= 0 {
		return 0
	}
	if v >= 100 {
		return 100
	}
	return RoundHalfUp(v)
}

// RoundHalfUp rounds to the nearest integer with .5 going up.
func RoundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Summarize builds the per-enrollment progress summary.
func Summarize(s Snapshot, now time.Time, windowDays int) dto.ProgressSummary {
	progress := Aggregate(s.Items, nil)
	return dto.ProgressSummary{
		EnrollmentID: s.Enrollment.ID,
		CourseID:     s.Enrollment.CourseID,
		CourseName:   s.Enrollment.CourseName,
		Total:        progress.Total,
		Selesai:      progress.Done,
		ProgressPct:  progress.Percent,
		Overdue:      CountOverdue(s.Items, s.Deadlines, now),
		DueSoon:      DueSoon(s.Items, s.Deadlines, now, windowDays),
		LastUpdated:  lastUpdated(s.Items),
	}
}

// SummarizeStudent rolls per-enrollment summaries into the student aggregate.
// The average is the unweighted mean of enrollment percentages.
func SummarizeStudent(studentID int64, summaries []dto.ProgressSummary) dto.StudentProgress {
	if summaries == nil {
		summaries = []dto.ProgressSummary{}
	}
	return dto.StudentProgress{
		StudentID: studentID,
		Items:     summaries,
		Summary:   Totals(summaries),
	}
}

// Totals computes the student-level roll-up of enrollment summaries.
func Totals(summaries []dto.ProgressSummary) dto.StudentTotals {
	totals := dto.StudentTotals{Courses: len(summaries)}
	pctSum := 0
	for _, s := range summaries {
		totals.TotalItems += s.Total
		totals.TotalSelesai += s.Selesai
		totals.Overdue += s.Overdue
		pctSum += s.ProgressPct
	}
	if len(summaries) > 0 {
		totals.AvgProgressPct = Percent(pctSum, 100*len(summaries))
	}
	return totals
}

func lastUpdated(items []models.TutonItem) *time.Time {
	var latest time.Time
	for _, item := range items {
		if item.UpdatedAt.After(latest) {
			latest = item.UpdatedAt
		}
		if item.SelesaiAt != nil && item.SelesaiAt.After(latest) {
			latest = *item.SelesaiAt
		}
	}
	if latest.IsZero() {
		return nil
	}
	latest = latest.UTC()
	return &latest
}
