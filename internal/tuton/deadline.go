package tuton

import (
	"strings"
	"time"

	"github.com/caraka20/tutontrack/internal/models"
)

type deadlineKey struct {
	jenis models.Jenis
	sesi  int
}

// DeadlineIndex looks up course master deadlines by (jenis, sesi).
type DeadlineIndex map[deadlineKey]*time.Time

// NewDeadlineIndex indexes the master deadlines of a single course.
func NewDeadlineIndex(deadlines []models.CourseDeadline) DeadlineIndex {
	idx := make(DeadlineIndex, len(deadlines))
	for _, d := range deadlines {
		idx[keyOf(d.Jenis, d.Sesi)] = d.DeadlineAt
	}
	return idx
}

// IndexByCourse groups deadlines of many courses into per-course indexes.
func IndexByCourse(deadlines []models.CourseDeadline) map[int64]DeadlineIndex {
	grouped := make(map[int64][]models.CourseDeadline)
	for _, d := range deadlines {
		grouped[d.CourseID] = append(grouped[d.CourseID], d)
	}
	out := make(map[int64]DeadlineIndex, len(grouped))
	for courseID, list := range grouped {
		out[courseID] = NewDeadlineIndex(list)
	}
	return out
}

// Lookup returns the master deadline for the pair, nil when none is set.
func (idx DeadlineIndex) Lookup(jenis models.Jenis, sesi int) *time.Time {
	if idx == nil {
		return nil
	}
	return idx[keyOf(jenis, sesi)]
}

// Resolve returns the effective deadline of an item. The item override wins
// unconditionally; otherwise the course master for the same (jenis, sesi) is
// used. Nil means the item has no deadline.
func Resolve(item models.TutonItem, idx DeadlineIndex) *time.Time {
	if item.DeadlineAt != nil {
		return item.DeadlineAt
	}
	return idx.Lookup(item.Jenis, item.Sesi)
}

func keyOf(jenis models.Jenis, sesi int) deadlineKey {
	return deadlineKey{jenis: models.Jenis(strings.ToUpper(string(jenis))), sesi: sesi}
}
