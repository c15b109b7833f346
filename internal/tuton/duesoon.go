package tuton

import (
	"math"
	"sort"
	"time"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/models"
)

const day = 24 * time.Hour

type candidate struct {
	item     models.TutonItem
	deadline time.Time
	daysLeft int
}

// DaysLeft returns floor((deadline - now) / 1 day). Negative means overdue.
func DaysLeft(deadline, now time.Time) int {
	return int(math.Floor(float64(deadline.Sub(now)) / float64(day)))
}

// DueSoon lists incomplete items with a resolvable deadline whose days left
// is at most windowDays, overdue ones included, ascending by days left.
func DueSoon(items []models.TutonItem, idx DeadlineIndex, now time.Time, windowDays int) []dto.DueSoonItem {
	out := make([]dto.DueSoonItem, 0)
	for _, c := range candidates(items, idx, now) {
		if c.daysLeft > windowDays {
			continue
		}
		out = append(out, dto.DueSoonItem{
			ItemID:     c.item.ID,
			Jenis:      c.item.Jenis,
			Sesi:       c.item.Sesi,
			DeadlineAt: c.deadline,
			DaysLeft:   c.daysLeft,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysLeft < out[j].DaysLeft
	})
	return out
}

// CountOverdue counts incomplete items whose deadline has already passed by
// at least one day boundary.
func CountOverdue(items []models.TutonItem, idx DeadlineIndex, now time.Time) int {
	n := 0
	for _, c := range candidates(items, idx, now) {
		if c.daysLeft < 0 {
			n++
		}
	}
	return n
}

// FlattenDueSoon builds the cross-enrollment row list. Rows without a
// deadline are only listed when includeUndated is set and always sort last.
func FlattenDueSoon(snapshots []Snapshot, now time.Time, windowDays int, includeUndated bool) []dto.DueSoonRow {
	rows := make([]dto.DueSoonRow, 0)
	for _, s := range snapshots {
		for _, item := range s.Items {
			if item.Status.IsSelesai() {
				continue
			}
			row := dto.DueSoonRow{
				EnrollmentID: s.Enrollment.ID,
				CourseName:   s.Enrollment.CourseName,
				ItemID:       item.ID,
				Jenis:        item.Jenis,
				Sesi:         item.Sesi,
			}
			deadline := Resolve(item, s.Deadlines)
			if deadline == nil {
				if includeUndated {
					rows = append(rows, row)
				}
				continue
			}
			left := DaysLeft(*deadline, now)
			if left > windowDays {
				continue
			}
			at := deadline.UTC()
			row.DeadlineAt = &at
			row.DaysLeft = &left
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].DaysLeft, rows[j].DaysLeft
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return rows
}

func candidates(items []models.TutonItem, idx DeadlineIndex, now time.Time) []candidate {
	out := make([]candidate, 0, len(items))
	for _, item := range items {
		if item.Status.IsSelesai() {
			continue
		}
		deadline := Resolve(item, idx)
		if deadline == nil {
			continue
		}
		out = append(out, candidate{
			item:     item,
			deadline: deadline.UTC(),
			daysLeft: DaysLeft(*deadline, now),
		})
	}
	return out
}
