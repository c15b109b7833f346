package tuton

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/models"
)

// Field aliases accepted from upstream payloads.
var (
	enrollmentIDKeys = []string{"enrollmentId", "enrollment_id", "id"}
	courseIDKeys     = []string{"courseId", "course_id"}
	courseNameKeys   = []string{"courseName", "course_name", "course", "nama"}
	totalKeys        = []string{"total", "totalItems", "total_items"}
	selesaiKeys      = []string{"selesai", "done", "completed"}
	percentKeys      = []string{"progressPct", "progress_pct", "progress", "percent"}
	overdueKeys      = []string{"overdue"}
	dueSoonKeys      = []string{"dueSoon", "due_soon"}
	lastUpdatedKeys  = []string{"lastUpdated", "last_updated"}
	itemIDKeys       = []string{"itemId", "item_id", "id"}
	jenisKeys        = []string{"jenis", "type"}
	sesiKeys         = []string{"sesi", "session"}
	deadlineKeys     = []string{"deadlineAt", "deadline_at", "deadline"}
	daysLeftKeys     = []string{"daysLeft", "days_left"}
	studentIDKeys    = []string{"studentId", "student_id"}
	rowArrayKeys     = []string{"items", "rows"}
	envelopeKeys     = []string{"data"}
)

// NormalizeStudentProgress decodes a per-student aggregate of unknown shape.
// A missing summary block is recomputed from the enrollment summaries.
func NormalizeStudentProgress(raw interface{}) dto.StudentProgress {
	generic := toGeneric(raw)
	obj := unwrapObject(generic, "items", "summary", "studentId", "student_id")
	if obj == nil {
		summaries := NormalizeSummaries(generic)
		return dto.StudentProgress{Items: summaries, Summary: Totals(summaries)}
	}
	summaries := NormalizeSummaries(obj)
	out := dto.StudentProgress{Items: summaries}
	if id, ok := numberField(obj, studentIDKeys...); ok {
		out.StudentID = int64(id)
	}
	summary, ok := obj["summary"].(map[string]interface{})
	if !ok {
		out.Summary = Totals(summaries)
		return out
	}
	// Fields absent from the summary block are recomputed from the items.
	out.Summary = Totals(summaries)
	fillInt(&out.Summary.Courses, summary, "courses")
	fillInt(&out.Summary.TotalItems, summary, "totalItems", "total_items")
	fillInt(&out.Summary.TotalSelesai, summary, "totalSelesai", "total_selesai")
	fillInt(&out.Summary.Overdue, summary, "overdue")
	if pct, ok := numberField(summary, "avgProgressPct", "avg_progress_pct"); ok {
		out.Summary.AvgProgressPct = ClampPercent(pct)
	}
	return out
}

func fillInt(dst *int, obj map[string]interface{}, keys ...string) {
	if n, ok := numberField(obj, keys...); ok {
		*dst = int(n)
	}
}

// NormalizeSummaries decodes a list of per-enrollment summaries.
func NormalizeSummaries(raw interface{}) []dto.ProgressSummary {
	rows := arrayOf(toGeneric(raw), rowArrayKeys...)
	out := make([]dto.ProgressSummary, 0, len(rows))
	for _, row := range rows {
		if summary, ok := NormalizeSummary(row); ok {
			out = append(out, summary)
		}
	}
	return out
}

// NormalizeSummary decodes one per-enrollment summary. It reports false when
// the value is not an object at all.
func NormalizeSummary(raw interface{}) (dto.ProgressSummary, bool) {
	obj, ok := toGeneric(raw).(map[string]interface{})
	if !ok {
		return dto.ProgressSummary{}, false
	}
	s := dto.ProgressSummary{
		CourseName: stringField(obj, courseNameKeys...),
		Total:      intField(obj, totalKeys...),
		Selesai:    intField(obj, selesaiKeys...),
		Overdue:    intField(obj, overdueKeys...),
		DueSoon:    normalizeDueSoonItems(arrayOf(obj, dueSoonKeys...)),
	}
	if id, ok := numberField(obj, enrollmentIDKeys...); ok {
		s.EnrollmentID = int64(id)
	}
	if id, ok := numberField(obj, courseIDKeys...); ok {
		s.CourseID = int64(id)
	}
	if pct, ok := numberField(obj, percentKeys...); ok {
		s.ProgressPct = ClampPercent(pct)
	} else {
		s.ProgressPct = Percent(s.Selesai, s.Total)
	}
	if ts, ok := timeField(obj, lastUpdatedKeys...); ok {
		s.LastUpdated = &ts
	}
	return s, true
}

// NormalizeDueSoonRows decodes a flattened due-soon row list.
func NormalizeDueSoonRows(raw interface{}) []dto.DueSoonRow {
	rows := arrayOf(toGeneric(raw), rowArrayKeys...)
	out := make([]dto.DueSoonRow, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		jenis, ok := models.ParseJenis(stringField(obj, jenisKeys...))
		if !ok {
			continue
		}
		r := dto.DueSoonRow{
			CourseName: stringField(obj, courseNameKeys...),
			Jenis:      jenis,
			Sesi:       intField(obj, sesiKeys...),
		}
		if id, ok := numberField(obj, "enrollmentId", "enrollment_id"); ok {
			r.EnrollmentID = int64(id)
		}
		if id, ok := numberField(obj, itemIDKeys...); ok {
			r.ItemID = int64(id)
		}
		if ts, ok := timeField(obj, deadlineKeys...); ok {
			r.DeadlineAt = &ts
			if left, ok := numberField(obj, daysLeftKeys...); ok {
				n := int(math.Floor(left))
				r.DaysLeft = &n
			}
		}
		out = append(out, r)
	}
	return out
}

func normalizeDueSoonItems(rows []interface{}) []dto.DueSoonItem {
	out := make([]dto.DueSoonItem, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		jenis, ok := models.ParseJenis(stringField(obj, jenisKeys...))
		if !ok {
			continue
		}
		deadline, ok := timeField(obj, deadlineKeys...)
		if !ok {
			continue
		}
		item := dto.DueSoonItem{
			Jenis:      jenis,
			Sesi:       intField(obj, sesiKeys...),
			DeadlineAt: deadline,
			DaysLeft:   intField(obj, daysLeftKeys...),
		}
		if id, ok := numberField(obj, itemIDKeys...); ok {
			item.ItemID = int64(id)
		}
		out = append(out, item)
	}
	return out
}

// toGeneric converts typed values into the map/slice shape encoding/json
// produces for interface{} targets. Undecodable values become nil.
func toGeneric(raw interface{}) interface{} {
	switch v := raw.(type) {
	case nil, map[string]interface{}, []interface{}, string, float64, bool:
		return v
	case json.RawMessage:
		return decodeBytes(v)
	case []byte:
		return decodeBytes(v)
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	return decodeBytes(payload)
}

func decodeBytes(b []byte) interface{} {
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

// unwrapObject peels up to two "data" envelopes until an object carrying one
// of the marker keys is found. The outermost object is returned otherwise.
func unwrapObject(raw interface{}, markers ...string) map[string]interface{} {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	current := obj
	for depth := 0; depth <= 2; depth++ {
		if hasAny(current, markers...) {
			return current
		}
		next, ok := nestedObject(current)
		if !ok {
			break
		}
		current = next
	}
	return obj
}

// arrayOf returns the array held by raw itself, by one of keys, or by one of
// keys under a "data" envelope. Anything else yields an empty slice.
func arrayOf(raw interface{}, keys ...string) []interface{} {
	if arr, ok := raw.([]interface{}); ok {
		return arr
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	for depth := 0; depth <= 2; depth++ {
		for _, key := range keys {
			if arr, ok := obj[key].([]interface{}); ok {
				return arr
			}
		}
		for _, key := range envelopeKeys {
			if arr, ok := obj[key].([]interface{}); ok {
				return arr
			}
		}
		next, ok := nestedObject(obj)
		if !ok {
			return nil
		}
		obj = next
	}
	return nil
}

func nestedObject(obj map[string]interface{}) (map[string]interface{}, bool) {
	for _, key := range envelopeKeys {
		if next, ok := obj[key].(map[string]interface{}); ok {
			return next, true
		}
	}
	return nil, false
}

func hasAny(obj map[string]interface{}, keys ...string) bool {
	for _, key := range keys {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}

func numberField(obj map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		if n, ok := asNumber(obj[key]); ok {
			return n, true
		}
	}
	return 0, false
}

func intField(obj map[string]interface{}, keys ...string) int {
	n, ok := numberField(obj, keys...)
	if !ok {
		return 0
	}
	return int(n)
}

func stringField(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func timeField(obj map[string]interface{}, keys ...string) (time.Time, bool) {
	for _, key := range keys {
		raw := stringField(obj, key)
		if raw == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return ts.UTC(), true
		}
		if ts, err := time.Parse("2006-01-02", raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	}
	return 0, false
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
