package tuton

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caraka20/tutontrack/internal/models"
)

func ts(raw string) *time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestResolveFallsBackToCourseDeadline(t *testing.T) {
	idx := NewDeadlineIndex([]models.CourseDeadline{
		{CourseID: 1, Jenis: models.JenisDiskusi, Sesi: 3, DeadlineAt: ts("2024-05-01T00:00:00Z")},
	})
	item := models.TutonItem{Jenis: models.JenisDiskusi, Sesi: 3}

	got := Resolve(item, idx)
	require.NotNil(t, got)
	assert.Equal(t, "2024-05-01T00:00:00Z", got.Format(time.RFC3339))
}

func TestResolveItemOverrideWins(t *testing.T) {
	idx := NewDeadlineIndex([]models.CourseDeadline{
		{CourseID: 1, Jenis: models.JenisTugas, Sesi: 5, DeadlineAt: ts("2024-05-01T00:00:00Z")},
	})
	override := ts("2024-06-10T12:00:00Z")
	item := models.TutonItem{Jenis: models.JenisTugas, Sesi: 5, DeadlineAt: override}

	assert.Same(t, override, Resolve(item, idx))
}

func TestResolveWithoutDeadline(t *testing.T) {
	idx := NewDeadlineIndex([]models.CourseDeadline{
		{CourseID: 1, Jenis: models.JenisAbsen, Sesi: 1},
	})

	assert.Nil(t, Resolve(models.TutonItem{Jenis: models.JenisAbsen, Sesi: 1}, idx))
	assert.Nil(t, Resolve(models.TutonItem{Jenis: models.JenisAbsen, Sesi: 2}, idx))
	assert.Nil(t, Resolve(models.TutonItem{Jenis: models.JenisQuiz, Sesi: 1}, nil))
}

func TestResolveJenisIsCaseInsensitive(t *testing.T) {
	idx := NewDeadlineIndex([]models.CourseDeadline{
		{CourseID: 1, Jenis: "diskusi", Sesi: 2, DeadlineAt: ts("2024-05-02T00:00:00Z")},
	})

	assert.NotNil(t, Resolve(models.TutonItem{Jenis: models.JenisDiskusi, Sesi: 2}, idx))
}

func TestIndexByCourseSeparatesCourses(t *testing.T) {
	byCourse := IndexByCourse([]models.CourseDeadline{
		{CourseID: 1, Jenis: models.JenisDiskusi, Sesi: 1, DeadlineAt: ts("2024-05-01T00:00:00Z")},
		{CourseID: 2, Jenis: models.JenisDiskusi, Sesi: 1, DeadlineAt: ts("2024-06-01T00:00:00Z")},
	})

	require.Len(t, byCourse, 2)
	assert.Equal(t, 5, int(byCourse[1].Lookup(models.JenisDiskusi, 1).Month()))
	assert.Equal(t, 6, int(byCourse[2].Lookup(models.JenisDiskusi, 1).Month()))
}
