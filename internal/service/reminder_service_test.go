package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/models"
	appErrors "github.com/caraka20/tutontrack/pkg/errors"
)

type reminderFixture struct {
	store   *memStore
	svc     *ReminderService
	metrics *MetricsService
	itemID  int64
	now     time.Time
}

func newReminderFixture(t *testing.T) *reminderFixture {
	t.Helper()
	store := newMemStore()
	store.students[7] = models.Student{ID: 7, Nama: "Sari"}
	store.courses[1] = models.Course{ID: 1, Nama: "Matematika"}
	enrollmentID := store.addEnrollment(7, 1)
	itemID := store.addItem(models.TutonItem{EnrollmentID: enrollmentID, Jenis: models.JenisTugas, Sesi: 3})
	store.deadlines = []models.CourseDeadline{
		{ID: 1, CourseID: 1, Jenis: models.JenisTugas, Sesi: 3, DeadlineAt: timePtr(mustTime("2024-05-02T00:00:00Z"))},
	}

	now := mustTime("2024-05-01T00:00:00Z")
	metrics := NewMetricsService()
	svc := NewReminderService(memReminders{store}, memItems{store}, store, validator.New(), metrics, zap.NewNop(), ReminderConfig{DefaultOffsetMin: 1440}).
		WithClock(fixedClock(now))
	return &reminderFixture{store: store, svc: svc, metrics: metrics, itemID: itemID, now: now}
}

func (f *reminderFixture) pending(source models.ReminderSource) int64 {
	return f.store.addReminder(models.Reminder{
		ItemID:  f.itemID,
		Source:  source,
		Status:  models.ReminderStatusPending,
		Channel: models.ReminderChannelWA,
		Active:  true,
	})
}

func TestReminderServiceCreate(t *testing.T) {
	f := newReminderFixture(t)
	note := "  tolong kerjakan tugas 3  "

	reminder, err := f.svc.Create(context.Background(), f.itemID, 11, dto.CreateReminderRequest{Note: &note})
	require.NoError(t, err)
	assert.Equal(t, models.ReminderSourceAdmin, reminder.Source)
	assert.Equal(t, models.ReminderStatusPending, reminder.Status)
	assert.Equal(t, models.ReminderChannelWA, reminder.Channel)
	require.NotNil(t, reminder.CreatedByAdminID)
	assert.Equal(t, int64(11), *reminder.CreatedByAdminID)
	require.NotNil(t, reminder.Note)
	assert.Equal(t, "tolong kerjakan tugas 3", *reminder.Note)

	_, err = f.svc.Create(context.Background(), 999999, 11, dto.CreateReminderRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReminderServiceMarkSent(t *testing.T) {
	f := newReminderFixture(t)
	id := f.pending(models.ReminderSourceAdmin)

	reminder, err := f.svc.MarkSent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.ReminderStatusSent, reminder.Status)
	require.NotNil(t, reminder.SentAt)
	assert.True(t, reminder.SentAt.Equal(f.now))

	stored := f.store.reminder(id)
	assert.Equal(t, models.ReminderStatusSent, stored.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.reminderTransitions.WithLabelValues(string(models.ReminderStatusSent), OutcomeOK)))
}

func TestReminderServiceCancelAfterSentConflicts(t *testing.T) {
	f := newReminderFixture(t)
	id := f.pending(models.ReminderSourceAdmin)

	_, err := f.svc.MarkSent(context.Background(), id)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), id)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrReminderNotPending.Code, appErr.Code)
	assert.Equal(t, 409, appErr.Status)

	stored := f.store.reminder(id)
	assert.Equal(t, models.ReminderStatusSent, stored.Status)
}

func TestReminderServiceTransitionUnknown(t *testing.T) {
	f := newReminderFixture(t)

	_, err := f.svc.Cancel(context.Background(), 424242)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReminderServiceConcurrentMarkSent(t *testing.T) {
	f := newReminderFixture(t)
	id := f.pending(models.ReminderSourceAdmin)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.MarkSent(context.Background(), id)
		}(i)
	}
	close(start)
	wg.Wait()

	success, conflicts := 0, 0
	for _, err := range errs {
		if err == nil {
			success++
			continue
		}
		if appErrors.FromError(err).Code == appErrors.ErrReminderNotPending.Code {
			conflicts++
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, callers-1, conflicts)
}

func TestReminderServiceUpsertPreference(t *testing.T) {
	f := newReminderFixture(t)
	ctx := context.Background()

	created, err := f.svc.UpsertPreference(ctx, f.itemID, dto.ReminderPreferenceRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.ReminderSourceWeb, created.Source)
	assert.True(t, created.Active)
	require.NotNil(t, created.OffsetMin)
	assert.Equal(t, 1440, *created.OffsetMin)

	inactive := false
	updated, err := f.svc.UpsertPreference(ctx, f.itemID, dto.ReminderPreferenceRequest{OffsetMin: intPtr(60), Active: &inactive})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 60, *updated.OffsetMin)
	assert.False(t, updated.Active)

	_, err = f.svc.UpsertPreference(ctx, f.itemID, dto.ReminderPreferenceRequest{OffsetMin: intPtr(-5)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReminderServiceConcurrentUpsertPreferenceKeepsOne(t *testing.T) {
	f := newReminderFixture(t)

	const callers = 8
	var wg sync.WaitGroup
	ids := make([]int64, callers)
	errs := make([]error, callers)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			reminder, err := f.svc.UpsertPreference(context.Background(), f.itemID, dto.ReminderPreferenceRequest{OffsetMin: intPtr(60 + i)})
			errs[i] = err
			if reminder != nil {
				ids[i] = reminder.ID
			}
		}(i)
	}
	close(start)
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	reminders, err := f.svc.ListByItem(context.Background(), f.itemID)
	require.NoError(t, err)
	pendingWeb := 0
	for _, r := range reminders {
		if r.Source == models.ReminderSourceWeb && r.Status == models.ReminderStatusPending {
			pendingWeb++
		}
	}
	assert.Equal(t, 1, pendingWeb)
}

func TestReminderServiceSetActiveAndOffsetWebOnly(t *testing.T) {
	f := newReminderFixture(t)
	ctx := context.Background()
	web := f.pending(models.ReminderSourceWeb)
	admin := f.pending(models.ReminderSourceAdmin)
	off := false

	reminder, err := f.svc.SetActive(ctx, web, dto.SetReminderActiveRequest{Active: &off})
	require.NoError(t, err)
	assert.False(t, reminder.Active)
	assert.Equal(t, models.ReminderStatusPending, reminder.Status)

	reminder, err = f.svc.SetOffset(ctx, web, dto.SetReminderOffsetRequest{OffsetMin: intPtr(30)})
	require.NoError(t, err)
	assert.Equal(t, 30, *reminder.OffsetMin)
	assert.False(t, reminder.Active)

	_, err = f.svc.SetActive(ctx, admin, dto.SetReminderActiveRequest{Active: &off})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.SetOffset(ctx, admin, dto.SetReminderOffsetRequest{OffsetMin: intPtr(30)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.SetActive(ctx, web, dto.SetReminderActiveRequest{})
	require.Error(t, err)
}

func TestReminderServiceListByItem(t *testing.T) {
	f := newReminderFixture(t)
	f.pending(models.ReminderSourceAdmin)
	f.pending(models.ReminderSourceWeb)

	reminders, err := f.svc.ListByItem(context.Background(), f.itemID)
	require.NoError(t, err)
	assert.Len(t, reminders, 2)

	_, err = f.svc.ListByItem(context.Background(), 999999)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReminderServiceDue(t *testing.T) {
	f := newReminderFixture(t)
	ctx := context.Background()

	// deadline 2024-05-02, now 2024-05-01: a one day offset is due, 60 minutes is not.
	due := f.store.addReminder(models.Reminder{ItemID: f.itemID, Source: models.ReminderSourceWeb, Status: models.ReminderStatusPending, Channel: models.ReminderChannelWA, OffsetMin: intPtr(1440), Active: true})
	f.store.addReminder(models.Reminder{ItemID: f.itemID, Source: models.ReminderSourceWeb, Status: models.ReminderStatusPending, Channel: models.ReminderChannelWA, OffsetMin: intPtr(60), Active: true})
	f.store.addReminder(models.Reminder{ItemID: f.itemID, Source: models.ReminderSourceWeb, Status: models.ReminderStatusPending, Channel: models.ReminderChannelWA, OffsetMin: intPtr(2880), Active: false})
	f.store.addReminder(models.Reminder{ItemID: f.itemID, Source: models.ReminderSourceAdmin, Status: models.ReminderStatusPending, Channel: models.ReminderChannelWA, Active: true})

	reminders, err := f.svc.Due(ctx)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, due, reminders[0].ReminderID)
	assert.Equal(t, 1440, reminders[0].OffsetMin)
	assert.True(t, reminders[0].DueAt.Equal(f.now))
	assert.True(t, reminders[0].DeadlineAt.Equal(mustTime("2024-05-02T00:00:00Z")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.remindersDue))
}

func TestReminderServiceDueUsesItemOverride(t *testing.T) {
	f := newReminderFixture(t)
	_, err := memItems{f.store}.UpdateDeadline(context.Background(), f.itemID, timePtr(mustTime("2024-05-01T00:30:00Z")), f.now)
	require.NoError(t, err)
	id := f.store.addReminder(models.Reminder{ItemID: f.itemID, Source: models.ReminderSourceWeb, Status: models.ReminderStatusPending, Channel: models.ReminderChannelWA, OffsetMin: intPtr(60), Active: true})

	reminders, err := f.svc.Due(context.Background())
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, id, reminders[0].ReminderID)
}
