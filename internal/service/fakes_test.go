package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/caraka20/tutontrack/internal/models"
	"github.com/caraka20/tutontrack/internal/repository"
	appErrors "github.com/caraka20/tutontrack/pkg/errors"
)

// memStore is an in-memory stand-in for the tutoring tables.
type memStore struct {
	mu          sync.Mutex
	students    map[int64]models.Student
	courses     map[int64]models.Course
	enrollments []models.Enrollment
	items       []models.TutonItem
	deadlines   []models.CourseDeadline
	reminders   []models.Reminder
	nextID      int64
	failWith    error
}

func newMemStore() *memStore {
	return &memStore{
		students: map[int64]models.Student{},
		courses:  map[int64]models.Course{},
		nextID:   1000,
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

// FindByID serves as the student reader.
func (m *memStore) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (m *memStore) enrollmentDetail(e models.Enrollment) models.EnrollmentDetail {
	student := m.students[e.StudentID]
	return models.EnrollmentDetail{
		Enrollment:  e,
		CourseName:  m.courses[e.CourseID].Nama,
		StudentName: student.Nama,
		StudentNIM:  student.NIM,
	}
}

func (m *memStore) ListDetailsByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			out = append(out, m.enrollmentDetail(e))
		}
	}
	return out, nil
}

func (m *memStore) FindDetailByID(ctx context.Context, id int64) (*models.EnrollmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.enrollments {
		if e.ID == id {
			d := m.enrollmentDetail(e)
			return &d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) Exists(ctx context.Context, studentID, courseID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateWithChecklist(ctx context.Context, enrollment *models.Enrollment, seeds []models.ItemSeed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.enrollments {
		if e.StudentID == enrollment.StudentID && e.CourseID == enrollment.CourseID {
			return repository.ErrDuplicate
		}
	}
	enrollment.ID = m.id()
	enrollment.CreatedAt = time.Now().UTC()
	m.enrollments = append(m.enrollments, *enrollment)
	for _, seed := range seeds {
		m.items = append(m.items, models.TutonItem{ID: m.id(), EnrollmentID: enrollment.ID, Jenis: seed.Jenis, Sesi: seed.Sesi, Status: models.ItemStatusBelum})
	}
	return nil
}

func (m *memStore) CountItems(ctx context.Context, enrollmentID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, item := range m.items {
		if item.EnrollmentID == enrollmentID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) DeleteCascade(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	enrollments := m.enrollments[:0]
	for _, e := range m.enrollments {
		if e.ID == id {
			found = true
			continue
		}
		enrollments = append(enrollments, e)
	}
	if !found {
		return sql.ErrNoRows
	}
	m.enrollments = enrollments
	removed := map[int64]bool{}
	items := m.items[:0]
	for _, item := range m.items {
		if item.EnrollmentID == id {
			removed[item.ID] = true
			continue
		}
		items = append(items, item)
	}
	m.items = items
	reminders := m.reminders[:0]
	for _, r := range m.reminders {
		if !removed[r.ItemID] {
			reminders = append(reminders, r)
		}
	}
	m.reminders = reminders
	return nil
}

func (m *memStore) ListByEnrollment(ctx context.Context, enrollmentID int64) ([]models.TutonItem, error) {
	return m.ListByEnrollments(ctx, []int64{enrollmentID})
}

func (m *memStore) ListByEnrollments(ctx context.Context, enrollmentIDs []int64) ([]models.TutonItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range enrollmentIDs {
		want[id] = true
	}
	var out []models.TutonItem
	for _, item := range m.items {
		if want[item.EnrollmentID] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memStore) ListDeadlines(ctx context.Context, courseID int64) ([]models.CourseDeadline, error) {
	return m.ListDeadlinesByCourses(ctx, []int64{courseID})
}

func (m *memStore) ListDeadlinesByCourses(ctx context.Context, courseIDs []int64) ([]models.CourseDeadline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range courseIDs {
		want[id] = true
	}
	var out []models.CourseDeadline
	for _, d := range m.deadlines {
		if want[d.CourseID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) addEnrollment(studentID, courseID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.enrollments = append(m.enrollments, models.Enrollment{ID: id, StudentID: studentID, CourseID: courseID})
	return id
}

func (m *memStore) addItem(item models.TutonItem) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == 0 {
		item.ID = m.id()
	}
	if item.Status == "" {
		item.Status = models.ItemStatusBelum
	}
	m.items = append(m.items, item)
	return item.ID
}

func (m *memStore) addReminder(r models.Reminder) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.id()
	}
	m.reminders = append(m.reminders, r)
	return r.ID
}

func (m *memStore) reminder(id int64) models.Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reminders {
		if r.ID == id {
			return r
		}
	}
	return models.Reminder{}
}

// memItems adapts the store to the item repository contracts.
type memItems struct{ *memStore }

func (m memItems) FindDetailByID(ctx context.Context, id int64) (*models.ItemDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ID != id {
			continue
		}
		detail := models.ItemDetail{TutonItem: item}
		for _, e := range m.enrollments {
			if e.ID == item.EnrollmentID {
				detail.StudentID = e.StudentID
				detail.CourseID = e.CourseID
			}
		}
		return &detail, nil
	}
	return nil, sql.ErrNoRows
}

func (m memItems) UpdateStatus(ctx context.Context, id int64, status models.ItemStatus, nilai *float64, deskripsi *string, selesaiAt *time.Time, updatedAt time.Time) (*models.TutonItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID != id {
			continue
		}
		m.items[i].Status = status
		if nilai != nil {
			m.items[i].Nilai = nilai
		}
		if deskripsi != nil {
			m.items[i].Deskripsi = deskripsi
		}
		m.items[i].SelesaiAt = selesaiAt
		m.items[i].UpdatedAt = updatedAt
		item := m.items[i]
		return &item, nil
	}
	return nil, sql.ErrNoRows
}

func (m memItems) UpdateDeadline(ctx context.Context, id int64, deadlineAt *time.Time, updatedAt time.Time) (*models.TutonItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].DeadlineAt = deadlineAt
			m.items[i].UpdatedAt = updatedAt
			item := m.items[i]
			return &item, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memItems) Create(ctx context.Context, item *models.TutonItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.EnrollmentID == item.EnrollmentID && existing.Jenis == item.Jenis && existing.Sesi == item.Sesi {
			return repository.ErrDuplicate
		}
	}
	item.ID = m.id()
	m.items = append(m.items, *item)
	return nil
}

// memReminders adapts the store to the reminder repository contract.
type memReminders struct{ *memStore }

func (m memReminders) Create(ctx context.Context, reminder *models.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reminder.ID = m.id()
	reminder.CreatedAt = time.Now().UTC()
	m.reminders = append(m.reminders, *reminder)
	return nil
}

func (m memReminders) CreateWebPreference(ctx context.Context, reminder *models.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reminders {
		if r.ItemID == reminder.ItemID && r.Source == models.ReminderSourceWeb && r.Status == models.ReminderStatusPending {
			return repository.ErrDuplicate
		}
	}
	reminder.ID = m.id()
	reminder.Source = models.ReminderSourceWeb
	reminder.Status = models.ReminderStatusPending
	reminder.CreatedAt = time.Now().UTC()
	m.reminders = append(m.reminders, *reminder)
	return nil
}

func (m memReminders) FindByID(ctx context.Context, id int64) (*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reminders {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memReminders) ListByItem(ctx context.Context, itemID int64) ([]models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reminder
	for _, r := range m.reminders {
		if r.ItemID == itemID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m memReminders) FindPendingWebByItem(ctx context.Context, itemID int64) (*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.reminders) - 1; i >= 0; i-- {
		r := m.reminders[i]
		if r.ItemID == itemID && r.Source == models.ReminderSourceWeb && r.Status == models.ReminderStatusPending {
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memReminders) TransitionFromPending(ctx context.Context, id int64, to models.ReminderStatus, sentAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reminders {
		if m.reminders[i].ID == id && m.reminders[i].Status == models.ReminderStatusPending {
			m.reminders[i].Status = to
			if sentAt != nil {
				m.reminders[i].SentAt = sentAt
			}
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m memReminders) UpdatePreference(ctx context.Context, id int64, offsetMin *int, active bool) (*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reminders {
		if m.reminders[i].ID == id && m.reminders[i].Source == models.ReminderSourceWeb {
			m.reminders[i].OffsetMin = offsetMin
			m.reminders[i].Active = active
			r := m.reminders[i]
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memReminders) ListDueCandidates(ctx context.Context) ([]models.ReminderCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReminderCandidate
	for _, r := range m.reminders {
		if r.Source != models.ReminderSourceWeb || !r.Active || r.Status != models.ReminderStatusPending {
			continue
		}
		for _, item := range m.items {
			if item.ID != r.ItemID {
				continue
			}
			for _, e := range m.enrollments {
				if e.ID == item.EnrollmentID {
					out = append(out, models.ReminderCandidate{
						Reminder:       r,
						EnrollmentID:   e.ID,
						CourseID:       e.CourseID,
						Jenis:          item.Jenis,
						Sesi:           item.Sesi,
						ItemStatus:     item.Status,
						ItemDeadlineAt: item.DeadlineAt,
					})
				}
			}
		}
	}
	return out, nil
}

// memCourses adapts the store to the course repository contract.
type memCourses struct{ *memStore }

func (m memCourses) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (m memCourses) UpsertDeadline(ctx context.Context, deadline *models.CourseDeadline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.deadlines {
		d := &m.deadlines[i]
		if d.CourseID == deadline.CourseID && d.Jenis == deadline.Jenis && d.Sesi == deadline.Sesi {
			d.DeadlineAt = deadline.DeadlineAt
			deadline.ID = d.ID
			return nil
		}
	}
	deadline.ID = m.id()
	m.deadlines = append(m.deadlines, *deadline)
	return nil
}

// stubCacheRepo stores JSON payloads in memory like the Redis repository.
type stubCacheRepo struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newStubCacheRepo() *stubCacheRepo {
	return &stubCacheRepo{data: map[string][]byte{}}
}

func (s *stubCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			delete(s.data, key)
		}
	}
	return nil
}

func (s *stubCacheRepo) put(key, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = []byte(raw)
}

func (s *stubCacheRepo) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// recordingInvalidator captures cache invalidations.
type recordingInvalidator struct {
	students []int64
	all      int
}

func (r *recordingInvalidator) InvalidateStudent(ctx context.Context, studentID int64) {
	r.students = append(r.students, studentID)
}

func (r *recordingInvalidator) InvalidateAll(ctx context.Context) {
	r.all++
}

func fixedClock(ts time.Time) Clock {
	return func() time.Time { return ts }
}

func mustTime(raw string) time.Time {
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		panic(err)
	}
	return ts
}

func timePtr(ts time.Time) *time.Time {
	return &ts
}

func intPtr(v int) *int {
	return &v
}
