package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/models"
	"github.com/caraka20/tutontrack/internal/service"
)

type stubSource struct {
	mu    sync.Mutex
	calls int
	due   []dto.DueReminder
	err   error
}

func (s *stubSource) Due(ctx context.Context) ([]dto.DueReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.due, s.err
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type memPublisher struct {
	mu       sync.Mutex
	claims   map[string]bool
	events   []dto.ReminderDueEvent
	channels []string
	failures int
	releases int
}

func newMemPublisher() *memPublisher {
	return &memPublisher{claims: map[string]bool{}}
}

func (p *memPublisher) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.claims[key] {
		return false, nil
	}
	p.claims[key] = true
	return true, nil
}

func (p *memPublisher) Release(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.claims, key)
	p.releases++
	return nil
}

func (p *memPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("redis unavailable")
	}
	p.channels = append(p.channels, channel)
	p.events = append(p.events, message.(dto.ReminderDueEvent))
	return nil
}

func (p *memPublisher) snapshot() ([]dto.ReminderDueEvent, int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dto.ReminderDueEvent(nil), p.events...), p.releases, len(p.claims)
}

type outcomeCounter struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (c *outcomeCounter) RecordReminderEvent(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = map[string]int{}
	}
	c.outcomes[outcome]++
}

func (c *outcomeCounter) get(outcome string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcomes[outcome]
}

func dueReminder(id int64) dto.DueReminder {
	deadline := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	return dto.DueReminder{
		ReminderID: id,
		ItemID:     id * 10,
		Channel:    models.ReminderChannelWA,
		OffsetMin:  1440,
		DeadlineAt: deadline,
		DueAt:      deadline.Add(-24 * time.Hour),
	}
}

func TestScanPublishesEachReminderOnce(t *testing.T) {
	source := &stubSource{due: []dto.DueReminder{dueReminder(1), dueReminder(2)}}
	publisher := newMemPublisher()
	counter := &outcomeCounter{}
	emitted := time.Date(2024, 5, 2, 0, 1, 0, 0, time.UTC)
	s := New(source, publisher, counter, zaptest.NewLogger(t), Config{Workers: 2, Channel: "tuton:reminders:due"}).
		WithClock(func() time.Time { return emitted })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.queue.Start(ctx)
	defer s.Stop()

	n, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Eventually(t, func() bool { return counter.get(service.OutcomeOK) == 2 }, time.Second, 5*time.Millisecond)

	_, err = s.Scan(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return counter.get(service.OutcomeSkipped) == 2 }, time.Second, 5*time.Millisecond)

	events, _, _ := publisher.snapshot()
	require.Len(t, events, 2)
	for _, event := range events {
		assert.NotEmpty(t, event.EventID)
		assert.Equal(t, emitted, event.EmittedAt)
		assert.Equal(t, "WA", event.Channel)
		assert.Equal(t, event.DeadlineAt.Add(-24*time.Hour), event.DueAt)
	}
	assert.Equal(t, []string{"tuton:reminders:due", "tuton:reminders:due"}, publisher.channels)
}

func TestPublishFailureReleasesClaimAndRetries(t *testing.T) {
	source := &stubSource{due: []dto.DueReminder{dueReminder(5)}}
	publisher := newMemPublisher()
	publisher.failures = 1
	counter := &outcomeCounter{}
	s := New(source, publisher, counter, zaptest.NewLogger(t), Config{Workers: 1, Retries: 2, RetryDelay: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.queue.Start(ctx)
	defer s.Stop()

	_, err := s.Scan(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return counter.get(service.OutcomeOK) == 1 }, time.Second, 5*time.Millisecond)

	events, releases, claims := publisher.snapshot()
	assert.Len(t, events, 1)
	assert.Equal(t, 1, releases)
	assert.Equal(t, 1, claims)
	assert.Equal(t, int64(1), s.Stats().Retried)
}

func TestExhaustedRetriesGoToDeadLetter(t *testing.T) {
	source := &stubSource{due: []dto.DueReminder{dueReminder(6)}}
	publisher := newMemPublisher()
	publisher.failures = 10
	counter := &outcomeCounter{}
	s := New(source, publisher, counter, zaptest.NewLogger(t), Config{Workers: 1, Retries: 1, RetryDelay: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.queue.Start(ctx)
	defer s.Stop()

	_, err := s.Scan(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return counter.get(service.OutcomeError) == 1 }, time.Second, 5*time.Millisecond)

	events, releases, claims := publisher.snapshot()
	assert.Empty(t, events)
	assert.Equal(t, 2, releases)
	assert.Zero(t, claims)
}

func TestScanPropagatesSourceError(t *testing.T) {
	source := &stubSource{err: errors.New("db down")}
	s := New(source, newMemPublisher(), nil, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.queue.Start(ctx)
	defer s.Stop()

	_, err := s.Scan(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestStartRunsScanImmediately(t *testing.T) {
	source := &stubSource{}
	s := New(source, newMemPublisher(), nil, zaptest.NewLogger(t), Config{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	require.Eventually(t, func() bool { return source.callCount() >= 1 }, 2*time.Second, 10*time.Millisecond)
}
