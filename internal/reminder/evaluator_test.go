package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/nudge/internal/models"
	"github.com/tgienger/nudge/internal/notify"
	"github.com/tgienger/nudge/internal/store"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func pending(id string, in time.Duration, offsets ...int) models.Task {
	return models.Task{
		ID:              id,
		Title:           "task " + id,
		ScheduledAt:     now.Add(in),
		Color:           models.ColorCyan,
		ReminderOffsets: offsets,
	}
}

func TestFiresInsideWindow(t *testing.T) {
	task := pending("a", 10*time.Minute, 15)
	assert.True(t, Fires(task, 15, now, Repeat))
	assert.True(t, Fires(task, 15, now, Once))
}

func TestFiresAtReminderInstant(t *testing.T) {
	task := pending("a", 15*time.Minute, 15)
	assert.True(t, Fires(task, 15, now, Repeat), "R == now fires")
	assert.False(t, Fires(task, 15, now.Add(-time.Nanosecond), Repeat), "R just ahead of now waits")
}

func TestNeverFiresWhenCompleted(t *testing.T) {
	done := now.Add(-time.Hour)
	for _, in := range []time.Duration{time.Minute, 10 * time.Minute, 23 * time.Hour} {
		task := pending("a", in, 15, 30, 60, 120, 1440)
		task.IsCompleted = true
		task.CompletedAt = &done
		assert.Empty(t, Due([]models.Task{task}, now, Repeat), in)
	}
}

func TestNeverFiresWhenDueOrOverdue(t *testing.T) {
	for _, in := range []time.Duration{0, -time.Minute, -48 * time.Hour} {
		task := pending("a", in, 15, 30, 60, 120, 1440, 0)
		assert.Empty(t, Due([]models.Task{task}, now, Repeat), in)
	}
}

func TestNotYetInWindow(t *testing.T) {
	task := pending("a", 2*time.Hour, 15, 30, 60)
	assert.Empty(t, Due([]models.Task{task}, now, Repeat))
}

func TestDueListsEveryElapsedOffset(t *testing.T) {
	tasks := []models.Task{
		pending("a", 20*time.Minute, 15, 30, 60, 1440),
		pending("b", 3*time.Hour, 15),
		pending("c", 5*time.Minute, 15, 20),
	}

	var got []string
	for _, f := range Due(tasks, now, Repeat) {
		got = append(got, f.Task.ID+"/"+models.OffsetLabel(f.Offset))
	}
	assert.Equal(t, []string{"a/30 minutes", "a/1 hour", "a/1 day", "c/15 minutes", "c/20 minutes"}, got)
}

func TestRepeatPolicyFiresEveryTick(t *testing.T) {
	tasks := []models.Task{pending("a", 10*time.Minute, 15)}

	first := Due(tasks, now, Repeat)
	second := Due(tasks, now, Repeat)
	require.Len(t, first, 1)
	assert.Equal(t, first, second)
}

func TestOncePolicySkipsFiredOffsets(t *testing.T) {
	task := pending("a", 10*time.Minute, 15, 30)
	task.FiredOffsets = []int{30}

	firings := Due([]models.Task{task}, now, Once)
	require.Len(t, firings, 1)
	assert.Equal(t, 15, firings[0].Offset)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("once")
	require.NoError(t, err)
	assert.Equal(t, Once, p)
	assert.Equal(t, "once", p.String())

	p, err = ParsePolicy("repeat")
	require.NoError(t, err)
	assert.Equal(t, Repeat, p)

	_, err = ParsePolicy("hourly")
	assert.Error(t, err)
}

func TestFiringNotification(t *testing.T) {
	f := Firing{Task: pending("a", 10*time.Minute, 15), Offset: 15}
	n := f.Notification()
	assert.Equal(t, "task a", n.Title)
	assert.Equal(t, "Due in 15 minutes · Fri May 1 12:10", n.Body)
	assert.Equal(t, models.ColorCyan.Hex(), n.Color)
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(&store.MemorySlot{})
	s.Load(context.Background())
	return s
}

func TestEvaluatorRepeatGap(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	sched := now.Add(10 * time.Minute)
	_, err := s.Create(ctx, store.TaskInput{Title: "standup", ScheduledAt: &sched, ReminderOffsets: []int{15}})
	require.NoError(t, err)

	rec := &notify.Recorder{}
	e := NewEvaluator(s, rec, Repeat)

	assert.Len(t, e.Tick(ctx, now), 1)
	assert.Len(t, e.Tick(ctx, now), 1)
	assert.Len(t, rec.Sent(), 2, "no notified record means the reminder repeats")
}

func TestEvaluatorOnceRecordsFired(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	sched := now.Add(10 * time.Minute)
	task, err := s.Create(ctx, store.TaskInput{Title: "standup", ScheduledAt: &sched, ReminderOffsets: []int{15, 30, 5}})
	require.NoError(t, err)

	rec := &notify.Recorder{}
	e := NewEvaluator(s, rec, Once)

	assert.Len(t, e.Tick(ctx, now), 2)
	assert.Empty(t, e.Tick(ctx, now))

	// the 5 minute reminder opens later
	assert.Len(t, e.Tick(ctx, now.Add(6*time.Minute)), 1)
	assert.Len(t, rec.Sent(), 3)

	got, err := s.Get(task.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{15, 30, 5}, got.FiredOffsets)
}

func TestEvaluatorSkipsCompleted(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	sched := now.Add(10 * time.Minute)
	task, err := s.Create(ctx, store.TaskInput{Title: "standup", ScheduledAt: &sched, ReminderOffsets: []int{15}})
	require.NoError(t, err)

	rec := &notify.Recorder{}
	e := NewEvaluator(s, rec, Repeat)
	require.Len(t, e.Tick(ctx, now), 1)

	_, err = s.Complete(ctx, task.ID, now)
	require.NoError(t, err)
	assert.Empty(t, e.Tick(ctx, now))
	assert.Len(t, rec.Sent(), 1)
}

func TestEvaluatorIgnoresDispatchFailure(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	sched := now.Add(10 * time.Minute)
	_, err := s.Create(ctx, store.TaskInput{Title: "a", ScheduledAt: &sched, ReminderOffsets: []int{15}})
	require.NoError(t, err)

	calls := 0
	failing := notify.Func(func(context.Context, notify.Notification) error {
		calls++
		return errors.New("no notification daemon")
	})
	e := NewEvaluator(s, failing, Once)

	assert.Len(t, e.Tick(ctx, now), 1)
	assert.Empty(t, e.Tick(ctx, now), "failed dispatch is not retried")
	assert.Equal(t, 1, calls)
}

type countingReloader struct {
	mu sync.Mutex
	n  int
}

func (r *countingReloader) Reload(context.Context) {
	r.mu.Lock()
	r.n++
	r.mu.Unlock()
}

func TestWatcherRunsImmediatelyAndStops(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched := now.Add(10 * time.Minute)
	_, err := s.Create(ctx, store.TaskInput{Title: "a", ScheduledAt: &sched, ReminderOffsets: []int{15}})
	require.NoError(t, err)

	rec := &notify.Recorder{}
	reloader := &countingReloader{}
	w := NewWatcher(NewEvaluator(s, rec, Repeat), reloader, NewFakeClock(now), time.Hour)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.Sent()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Equal(t, 1, reloader.n)
}

func TestReloadersRunInOrder(t *testing.T) {
	a, b := &countingReloader{}, &countingReloader{}
	Reloaders{a, b}.Reload(context.Background())
	Reloaders{a}.Reload(context.Background())
	assert.Equal(t, 2, a.n)
	assert.Equal(t, 1, b.n)
}

func TestFakeClock(t *testing.T) {
	c := NewFakeClock(now)
	c.Advance(time.Minute)
	assert.Equal(t, now.Add(time.Minute), c.Now())
	c.Set(now)
	assert.Equal(t, now, c.Now())
}
