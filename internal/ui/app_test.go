package ui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/nudge/internal/notify"
	"github.com/tgienger/nudge/internal/reminder"
	"github.com/tgienger/nudge/internal/store"
	"github.com/tgienger/nudge/internal/ui/views"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type memSettings map[string]string

func (m memSettings) GetSetting(key string) (string, error) { return m[key], nil }
func (m memSettings) SetSetting(key, value string) error {
	m[key] = value
	return nil
}

type fixture struct {
	app      *App
	store    *store.Store
	sent     *notify.Recorder
	settings memSettings
}

func newFixture(t *testing.T, settings memSettings, policy reminder.Policy) fixture {
	t.Helper()
	s := store.New(&store.MemorySlot{})
	s.Load(context.Background())

	perms := notify.LoadPermissions(settings)
	rec := &notify.Recorder{}
	gate := notify.Gate{Permissions: perms, Next: rec}

	app := NewApp(Options{
		Store:       s,
		Evaluator:   reminder.NewEvaluator(s, gate, policy),
		Permissions: perms,
		Settings:    settings,
		Clock:       reminder.NewFakeClock(now),
		Interval:    time.Millisecond,
	})
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	return fixture{app: app, store: s, sent: rec, settings: settings}
}

func (f fixture) addDueSoon(t *testing.T, title string) {
	t.Helper()
	at := now.Add(10 * time.Minute)
	_, err := f.store.Create(context.Background(), store.TaskInput{Title: title, ScheduledAt: &at, ReminderOffsets: []int{15}})
	require.NoError(t, err)
}

// tick delivers one tick and runs the dispatch command if one was returned.
// The follow-up timer is dropped.
func (f fixture) tick(t *testing.T) {
	t.Helper()
	_, cmd := f.app.Update(tickMsg{})
	require.NotNil(t, cmd)
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		require.Len(t, msg, 2)
		msg[1]()
	case tickMsg:
	default:
		t.Fatalf("unexpected message %T", msg)
	}
}

func TestInitEvaluatesImmediately(t *testing.T) {
	f := newFixture(t, memSettings{"notify_permission": "granted"}, reminder.Repeat)
	cmd := f.app.Init()
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)

	var sawTick bool
	for _, c := range batch {
		if _, ok := c().(tickMsg); ok {
			sawTick = true
		}
	}
	assert.True(t, sawTick)
}

func TestTickDispatchesAndShowsToast(t *testing.T) {
	f := newFixture(t, memSettings{"notify_permission": "granted"}, reminder.Repeat)
	f.addDueSoon(t, "standup")

	f.tick(t)
	require.Len(t, f.sent.Sent(), 1)
	assert.Equal(t, "standup", f.sent.Sent()[0].Title)
	assert.Contains(t, f.app.View(), "standup")
	assert.Contains(t, f.app.View(), "Due in 15 minutes")

	// repeat policy fires again on the next tick
	f.tick(t)
	assert.Len(t, f.sent.Sent(), 2)
}

func TestOncePolicyFiresSingleTime(t *testing.T) {
	f := newFixture(t, memSettings{"notify_permission": "granted"}, reminder.Once)
	f.addDueSoon(t, "standup")

	f.tick(t)
	f.tick(t)
	assert.Len(t, f.sent.Sent(), 1)
	assert.Empty(t, f.app.toasts)
}

func TestNoDispatchWithoutPermission(t *testing.T) {
	f := newFixture(t, memSettings{"notify_permission": "denied"}, reminder.Repeat)
	f.addDueSoon(t, "standup")

	f.tick(t)
	assert.Empty(t, f.sent.Sent())
	assert.Len(t, f.app.toasts, 1, "in-app banner still shows")
}

func TestPermissionPrompt(t *testing.T) {
	settings := memSettings{}
	f := newFixture(t, settings, reminder.Repeat)

	assert.Contains(t, f.app.View(), "Allow reminder notifications?")

	// other keys are swallowed while asking
	f.app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Equal(t, "denied", settings["notify_permission"])
	assert.NotContains(t, f.app.View(), "Allow reminder notifications?")
	assert.False(t, f.app.tasks.Editing())
}

func TestPermissionGrantedEnablesDispatch(t *testing.T) {
	f := newFixture(t, memSettings{}, reminder.Repeat)
	f.addDueSoon(t, "standup")

	f.app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	f.tick(t)
	assert.Len(t, f.sent.Sent(), 1)
}

func TestPermissionPromptEscDefers(t *testing.T) {
	settings := memSettings{}
	f := newFixture(t, settings, reminder.Repeat)

	f.app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, f.app.View(), "Allow reminder notifications?")
	_, asked := settings["notify_permission"]
	assert.False(t, asked)
}

func TestTabIsRemembered(t *testing.T) {
	settings := memSettings{"notify_permission": "granted"}
	f := newFixture(t, settings, reminder.Repeat)

	_, cmd := f.app.Update(tea.KeyMsg{Type: tea.KeyTab})
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, c := range batch {
		f.app.Update(c())
	}
	assert.Equal(t, "completed", settings["last_tab"])

	reopened := newFixture(t, settings, reminder.Repeat)
	assert.Equal(t, views.TabCompleted, reopened.app.tasks.Tab())
}
