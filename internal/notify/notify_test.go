package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSettings map[string]string

func (m memSettings) GetSetting(key string) (string, error) { return m[key], nil }
func (m memSettings) SetSetting(key, value string) error {
	m[key] = value
	return nil
}

type brokenSettings struct{}

func (brokenSettings) GetSetting(string) (string, error) { return "", errors.New("locked") }
func (brokenSettings) SetSetting(string, string) error   { return errors.New("locked") }

type fixed Permission

func (f fixed) Permission() Permission { return Permission(f) }

func TestGate(t *testing.T) {
	n := Notification{Title: "dentist", Body: "Due in 15 minutes"}

	for _, perm := range []Permission{Default, Denied} {
		rec := &Recorder{}
		require.NoError(t, Gate{Permissions: fixed(perm), Next: rec}.Dispatch(context.Background(), n))
		assert.Empty(t, rec.Sent(), perm)
	}

	rec := &Recorder{}
	require.NoError(t, Gate{Permissions: fixed(Granted), Next: rec}.Dispatch(context.Background(), n))
	assert.Equal(t, []Notification{n}, rec.Sent())
}

func TestMultiContinuesPastFailures(t *testing.T) {
	first, last := &Recorder{}, &Recorder{}
	boom := Func(func(context.Context, Notification) error { return errors.New("no daemon") })

	err := Multi{first, boom, last}.Dispatch(context.Background(), Notification{Title: "x"})
	assert.ErrorContains(t, err, "no daemon")
	assert.Len(t, first.Sent(), 1)
	assert.Len(t, last.Sent(), 1)
}

func TestPermissions(t *testing.T) {
	settings := memSettings{}

	p := LoadPermissions(settings)
	assert.Equal(t, Default, p.Permission())
	assert.True(t, p.NeedsPrompt())

	require.NoError(t, p.Set(Granted))
	assert.Equal(t, "granted", settings["notify_permission"])

	reloaded := LoadPermissions(settings)
	assert.Equal(t, Granted, reloaded.Permission())
	assert.False(t, reloaded.NeedsPrompt())
}

func TestPermissionsIgnoreGarbageAndErrors(t *testing.T) {
	p := LoadPermissions(memSettings{"notify_permission": "maybe"})
	assert.Equal(t, Default, p.Permission())

	p = LoadPermissions(brokenSettings{})
	assert.Equal(t, Default, p.Permission())
	assert.Error(t, p.Set(Denied))
	assert.Equal(t, Default, p.Permission(), "failed save keeps previous answer")
}

func TestPermissionsReload(t *testing.T) {
	settings := memSettings{}
	p := LoadPermissions(settings)
	require.Equal(t, Default, p.Permission())

	// answered elsewhere
	settings["notify_permission"] = "granted"
	p.Reload(context.Background())
	assert.Equal(t, Granted, p.Permission())

	broken := LoadPermissions(brokenSettings{})
	broken.current = Denied
	broken.Reload(context.Background())
	assert.Equal(t, Denied, broken.Permission(), "failed read keeps current state")
}

func TestChimeToneLength(t *testing.T) {
	s := tone(440, 10*time.Millisecond)
	buf := make([][2]float64, 1024)

	n, ok := s.Stream(buf)
	assert.True(t, ok)
	assert.Equal(t, chimeSampleRate.N(10*time.Millisecond), n)

	n, ok = s.Stream(buf)
	assert.Equal(t, 0, n)
	assert.False(t, ok)
}
