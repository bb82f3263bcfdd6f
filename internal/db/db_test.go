package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestSettings(t *testing.T) {
	database := openTestDB(t)

	value, err := database.GetSetting("missing")
	require.NoError(t, err)
	assert.Equal(t, "", value)

	require.NoError(t, database.SetSetting("notify_permission", "granted"))
	require.NoError(t, database.SetSetting("notify_permission", "denied"))

	value, err = database.GetSetting("notify_permission")
	require.NoError(t, err)
	assert.Equal(t, "denied", value)
}

func TestSettingSlot(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	slot := database.Slot("tasks")

	data, ok, err := slot.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)

	require.NoError(t, slot.Put(ctx, []byte(`[]`)))
	require.NoError(t, slot.Put(ctx, []byte(`[{"id":"a"}]`)))

	data, ok, err = slot.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a"}]`, string(data))
}

func TestNewCreatesFileInDataDir(t *testing.T) {
	dir := t.TempDir()
	database, err := New(dir)
	require.NoError(t, err)
	defer database.Close()

	assert.FileExists(t, filepath.Join(dir, "nudge.db"))
}
