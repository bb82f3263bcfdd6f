package db

import "context"

// SettingSlot exposes a single settings row as a key-value slot
type SettingSlot struct {
	db  *DB
	key string
}

// Slot returns the settings row named key as a slot
func (db *DB) Slot(key string) *SettingSlot {
	return &SettingSlot{db: db, key: key}
}

// Get returns the stored value and whether the row exists
func (s *SettingSlot) Get(ctx context.Context) ([]byte, bool, error) {
	value, ok, err := s.db.lookupSetting(ctx, s.key)
	if err != nil || !ok {
		return nil, ok, err
	}
	return []byte(value), true, nil
}

// Put overwrites the row with data
func (s *SettingSlot) Put(ctx context.Context, data []byte) error {
	return s.db.setSetting(ctx, s.key, string(data))
}
