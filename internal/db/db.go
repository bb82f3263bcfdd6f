package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// New opens (or creates) the database in dataDir and initializes the schema
func New(dataDir string) (*DB, error) {
	return Open(filepath.Join(dataDir, "nudge.db"))
}

// Open opens the database file at path and initializes the schema
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// GetSetting retrieves a setting value by key. Missing keys return "".
func (db *DB) GetSetting(key string) (string, error) {
	value, _, err := db.lookupSetting(context.Background(), key)
	return value, err
}

func (db *DB) lookupSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting sets a setting value
func (db *DB) SetSetting(key, value string) error {
	return db.setSetting(context.Background(), key, value)
}

func (db *DB) setSetting(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
