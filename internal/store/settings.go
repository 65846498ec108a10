package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Setting keys.
const (
	SettingCamera = "renderer.camera"
)

// SettingsRepository stores renderer settings as JSON values.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get decodes the value stored under key into v.
func (r *SettingsRepository) Get(key string, v any) error {
	var raw string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode setting %s: %w", key, err)
	}
	return nil
}

// Set stores v under key, replacing any previous value.
func (r *SettingsRepository) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}

	_, err = r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(raw),
	)
	return err
}
