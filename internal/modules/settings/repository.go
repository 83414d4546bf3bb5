// Package settings provides key-value settings storage in finance.db.
// Settings configured at runtime (main currency, ignored accounts) take
// precedence over environment defaults.
package settings

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// Well-known setting keys.
const (
	KeyMainCurrency   = "main_currency"
	KeyIgnoreForTotal = "ignore_for_total"
	KeyHideIgnored    = "hide_ignored"
)

// Repository handles settings table operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new settings repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "settings").Logger(),
	}
}

// Get retrieves a setting value by key. Returns nil when the setting
// does not exist; absence is not an error.
func (r *Repository) Get(key string) (*string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return &value, nil
}

// GetString retrieves a setting with a fallback default.
func (r *Repository) GetString(key, fallback string) (string, error) {
	value, err := r.Get(key)
	if err != nil {
		return "", err
	}
	if value == nil || *value == "" {
		return fallback, nil
	}
	return *value, nil
}

// GetBool retrieves a boolean setting with a fallback default.
func (r *Repository) GetBool(key string, fallback bool) (bool, error) {
	value, err := r.Get(key)
	if err != nil {
		return false, err
	}
	if value == nil {
		return fallback, nil
	}
	return *value == "true" || *value == "1", nil
}

// GetStringSlice retrieves a JSON-encoded list setting. A missing or
// empty setting yields a nil slice.
func (r *Repository) GetStringSlice(key string) ([]string, error) {
	value, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	if value == nil || *value == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(*value), &out); err != nil {
		return nil, fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return out, nil
}

// Set stores a setting value, inserting or updating as needed.
func (r *Repository) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO settings (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// SetStringSlice stores a list setting as JSON.
func (r *Repository) SetStringSlice(key string, values []string) error {
	encoded, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}
	return r.Set(key, string(encoded))
}

// All returns every stored setting.
func (r *Repository) All() (map[string]string, error) {
	rows, err := r.db.Query("SELECT key, value FROM settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}
