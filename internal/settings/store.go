package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jfmyers9/recently/internal/recent"
)

// ErrUnknownSetting is returned when writing a name outside Known
var ErrUnknownSetting = errors.New("unknown setting")

// Known lists the setting names the store accepts
var Known = []string{
	recent.SettingAPIKey,
	recent.SettingAPISecret,
	recent.SettingUser,
}

// Setting is a stored name/value pair
type Setting struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists settings in SQLite
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) a settings database at dbPath
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps :memory: databases consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS settings (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetSetting returns the stored value for name, or "" when it is not set
func (s *Store) GetSetting(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", name, err)
	}
	return value, nil
}

// Set stores value under name. A blank value deletes the setting.
func (s *Store) Set(ctx context.Context, name, value string) error {
	if !IsKnown(name) {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return s.Delete(ctx, name)
	}

	query := `
		INSERT INTO settings (name, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, name, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", name, err)
	}
	return nil
}

// Delete removes name. Deleting an unset name is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if !IsKnown(name) {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", name, err)
	}
	return nil
}

// All returns every stored setting ordered by name
func (s *Store) All(ctx context.Context) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value, updated_at FROM settings ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var st Setting
		var updated int64
		if err := rows.Scan(&st.Name, &st.Value, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		st.UpdatedAt = time.Unix(updated, 0)
		out = append(out, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}

	return out, nil
}

// IsKnown reports whether name is an accepted setting name
func IsKnown(name string) bool {
	for _, k := range Known {
		if k == name {
			return true
		}
	}
	return false
}

// Secret reports whether a setting's value should be masked on display
func Secret(name string) bool {
	return name == recent.SettingAPISecret || name == recent.SettingAPIKey
}

// Mask hides all but the last four characters of value
func Mask(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

// SortedKnown returns Known in name order
func SortedKnown() []string {
	names := append([]string(nil), Known...)
	sort.Strings(names)
	return names
}
