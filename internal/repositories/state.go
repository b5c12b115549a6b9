package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// StateRepository stores string values under string keys in the local_state table.
type StateRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewStateRepository creates a new [StateRepository] with the given database connection
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db, now: time.Now}
}

// Get returns the value stored at key. ok is false when the key is absent.
func (r *StateRepository) Get(key string) (value string, ok bool, err error) {
	err = r.db.QueryRow(`SELECT value FROM local_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query state %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes value at key, replacing any previous value.
func (r *StateRepository) Set(key, value string) error {
	query := `
		INSERT INTO local_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, key, value, r.now()); err != nil {
		return fmt.Errorf("failed to write state %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (r *StateRepository) Delete(key string) error {
	if _, err := r.db.Exec(`DELETE FROM local_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete state %s: %w", key, err)
	}
	return nil
}

// Entry is one key/value pair read back by [StateRepository.List].
type Entry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// List returns every entry whose key starts with prefix, ordered by key.
func (r *StateRepository) List(prefix string) ([]Entry, error) {
	rows, err := r.db.Query(
		`SELECT key, value, updated_at FROM local_state WHERE substr(key, 1, length(?)) = ? ORDER BY key ASC`,
		prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query state: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}
