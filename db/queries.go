package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetSetting returns the value for key, with ok=false when the key is absent.
func GetSetting(db *sql.DB, key string) (string, bool, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

// PutSetting inserts or replaces a setting.
func PutSetting(db *sql.DB, key, value string) error {
	_, err := db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to put setting %s: %w", key, err)
	}
	return nil
}

// CycleEvent records one started cycle.
type CycleEvent struct {
	ID        int64
	Sequence  string
	StartedAt time.Time
}

// RecordCycleEvent logs the start of a named cycle.
func RecordCycleEvent(db *sql.DB, sequence string, startedAt time.Time) error {
	_, err := db.Exec(`INSERT INTO cycle_events (sequence, started_at) VALUES (?, ?)`,
		sequence, startedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record cycle event %s: %w", sequence, err)
	}
	return nil
}

// RecentCycleEvents returns the most recent cycle events, newest first.
func RecentCycleEvents(db *sql.DB, limit int) ([]CycleEvent, error) {
	rows, err := db.Query(`SELECT id, sequence, started_at FROM cycle_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycle events: %w", err)
	}
	defer rows.Close()

	var events []CycleEvent
	for rows.Next() {
		var e CycleEvent
		var startedAt string
		if err := rows.Scan(&e.ID, &e.Sequence, &startedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cycle event: %w", err)
		}
		e.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		events = append(events, e)
	}
	return events, rows.Err()
}
