package db

import (
	"database/sql"
	"time"
)

// Store adapts a *sql.DB to the narrow settings interfaces the sensor and
// scheduler consume, so those packages never see database/sql.
type Store struct {
	conn *sql.DB
}

func NewStore(conn *sql.DB) *Store {
	return &Store{conn: conn}
}

func (s *Store) GetSetting(key string) (string, bool, error) {
	return GetSetting(s.conn, key)
}

func (s *Store) PutSetting(key, value string) error {
	return PutSetting(s.conn, key, value)
}

func (s *Store) RecordCycleEvent(sequence string, startedAt time.Time) error {
	return RecordCycleEvent(s.conn, sequence, startedAt)
}
