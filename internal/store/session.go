package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Session is one run of the control loop.
type Session struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"startedAt"`
	StoppedAt  *time.Time `json:"stoppedAt,omitempty"`
	Cycles     int64      `json:"cycles"`
	HandsFound int64      `json:"handsFound"`
	Cues       int64      `json:"cues"`
}

// SessionStats are the counters recorded when a session stops.
type SessionStats struct {
	Cycles     int64 `json:"cycles"`
	HandsFound int64 `json:"handsFound"`
	Cues       int64 `json:"cues"`
}

// SessionRepository records control loop runs.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Start records the start of a session.
func (r *SessionRepository) Start(id string, at time.Time) error {
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		id, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

// Finish records the end of a session and its counters.
func (r *SessionRepository) Finish(id string, at time.Time, stats SessionStats) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET stopped_at = ?, cycles = ?, hands_found = ?, cues = ? WHERE id = ?`,
		at.UTC(), stats.Cycles, stats.HandsFound, stats.Cues, id,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a session by id.
func (r *SessionRepository) Get(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, started_at, stopped_at, cycles, hands_found, cues FROM sessions WHERE id = ?`,
		id,
	)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// List returns the most recent sessions first, at most limit of them.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(
		`SELECT id, started_at, stopped_at, cycles, hands_found, cues
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	s := &Session{}
	var stopped sql.NullTime
	if err := row.Scan(&s.ID, &s.StartedAt, &stopped, &s.Cycles, &s.HandsFound, &s.Cues); err != nil {
		return nil, err
	}
	if stopped.Valid {
		t := stopped.Time
		s.StoppedAt = &t
	}
	return s, nil
}
