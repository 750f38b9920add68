package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Session is one recorded demo run.
type Session struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Ticks     int64      `json:"ticks"`
	Skipped   int64      `json:"skipped"`
	Letters   int        `json:"letters"`
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `s.id, s.started_at, s.ended_at, s.ticks, s.skipped,
	(SELECT COUNT(*) FROM predictions p WHERE p.session_id = s.id)`

// Create inserts a new session. A zero StartedAt is set to now.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at, ticks, skipped) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.StartedAt, sess.Ticks, sess.Skipped,
	)
	return err
}

// End records the end time and final counters of a session.
func (r *SessionRepository) End(id string, endedAt time.Time, ticks, skipped int64) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, ticks = ?, skipped = ? WHERE id = ?`,
		endedAt, ticks, skipped, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return sess, nil
}

// List retrieves the most recent sessions first. A non-positive limit
// returns all of them.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT `+sessionColumns+` FROM sessions s ORDER BY s.started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a session and its predictions.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime

	err := row.Scan(&sess.ID, &sess.StartedAt, &ended, &sess.Ticks, &sess.Skipped, &sess.Letters)
	if err != nil {
		return nil, err
	}

	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}
