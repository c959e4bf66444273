package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session is a persisted capture session.
type Session struct {
	ID            string     `json:"id"`
	State         string     `json:"state"`
	Frames        int        `json:"frames"`
	AcceptedIndex int        `json:"accepted_index"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// SessionRepository stores capture sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session. A zero StartedAt is set to now.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	if sess.State == "" {
		sess.State = "streaming"
	}
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, state, frames, accepted_index, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.State, sess.Frames, sess.AcceptedIndex, sess.StartedAt,
	)
	return err
}

// Finish records the final state of a session.
func (r *SessionRepository) Finish(id, state string, frames, acceptedIndex int) error {
	res, err := r.db.Exec(
		`UPDATE sessions SET state = ?, frames = ?, accepted_index = ?, finished_at = ?
		 WHERE id = ?`,
		state, frames, acceptedIndex, time.Now(), id,
	)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(id string) (*Session, error) {
	sess := &Session{}
	var finished sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, state, frames, accepted_index, started_at, finished_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.State, &sess.Frames, &sess.AcceptedIndex, &sess.StartedAt, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if finished.Valid {
		sess.FinishedAt = &finished.Time
	}
	return sess, nil
}
