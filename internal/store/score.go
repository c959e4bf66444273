package store

import (
	"database/sql"
	"time"
)

// FrameScore is the quality record of one frame within a session.
type FrameScore struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"session_id"`
	Seq          uint64    `json:"seq"`
	Sharpness    float64   `json:"sharpness"`
	Brightness   float64   `json:"brightness"`
	GlareRatio   float64   `json:"glare_ratio"`
	EdgeDensity  float64   `json:"edge_density"`
	EdgeStrength float64   `json:"edge_strength"`
	Score        float64   `json:"score"`
	Reason       string    `json:"reason"`
	Accepted     bool      `json:"accepted"`
	CapturedAt   time.Time `json:"captured_at"`
}

// ScoreRepository stores per-frame quality records.
type ScoreRepository struct {
	db *sql.DB
}

// Scores returns the score repository for this store.
func (s *Store) Scores() *ScoreRepository {
	return &ScoreRepository{db: s.db}
}

// Record inserts a frame score and sets its ID.
func (r *ScoreRepository) Record(fs *FrameScore) error {
	if fs.CapturedAt.IsZero() {
		fs.CapturedAt = time.Now()
	}
	res, err := r.db.Exec(
		`INSERT INTO frame_scores (session_id, seq, sharpness, brightness, glare_ratio,
			edge_density, edge_strength, score, reason, accepted, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fs.SessionID, int64(fs.Seq), fs.Sharpness, fs.Brightness, fs.GlareRatio,
		fs.EdgeDensity, fs.EdgeStrength, fs.Score, fs.Reason, boolInt(fs.Accepted), fs.CapturedAt,
	)
	if err != nil {
		return err
	}
	fs.ID, err = res.LastInsertId()
	return err
}

// ListBySession returns a session's frame scores in arrival order.
func (r *ScoreRepository) ListBySession(sessionID string) ([]*FrameScore, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, seq, sharpness, brightness, glare_ratio, edge_density,
			edge_strength, score, reason, accepted, captured_at
		 FROM frame_scores WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []*FrameScore
	for rows.Next() {
		fs := &FrameScore{}
		var seq int64
		var accepted int
		if err := rows.Scan(&fs.ID, &fs.SessionID, &seq, &fs.Sharpness, &fs.Brightness, &fs.GlareRatio,
			&fs.EdgeDensity, &fs.EdgeStrength, &fs.Score, &fs.Reason, &accepted, &fs.CapturedAt); err != nil {
			return nil, err
		}
		fs.Seq = uint64(seq)
		fs.Accepted = accepted != 0
		scores = append(scores, fs)
	}
	return scores, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
