package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultUnit is recorded when a reading has no explicit unit.
const DefaultUnit = "kWh"

// Reading is a recognised meter reading. Register values are kept as the
// text that was read so leading zeros survive.
type Reading struct {
	ID             string             `json:"id"`
	SessionID      string             `json:"session_id,omitempty"`
	SerialNumber   string             `json:"serial_number"`
	KWh            string             `json:"kwh"`
	KVAh           string             `json:"kvah"`
	MaxDemandKW    string             `json:"max_demand_kw"`
	DemandKVA      string             `json:"demand_kva"`
	Unit           string             `json:"unit"`
	Confidence     map[string]float64 `json:"confidence"`
	MeanConfidence float64            `json:"mean_confidence"`
	RawText        string             `json:"raw_text,omitempty"`
	Verified       bool               `json:"verified"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// ReadingUpdate carries operator corrections. Nil fields are left alone.
type ReadingUpdate struct {
	SerialNumber *string `json:"serial_number,omitempty"`
	KWh          *string `json:"kwh,omitempty"`
	KVAh         *string `json:"kvah,omitempty"`
	MaxDemandKW  *string `json:"max_demand_kw,omitempty"`
	DemandKVA    *string `json:"demand_kva,omitempty"`
	Verified     *bool   `json:"verified,omitempty"`
}

// DayCount is the number of readings taken on one day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// MeterCount is the number of readings recorded for one meter.
type MeterCount struct {
	SerialNumber string `json:"serial_number"`
	Readings     int    `json:"readings"`
}

// ReadingStats summarises stored readings.
type ReadingStats struct {
	Total             int          `json:"total_readings"`
	Verified          int          `json:"verified_readings"`
	AverageConfidence float64      `json:"average_confidence"`
	Daily             []DayCount   `json:"daily_readings"`
	TopMeters         []MeterCount `json:"top_meters"`
}

// ReadingRepository stores meter readings.
type ReadingRepository struct {
	db *sql.DB
}

// Readings returns the reading repository for this store.
func (s *Store) Readings() *ReadingRepository {
	return &ReadingRepository{db: s.db}
}

const readingColumns = `id, session_id, serial_number, kwh, kvah, max_demand_kw, demand_kva,
	unit, confidence, mean_confidence, raw_text, verified, created_at, updated_at`

// Create inserts a reading. CreatedAt and UpdatedAt are set to now.
func (r *ReadingRepository) Create(rd *Reading) error {
	now := time.Now()
	rd.CreatedAt = now
	rd.UpdatedAt = now
	if rd.Unit == "" {
		rd.Unit = DefaultUnit
	}

	conf, err := json.Marshal(rd.confidence())
	if err != nil {
		return fmt.Errorf("encode confidence: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO readings (`+readingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rd.ID, nullString(rd.SessionID), rd.SerialNumber, rd.KWh, rd.KVAh, rd.MaxDemandKW, rd.DemandKVA,
		rd.Unit, string(conf), rd.MeanConfidence, rd.RawText, boolInt(rd.Verified), rd.CreatedAt, rd.UpdatedAt,
	)
	return err
}

func (rd *Reading) confidence() map[string]float64 {
	if rd.Confidence == nil {
		return map[string]float64{}
	}
	return rd.Confidence
}

// GetByID retrieves a reading by its ID.
func (r *ReadingRepository) GetByID(id string) (*Reading, error) {
	row := r.db.QueryRow(`SELECT `+readingColumns+` FROM readings WHERE id = ?`, id)
	rd, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rd, err
}

// List returns readings newest first. A non-positive limit returns all.
func (r *ReadingRepository) List(limit, offset int) ([]*Reading, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(
		`SELECT `+readingColumns+` FROM readings
		 ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []*Reading
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, rd)
	}
	return readings, rows.Err()
}

// Update applies corrections. Any corrected value marks the reading as
// verified unless the update says otherwise.
func (r *ReadingRepository) Update(id string, u ReadingUpdate) (*Reading, error) {
	rd, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	corrected := false
	for _, c := range []struct {
		src *string
		dst *string
	}{
		{u.SerialNumber, &rd.SerialNumber},
		{u.KWh, &rd.KWh},
		{u.KVAh, &rd.KVAh},
		{u.MaxDemandKW, &rd.MaxDemandKW},
		{u.DemandKVA, &rd.DemandKVA},
	} {
		if c.src != nil {
			*c.dst = *c.src
			corrected = true
		}
	}
	switch {
	case u.Verified != nil:
		rd.Verified = *u.Verified
	case corrected:
		rd.Verified = true
	}
	rd.UpdatedAt = time.Now()

	res, err := r.db.Exec(
		`UPDATE readings SET serial_number = ?, kwh = ?, kvah = ?, max_demand_kw = ?, demand_kva = ?,
			verified = ?, updated_at = ?
		 WHERE id = ?`,
		rd.SerialNumber, rd.KWh, rd.KVAh, rd.MaxDemandKW, rd.DemandKVA,
		boolInt(rd.Verified), rd.UpdatedAt, id,
	)
	if err != nil {
		return nil, err
	}
	if err := affectedOne(res); err != nil {
		return nil, err
	}
	return rd, nil
}

// Verify marks a reading as checked by an operator.
func (r *ReadingRepository) Verify(id string) error {
	res, err := r.db.Exec(
		`UPDATE readings SET verified = 1, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// Delete removes a reading by its ID.
func (r *ReadingRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM readings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// topMeters bounds the meters reported by Stats.
const topMeters = 5

// Stats summarises all readings.
func (r *ReadingRepository) Stats() (*ReadingStats, error) {
	st := &ReadingStats{Daily: []DayCount{}, TopMeters: []MeterCount{}}

	err := r.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(verified), 0), COALESCE(AVG(mean_confidence), 0) FROM readings`,
	).Scan(&st.Total, &st.Verified, &st.AverageConfidence)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		`SELECT substr(created_at, 1, 10) AS day, COUNT(*) FROM readings
		 GROUP BY day ORDER BY day`,
	)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			rows.Close()
			return nil, err
		}
		st.Daily = append(st.Daily, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(
		`SELECT serial_number, COUNT(*) AS n FROM readings
		 WHERE serial_number != ''
		 GROUP BY serial_number ORDER BY n DESC, serial_number LIMIT ?`,
		topMeters,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m MeterCount
		if err := rows.Scan(&m.SerialNumber, &m.Readings); err != nil {
			return nil, err
		}
		st.TopMeters = append(st.TopMeters, m)
	}
	return st, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (*Reading, error) {
	rd := &Reading{}
	var (
		session  sql.NullString
		conf     string
		verified int
	)
	err := row.Scan(&rd.ID, &session, &rd.SerialNumber, &rd.KWh, &rd.KVAh, &rd.MaxDemandKW, &rd.DemandKVA,
		&rd.Unit, &conf, &rd.MeanConfidence, &rd.RawText, &verified, &rd.CreatedAt, &rd.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rd.SessionID = session.String
	rd.Verified = verified != 0
	if err := json.Unmarshal([]byte(conf), &rd.Confidence); err != nil {
		return nil, fmt.Errorf("decode confidence for reading %s: %w", rd.ID, err)
	}
	return rd, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
