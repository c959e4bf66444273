package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Capture sessions, one per accepted (or abandoned) capture attempt
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL CHECK(state IN ('idle', 'streaming', 'accepted')),
			frames INTEGER NOT NULL DEFAULT 0,
			accepted_index INTEGER NOT NULL DEFAULT -1,
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		)`,

		// Per-frame quality signals and the decision taken on them
		`CREATE TABLE IF NOT EXISTS frame_scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			sharpness REAL NOT NULL,
			brightness REAL NOT NULL,
			glare_ratio REAL NOT NULL,
			edge_density REAL NOT NULL,
			edge_strength REAL NOT NULL,
			score REAL NOT NULL,
			reason TEXT NOT NULL,
			accepted INTEGER NOT NULL DEFAULT 0,
			captured_at DATETIME NOT NULL
		)`,

		// Recognised meter readings
		`CREATE TABLE IF NOT EXISTS readings (
			id TEXT PRIMARY KEY,
			session_id TEXT REFERENCES sessions(id) ON DELETE SET NULL,
			serial_number TEXT NOT NULL DEFAULT '',
			kwh TEXT NOT NULL DEFAULT '',
			kvah TEXT NOT NULL DEFAULT '',
			max_demand_kw TEXT NOT NULL DEFAULT '',
			demand_kva TEXT NOT NULL DEFAULT '',
			unit TEXT NOT NULL DEFAULT 'kWh',
			confidence TEXT NOT NULL DEFAULT '{}',
			mean_confidence REAL NOT NULL DEFAULT 0,
			raw_text TEXT NOT NULL DEFAULT '',
			verified INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_frame_scores_session_id ON frame_scores(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_created_at ON readings(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_serial_number ON readings(serial_number)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
