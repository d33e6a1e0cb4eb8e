package sqlite

// migrations are applied in order; each statement is idempotent so a partial
// prior run is safe to replay.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS assessment_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		score INTEGER NOT NULL,
		final_score INTEGER NOT NULL,
		phq2_total INTEGER NOT NULL DEFAULT 0,
		phq2_q1 INTEGER NOT NULL DEFAULT 0,
		phq2_q2 INTEGER NOT NULL DEFAULT 0,
		phq2_positive_screen INTEGER NOT NULL DEFAULT 0,
		gad2_total INTEGER NOT NULL DEFAULT 0,
		gad2_q1 INTEGER NOT NULL DEFAULT 0,
		gad2_q2 INTEGER NOT NULL DEFAULT 0,
		gad2_positive_screen INTEGER NOT NULL DEFAULT 0,
		mood_scale INTEGER NOT NULL DEFAULT 0,
		contributions TEXT NOT NULL DEFAULT '[]',
		weighting_note TEXT NOT NULL DEFAULT '',
		uncertainty REAL NOT NULL DEFAULT 0,
		qc_overall REAL NOT NULL DEFAULT 0,
		note TEXT NOT NULL DEFAULT '',
		model_version TEXT NOT NULL,
		created_at TEXT NOT NULL,
		created_at_epoch INTEGER NOT NULL
	)`,

	// The unique index, not application logic, is the last line of defence
	// for one-outcome-per-session.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_outcomes_session
		ON assessment_outcomes(session_id)`,

	`CREATE INDEX IF NOT EXISTS idx_outcomes_user_created
		ON assessment_outcomes(user_id, created_at_epoch DESC)`,

	`CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		baseline_established INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		updated_at_epoch INTEGER NOT NULL
	)`,
}

func (s *Store) migrate() error {
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
