package sqlite

const schemaSQL = `
-- Scheduled jobs table
-- One row per cron job; task_type + payload describe what fires
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	cron TEXT NOT NULL,
	task_type TEXT NOT NULL,
	payload TEXT,
	last_run TEXT,
	status TEXT NOT NULL DEFAULT 'start'
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_task_type ON jobs(task_type);
`

// InitSchema initializes the database schema
func (s *SQLiteDB) InitSchema() error {
	_, err := s.db.Exec(schemaSQL)
	if err != nil {
		return err
	}
	s.logger.Info().Msg("Database schema initialized")

	// Run migrations for schema evolution
	if err := s.runMigrations(); err != nil {
		return err
	}

	return nil
}

// runMigrations checks for and applies schema migrations for existing databases
func (s *SQLiteDB) runMigrations() error {
	columnsQuery := `PRAGMA table_info(jobs)`
	rows, err := s.db.Query(columnsQuery)
	if err != nil {
		return err
	}
	defer rows.Close()

	hasStatus := false
	hasLastRun := false

	for rows.Next() {
		var cid int
		var name, typ string
		var notnull, dfltValue, pk interface{}
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		switch name {
		case "status":
			hasStatus = true
		case "last_run":
			hasLastRun = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// Add missing columns
	if !hasStatus {
		s.logger.Info().Msg("Running migration: Adding status column to jobs")
		if _, err := s.db.Exec(`ALTER TABLE jobs ADD COLUMN status TEXT NOT NULL DEFAULT 'start'`); err != nil {
			return err
		}
	}

	if !hasLastRun {
		s.logger.Info().Msg("Running migration: Adding last_run column to jobs")
		if _, err := s.db.Exec(`ALTER TABLE jobs ADD COLUMN last_run TEXT`); err != nil {
			return err
		}
	}

	if !hasStatus || !hasLastRun {
		s.logger.Info().Msg("Schema migrations completed successfully")
	}

	return nil
}
