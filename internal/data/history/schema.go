package history

import (
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  schema_version INTEGER NOT NULL,
  sample TEXT NOT NULL,
  version TEXT NOT NULL DEFAULT '',
  ts_utc TEXT NOT NULL,
  modules INTEGER NOT NULL,
  elements INTEGER NOT NULL,
  avg_elements REAL NOT NULL DEFAULT 0,
  direct_width REAL NOT NULL DEFAULT 0,
  chain_length REAL NOT NULL DEFAULT 0,
  diffusion_indicator REAL NOT NULL DEFAULT 0,
  created_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
CREATE INDEX IF NOT EXISTS idx_runs_sample_ts ON runs(sample, ts_utc);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE runs ADD COLUMN edges INTEGER NOT NULL DEFAULT 0;
ALTER TABLE runs ADD COLUMN cycle_hits INTEGER NOT NULL DEFAULT 0;
CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_sample_version_ts ON runs(sample, version, ts_utc);
`,
	},
}

// EnsureSchema brings db up to SchemaVersion. A database written by a newer
// build is rejected rather than downgraded.
func EnsureSchema(db *sql.DB) error {
	const ledger = `CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
)`
	if _, err := db.Exec(ledger); err != nil {
		return fmt.Errorf("create migration ledger: %w", err)
	}

	var applied int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&applied); err != nil {
		return fmt.Errorf("read applied schema version: %w", err)
	}
	if applied > SchemaVersion {
		return fmt.Errorf("history schema %d is newer than supported %d", applied, SchemaVersion)
	}

	for _, m := range migrations[applied:] {
		if err := m.apply(db); err != nil {
			return err
		}
	}
	return nil
}

func (m migration) apply(db *sql.DB) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", m.version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(m.sql); err != nil {
		return fmt.Errorf("migration %d: %w", m.version, err)
	}
	if _, err = tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
		return fmt.Errorf("migration %d: record: %w", m.version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: commit: %w", m.version, err)
	}
	return nil
}
