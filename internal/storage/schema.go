package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 2

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createDiagramCacheTable(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}
		db.logger.Info("Database schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}
	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", "version", version)
		return nil
	}

	db.logger.Info("Running database migrations",
		"from_version", version,
		"to_version", currentSchemaVersion,
	)

	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if version < 1 {
			if err := createSchemaVersionTable(tx); err != nil {
				return err
			}
			if err := createDiagramCacheTable(tx); err != nil {
				return err
			}
		}
		// v2 records the payload encoding
		if version == 1 {
			if _, err := tx.Exec(`ALTER TABLE diagram_cache ADD COLUMN encoding TEXT NOT NULL DEFAULT 'identity'`); err != nil {
				return fmt.Errorf("failed to add encoding column: %w", err)
			}
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createDiagramCacheTable creates the diagram_cache table. cache_key is
// unique; expired rows stay until cleanup.
func createDiagramCacheTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS diagram_cache (
			id TEXT PRIMARY KEY,
			cache_key TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			scope_id TEXT NOT NULL,
			data BLOB NOT NULL,
			encoding TEXT NOT NULL DEFAULT 'identity',
			format TEXT NOT NULL DEFAULT 'json',
			parameters_json TEXT,
			expires_at TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			last_accessed_at TEXT NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		return fmt.Errorf("failed to create diagram_cache table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_diagram_cache_scope ON diagram_cache(scope_id, generated_at)",
		"CREATE INDEX IF NOT EXISTS idx_diagram_cache_expires_at ON diagram_cache(expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_diagram_cache_kind ON diagram_cache(kind)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create cache index: %w", err)
		}
	}
	return nil
}
