// Package storage persists diagram artifacts in a SQLite database under
// the repository's .codemap directory.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"codemap/internal/paths"
	"codemap/internal/slogutil"
)

// DB represents a database connection with transaction helpers
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// Open opens or creates the database at .codemap/codemap.db
func Open(repoRoot string, logger *slog.Logger) (*DB, error) {
	if _, err := paths.EnsureStateDir(repoRoot); err != nil {
		return nil, err
	}
	return OpenPath(paths.DatabasePath(repoRoot), logger)
}

// OpenPath opens or creates a database file at dbPath. New databases get
// the full schema; existing ones are migrated.
func OpenPath(dbPath string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:   conn,
		logger: logger,
		dbPath: dbPath,
	}

	if !dbExists {
		logger.Info("Creating new database", "path", dbPath)
		if err := db.initializeSchema(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	} else {
		logger.Debug("Running database migrations", "path", dbPath)
		if err := db.runMigrations(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.dbPath
}

// WithTx executes fn within a transaction. The transaction is rolled
// back when fn returns an error or panics.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("failed to rollback transaction",
				"error", err.Error(),
				"rollback_error", rbErr.Error(),
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// connPragmas are applied by the driver to every pooled connection
var connPragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
	"cache_size(-16000)",
	"temp_store(MEMORY)",
}

func dsn(dbPath string) string {
	q := url.Values{}
	for _, p := range connPragmas {
		q.Add("_pragma", p)
	}
	return dbPath + "?" + q.Encode()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
