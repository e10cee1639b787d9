package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	tmpDir := t.TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db, tmpDir
}

func TestDatabaseInitialization(t *testing.T) {
	db, tmpDir := setupTestDB(t)

	dbPath := filepath.Join(tmpDir, ".codemap", "codemap.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatalf("Database file was not created at %s", dbPath)
	}
	if db.Path() != dbPath {
		t.Errorf("Expected path %s, got %s", dbPath, db.Path())
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}
}

func TestDiagramCacheTableCreated(t *testing.T) {
	db, _ := setupTestDB(t)

	var name string
	err := db.conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='diagram_cache'`).Scan(&name)
	if err != nil {
		t.Fatalf("diagram_cache table missing: %v", err)
	}

	var idx int
	err = db.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name LIKE 'idx_diagram_cache_%'`).Scan(&idx)
	if err != nil {
		t.Fatalf("Failed to count indexes: %v", err)
	}
	if idx != 3 {
		t.Errorf("Expected 3 indexes, got %d", idx)
	}
}

func TestReopenRunsMigrations(t *testing.T) {
	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Failed to close database: %v", err)
	}

	db, err = Open(tmpDir, logger)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}
}

func TestMigrateFromV1(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "v1.db")

	db, err := OpenPath(dbPath, nil)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	// rebuild the table as v1 had it, without the encoding column
	for _, stmt := range []string{
		`DROP TABLE diagram_cache`,
		`CREATE TABLE diagram_cache (
			id TEXT PRIMARY KEY,
			cache_key TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			scope_id TEXT NOT NULL,
			data BLOB NOT NULL,
			format TEXT NOT NULL DEFAULT 'json',
			parameters_json TEXT,
			expires_at TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			last_accessed_at TEXT NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 0
		)`,
		`UPDATE schema_version SET version = 1`,
	} {
		if _, err := db.conn.Exec(stmt); err != nil {
			t.Fatalf("setup %q: %v", stmt, err)
		}
	}
	db.Close()

	db, err = OpenPath(dbPath, nil)
	if err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	defer db.Close()

	var encoding string
	if _, err := db.conn.Exec(`INSERT INTO diagram_cache (id, cache_key, kind, scope_id, data, expires_at, generated_at, last_accessed_at)
		VALUES ('a', 'k', 'uml', 's', x'', '', '', '')`); err != nil {
		t.Fatalf("insert after migration: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT encoding FROM diagram_cache WHERE id = 'a'`).Scan(&encoding); err != nil {
		t.Fatalf("encoding column missing: %v", err)
	}
	if encoding != encodingIdentity {
		t.Errorf("Expected default encoding %q, got %q", encodingIdentity, encoding)
	}
}

func TestConnectionPragmas(t *testing.T) {
	db, _ := setupTestDB(t)

	// hold one connection so the pool has to open a second
	held, err := db.conn.Conn(context.Background())
	if err != nil {
		t.Fatalf("Failed to get connection: %v", err)
	}
	defer held.Close()

	var timeout int
	if err := db.conn.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout); err != nil {
		t.Fatalf("Failed to read busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000 on every connection", timeout)
	}

	var mode string
	if err := db.conn.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("Failed to read journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}
