package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"codemap/internal/cache"
)

// timeLayout is fixed-width UTC so stored timestamps compare lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// rows written by older builds used RFC3339
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// CacheStore is the SQLite implementation of cache.Store
type CacheStore struct {
	db                *DB
	compressThreshold int
}

// NewCacheStore wraps db. Payloads of at least compressThreshold bytes
// are stored zstd-compressed; zero disables compression.
func NewCacheStore(db *DB, compressThreshold int) *CacheStore {
	return &CacheStore{db: db, compressThreshold: compressThreshold}
}

var _ cache.Store = (*CacheStore)(nil)

const artifactColumns = `id, cache_key, kind, scope_id, data, encoding, format, parameters_json,
	expires_at, generated_at, last_accessed_at, access_count`

// Get retrieves the row for key regardless of expiry
func (s *CacheStore) Get(ctx context.Context, key string) (*cache.Artifact, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM diagram_cache WHERE cache_key = ?`, key)
	a, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return a, nil
}

// Upsert inserts or replaces the row for a.CacheKey, keeping its id
func (s *CacheStore) Upsert(ctx context.Context, a *cache.Artifact) error {
	data, encoding, err := encodePayload(a.Data, s.compressThreshold)
	if err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	var params sql.NullString
	if len(a.Parameters) > 0 {
		b, err := json.Marshal(a.Parameters)
		if err != nil {
			return fmt.Errorf("failed to marshal parameters: %w", err)
		}
		params = sql.NullString{String: string(b), Valid: true}
	}
	id := a.ID
	if id == "" {
		id = uuid.New().String()
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO diagram_cache (`+artifactColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(cache_key) DO UPDATE SET
				kind = excluded.kind,
				scope_id = excluded.scope_id,
				data = excluded.data,
				encoding = excluded.encoding,
				format = excluded.format,
				parameters_json = excluded.parameters_json,
				expires_at = excluded.expires_at,
				generated_at = excluded.generated_at,
				last_accessed_at = excluded.last_accessed_at
		`, id, a.CacheKey, a.Kind, a.ScopeID, data, encoding, a.Format, params,
			formatTime(a.ExpiresAt), formatTime(a.GeneratedAt), formatTime(a.LastAccessedAt), a.AccessCount,
		); err != nil {
			return fmt.Errorf("failed to upsert cache entry: %w", err)
		}
		// an existing row keeps its id and access count
		if err := tx.QueryRowContext(ctx,
			`SELECT id, access_count FROM diagram_cache WHERE cache_key = ?`, a.CacheKey,
		).Scan(&a.ID, &a.AccessCount); err != nil {
			return fmt.Errorf("failed to read cache entry id: %w", err)
		}
		return nil
	})
}

// Touch records one access. Touching a missing key is a no-op.
func (s *CacheStore) Touch(ctx context.Context, key string, at time.Time) error {
	_, err := s.db.conn.ExecContext(ctx, `
		UPDATE diagram_cache
		SET access_count = access_count + 1, last_accessed_at = ?
		WHERE cache_key = ?
	`, formatTime(at), key)
	if err != nil {
		return fmt.Errorf("failed to touch cache entry: %w", err)
	}
	return nil
}

// List returns rows of scope (all scopes when empty), newest first
func (s *CacheStore) List(ctx context.Context, scope string, limit int) ([]cache.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM diagram_cache`
	var args []interface{}
	if scope != "" {
		query += ` WHERE scope_id = ?`
		args = append(args, scope)
	}
	query += ` ORDER BY generated_at DESC, cache_key ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// All returns every row, newest first
func (s *CacheStore) All(ctx context.Context) ([]cache.Artifact, error) {
	return s.List(ctx, "", 0)
}

// DeleteExpired removes rows whose expiry is before now
func (s *CacheStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM diagram_cache WHERE expires_at < ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteScope removes the rows of scope, or every row when scope is empty
func (s *CacheStore) DeleteScope(ctx context.Context, scope string) (int, error) {
	var (
		res sql.Result
		err error
	)
	if scope == "" {
		res, err = s.db.conn.ExecContext(ctx, `DELETE FROM diagram_cache`)
	} else {
		res, err = s.db.conn.ExecContext(ctx, `DELETE FROM diagram_cache WHERE scope_id = ?`, scope)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Close closes the database
func (s *CacheStore) Close() error {
	return s.db.Close()
}

func (s *CacheStore) query(ctx context.Context, query string, args ...interface{}) ([]cache.Artifact, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer rows.Close()

	var out []cache.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanArtifact(row scanner) (*cache.Artifact, error) {
	var (
		a                              cache.Artifact
		data                           []byte
		encoding                       string
		params                         sql.NullString
		expiresAt, generatedAt, lastAt string
	)
	if err := row.Scan(&a.ID, &a.CacheKey, &a.Kind, &a.ScopeID, &data, &encoding, &a.Format, &params,
		&expiresAt, &generatedAt, &lastAt, &a.AccessCount); err != nil {
		return nil, err
	}

	payload, err := decodePayload(data, encoding)
	if err != nil {
		return nil, fmt.Errorf("cache entry %s: %w", a.CacheKey, err)
	}
	a.Data = payload

	if params.Valid && params.String != "" {
		if err := json.Unmarshal([]byte(params.String), &a.Parameters); err != nil {
			return nil, fmt.Errorf("cache entry %s: invalid parameters: %w", a.CacheKey, err)
		}
	}
	if a.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("cache entry %s: invalid expires_at: %w", a.CacheKey, err)
	}
	if a.GeneratedAt, err = parseTime(generatedAt); err != nil {
		return nil, fmt.Errorf("cache entry %s: invalid generated_at: %w", a.CacheKey, err)
	}
	if a.LastAccessedAt, err = parseTime(lastAt); err != nil {
		return nil, fmt.Errorf("cache entry %s: invalid last_accessed_at: %w", a.CacheKey, err)
	}
	return &a, nil
}
