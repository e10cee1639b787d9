// Package cache keeps generated diagram artifacts keyed by kind, scope and
// calendar day. Entries expire after a TTL; an expired row stays in the
// store until CleanupExpired removes it.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"
)

// DefaultTTL is used when no TTL is configured
const DefaultTTL = time.Hour

// DefaultListLimit bounds List when no limit is given
const DefaultListLimit = 20

// Key returns the hex MD5 of "kind_scope_YYYY-MM-DD". The day is taken
// in UTC, so keys rotate at UTC midnight.
func Key(kind, scope string, day time.Time) string {
	sum := md5.Sum([]byte(kind + "_" + scope + "_" + day.UTC().Format("2006-01-02")))
	return hex.EncodeToString(sum[:])
}

// Artifact is one cached diagram document
type Artifact struct {
	ID             string            `json:"id"`
	CacheKey       string            `json:"cache_key"`
	Kind           string            `json:"kind"`
	ScopeID        string            `json:"scope_id"`
	Data           json.RawMessage   `json:"data"`
	Format         string            `json:"format"`
	ExpiresAt      time.Time         `json:"expires_at"`
	GeneratedAt    time.Time         `json:"generated_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	AccessCount    int               `json:"access_count"`
	Parameters     map[string]string `json:"parameters,omitempty"`
}

// Expired reports whether the artifact is dead at now
func (a *Artifact) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// Entry is a listed artifact
type Entry struct {
	Artifact
	IsExpired bool `json:"is_expired"`
}

// Stats summarizes the store
type Stats struct {
	Total       int            `json:"total"`
	Live        int            `json:"live"`
	Expired     int            `json:"expired"`
	ByKind      map[string]int `json:"by_kind"`
	TotalBytes  int64          `json:"total_bytes"`
	AccessCount int            `json:"access_count"`
}

// Store persists artifacts. Upsert is keyed by CacheKey and preserves
// the existing ID and access count, writing both back into the artifact. Get returns (nil, nil) when no row exists, live or not.
type Store interface {
	Get(ctx context.Context, key string) (*Artifact, error)
	Upsert(ctx context.Context, a *Artifact) error
	Touch(ctx context.Context, key string, at time.Time) error
	List(ctx context.Context, scope string, limit int) ([]Artifact, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	DeleteScope(ctx context.Context, scope string) (int, error)
	All(ctx context.Context) ([]Artifact, error)
	Close() error
}
