package cache

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"codemap/internal/config"
	cmerrors "codemap/internal/errors"
	"codemap/internal/slogutil"
)

// Options configures a Manager
type Options struct {
	TTL       time.Duration
	KindTTL   map[string]time.Duration
	ListLimit int
	Now       func() time.Time
	Logger    *slog.Logger
}

// OptionsFromConfig maps the cache section of the configuration
func OptionsFromConfig(cfg config.CacheConfig) Options {
	opts := Options{
		TTL:       time.Duration(cfg.TtlSeconds) * time.Second,
		KindTTL:   make(map[string]time.Duration, len(cfg.KindTtlSeconds)),
		ListLimit: cfg.ListLimit,
	}
	for kind, secs := range cfg.KindTtlSeconds {
		if secs > 0 {
			opts.KindTTL[kind] = time.Duration(secs) * time.Second
		}
	}
	return opts
}

// Manager implements read-through caching over a Store
type Manager struct {
	store     Store
	ttl       time.Duration
	kindTTL   map[string]time.Duration
	listLimit int
	now       func() time.Time
	logger    *slog.Logger
	flight    singleflight.Group
}

// NewManager wraps store
func NewManager(store Store, opts Options) *Manager {
	m := &Manager{
		store:     store,
		ttl:       opts.TTL,
		kindTTL:   opts.KindTTL,
		listLimit: opts.ListLimit,
		now:       opts.Now,
		logger:    opts.Logger,
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.listLimit <= 0 {
		m.listLimit = DefaultListLimit
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = slogutil.NewDiscardLogger()
	}
	return m
}

// TTLFor returns the TTL used for kind
func (m *Manager) TTLFor(kind string) time.Duration {
	if ttl, ok := m.kindTTL[kind]; ok && ttl > 0 {
		return ttl
	}
	return m.ttl
}

// KeyFor is the current cache key of (kind, scope)
func (m *Manager) KeyFor(kind, scope string) string {
	return Key(kind, scope, m.now())
}

// Get returns the live artifact for key. A hit increments the access
// count and refreshes last_accessed_at; absent and expired rows miss.
func (m *Manager) Get(ctx context.Context, key string) (*Artifact, bool, error) {
	return m.lookup(ctx, "", key)
}

func (m *Manager) lookup(ctx context.Context, kind, key string) (*Artifact, bool, error) {
	a, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if kind == "" && a != nil {
		kind = a.Kind
	}
	if a == nil {
		cacheLookups.WithLabelValues(kind, "miss").Inc()
		return nil, false, nil
	}

	now := m.now()
	if a.Expired(now) {
		cacheLookups.WithLabelValues(kind, "expired").Inc()
		return nil, false, nil
	}

	if err := m.store.Touch(ctx, key, now); err != nil {
		m.logger.Warn("Failed to record cache access", "key", key, "error", err.Error())
	} else {
		a.AccessCount++
		a.LastAccessedAt = now
	}
	cacheLookups.WithLabelValues(kind, "hit").Inc()
	return a, true, nil
}

// Put upserts a by cache key with an expiry of now+ttl
func (m *Manager) Put(ctx context.Context, a *Artifact, ttl time.Duration) error {
	now := m.now()
	if ttl <= 0 {
		ttl = m.TTLFor(a.Kind)
	}
	if a.GeneratedAt.IsZero() {
		a.GeneratedAt = now
	}
	a.LastAccessedAt = now
	a.ExpiresAt = now.Add(ttl)
	if err := m.store.Upsert(ctx, a); err != nil {
		return cmerrors.New(cmerrors.CacheStoreFailed, "failed to store diagram artifact", err, nil)
	}
	return nil
}

// Request identifies an artifact to fetch or generate
type Request struct {
	Kind       string
	ScopeID    string
	Format     string
	Parameters map[string]string
	// Refresh skips the lookup and always regenerates
	Refresh bool
}

// Outcome reports how GetOrGenerate produced its artifact
type Outcome struct {
	Artifact *Artifact
	Cached   bool
	Stored   bool
	// StoreErr is set when the artifact was generated but not persisted
	StoreErr error
}

// GenerateFunc produces the artifact data on a miss
type GenerateFunc func(ctx context.Context) ([]byte, error)

// GetOrGenerate returns a live artifact or regenerates it. Concurrent
// callers for one key share a single generation. Lookup failures degrade
// to a miss and store failures to an unstored outcome; only generation
// errors are returned.
func (m *Manager) GetOrGenerate(ctx context.Context, req Request, gen GenerateFunc) (*Outcome, error) {
	if req.ScopeID == "" {
		return nil, cmerrors.Newf(cmerrors.ScopeInvalid, "scope id is empty")
	}
	key := m.KeyFor(req.Kind, req.ScopeID)

	if !req.Refresh {
		if out, ok := m.cached(ctx, req.Kind, key); ok {
			return out, nil
		}
	}

	v, err, shared := m.flight.Do(key, func() (interface{}, error) {
		if !req.Refresh {
			if out, ok := m.cached(ctx, req.Kind, key); ok {
				return out, nil
			}
		}
		return m.generate(ctx, key, req, gen)
	})
	if err != nil {
		return nil, err
	}
	out := *v.(*Outcome)
	if shared {
		m.logger.Debug("Shared in-flight generation", "kind", req.Kind, "key", key)
	}
	return &out, nil
}

func (m *Manager) cached(ctx context.Context, kind, key string) (*Outcome, bool) {
	a, ok, err := m.lookup(ctx, kind, key)
	if err != nil {
		m.logger.Warn("Cache lookup failed, regenerating", "kind", kind, "key", key, "error", err.Error())
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &Outcome{Artifact: a, Cached: true, Stored: true}, true
}

func (m *Manager) generate(ctx context.Context, key string, req Request, gen GenerateFunc) (*Outcome, error) {
	start := time.Now()
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	generationDuration.WithLabelValues(req.Kind).Observe(time.Since(start).Seconds())

	a := &Artifact{
		CacheKey:   key,
		Kind:       req.Kind,
		ScopeID:    req.ScopeID,
		Data:       data,
		Format:     req.Format,
		Parameters: req.Parameters,
	}
	out := &Outcome{Artifact: a}
	if err := m.Put(ctx, a, 0); err != nil {
		cacheStoreFailures.WithLabelValues(req.Kind).Inc()
		m.logger.Warn("Diagram generated but not cached",
			"kind", req.Kind,
			"scope", req.ScopeID,
			"error", err.Error(),
		)
		out.StoreErr = err
		return out, nil
	}
	out.Stored = true
	return out, nil
}

// List returns artifacts of scope (all scopes when empty), newest first
func (m *Manager) List(ctx context.Context, scope string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = m.listLimit
	}
	rows, err := m.store.List(ctx, scope, limit)
	if err != nil {
		return nil, err
	}
	now := m.now()
	out := make([]Entry, 0, len(rows))
	for _, a := range rows {
		out = append(out, Entry{Artifact: a, IsExpired: a.Expired(now)})
	}
	return out, nil
}

// CleanupExpired deletes dead rows and returns how many were removed
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, err
	}
	cacheEvictions.WithLabelValues("expired").Add(float64(n))
	m.logger.Info("Expired cache entries removed", "count", n)
	return n, nil
}

// Invalidate deletes every row of scope, or all rows when scope is empty
func (m *Manager) Invalidate(ctx context.Context, scope string) (int, error) {
	n, err := m.store.DeleteScope(ctx, scope)
	if err != nil {
		return 0, err
	}
	cacheEvictions.WithLabelValues("invalidated").Add(float64(n))
	m.logger.Info("Cache invalidated", "scope", scope, "count", n)
	return n, nil
}

// Stats summarizes the stored rows
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	rows, err := m.store.All(ctx)
	if err != nil {
		return nil, err
	}
	now := m.now()
	s := &Stats{ByKind: make(map[string]int)}
	for _, a := range rows {
		s.Total++
		if a.Expired(now) {
			s.Expired++
		} else {
			s.Live++
		}
		s.ByKind[a.Kind]++
		s.TotalBytes += int64(len(a.Data))
		s.AccessCount += a.AccessCount
	}
	return s, nil
}

// Close closes the underlying store
func (m *Manager) Close() error {
	return m.store.Close()
}
