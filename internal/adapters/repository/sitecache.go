package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/metrics"
)

// Default resolver configuration constants.
const (
	defaultCacheTTL = 30 * time.Second
)

// ResolverOption applies a configuration option to the SiteResolver.
type ResolverOption func(*SiteResolver)

// WithCacheTTL sets how long a resolved site is served from cache before
// it is re-fetched.
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *SiteResolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithClock overrides the resolver's time source, used by tests.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *SiteResolver) {
		if now != nil {
			r.now = now
		}
	}
}

// SiteResolver is a read-through TTL cache in front of site lookups. The
// collection path does a point lookup per request; caching keeps that
// lookup off the database for hot sites.
//
// Expiry of temp sites is evaluated on every resolve against the current
// clock, so an expired temp site is reported missing even while its row
// is still cached or not yet swept.
type SiteResolver struct {
	store SiteGetter
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	site    model.SiteConfig
	missing bool
	fetched time.Time
}

// NewSiteResolver creates a resolver backed by store.
func NewSiteResolver(store SiteGetter, opts ...ResolverOption) *SiteResolver {
	r := &SiteResolver{
		store:   store,
		ttl:     defaultCacheTTL,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the site configuration for a public key. Returns
// ErrSiteNotFound for unknown keys and for temp sites past their expiry,
// even if the expired row has not been physically swept yet.
func (r *SiteResolver) Resolve(ctx context.Context, siteKey string) (model.SiteConfig, error) {
	now := r.now()

	r.mu.RLock()
	entry, ok := r.entries[siteKey]
	r.mu.RUnlock()

	if ok && now.Sub(entry.fetched) < r.ttl {
		metrics.RecordSiteCacheHit()
		return r.answer(entry, now)
	}

	metrics.RecordSiteCacheMiss()
	site, err := r.store.GetSite(ctx, siteKey)
	switch {
	case errors.Is(err, ErrSiteNotFound):
		entry = cacheEntry{missing: true, fetched: now}
	case err != nil:
		// Do not cache transient store failures.
		return model.SiteConfig{}, err
	default:
		entry = cacheEntry{site: site, fetched: now}
	}

	r.mu.Lock()
	r.entries[siteKey] = entry
	r.mu.Unlock()

	return r.answer(entry, now)
}

// Invalidate drops a cached entry, used after site management writes.
func (r *SiteResolver) Invalidate(siteKey string) {
	r.mu.Lock()
	delete(r.entries, siteKey)
	r.mu.Unlock()
}

// Reset drops every cached entry, used after an expiry sweep so removed
// sites stop resolving before their TTL lapses.
func (r *SiteResolver) Reset() {
	r.mu.Lock()
	r.entries = make(map[string]cacheEntry)
	r.mu.Unlock()
}

func (r *SiteResolver) answer(entry cacheEntry, now time.Time) (model.SiteConfig, error) {
	if entry.missing || entry.site.Expired(now) {
		return model.SiteConfig{}, ErrSiteNotFound
	}
	return entry.site, nil
}
