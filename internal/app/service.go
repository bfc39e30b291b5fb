// Package service provides the core collection pipeline that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	repository "github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/adapters/sweeper"
	"github.com/okian/pulse/internal/domain/enrich"
	"github.com/okian/pulse/internal/domain/guard"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

// Default pipeline configuration constants.
const (
	defaultDSN           = "file:pulse.db"
	defaultTempRetention = 50
	defaultCacheTTL      = 30 * time.Second
)

// Service wires validation, site resolution, domain guarding, enrichment
// and storage into a single synchronous collection pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	resolver *repository.SiteResolver
	guard    guard.Guard
	enricher enrich.Enricher
	sweeper  *sweeper.Sweeper

	// Configuration
	dsn           string
	tempRetention int
	cacheTTL      time.Duration
	sweepInterval time.Duration

	// State
	started  bool
	ownStore bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDSN sets the SQLite data source name for the event store.
func WithDSN(dsn string) Option {
	return func(s *Service) {
		if dsn != "" {
			s.dsn = dsn
		}
	}
}

// WithStore injects a pre-built event store. The caller keeps ownership;
// Stop will not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithTempRetention sets how many recent events a temp site retains.
func WithTempRetention(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.tempRetention = n
		}
	}
}

// WithSiteCacheTTL sets the site config cache TTL.
func WithSiteCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithSweepInterval sets the interval of the background expiry sweep.
// Zero disables the internal sweeper; the maintenance endpoint still
// triggers sweeps on demand.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.sweepInterval = d
		}
	}
}

// WithGuard sets a custom domain guard.
func WithGuard(g guard.Guard) Option {
	return func(s *Service) {
		if g != nil {
			s.guard = g
		}
	}
}

// WithEnricher sets a custom event enricher.
func WithEnricher(e enrich.Enricher) Option {
	return func(s *Service) {
		if e != nil {
			s.enricher = e
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dsn:           defaultDSN,
		tempRetention: defaultTempRetention,
		cacheTTL:      defaultCacheTTL,
		sweepInterval: 0,
		logger:        nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting collection service...")

	// Initialize components
	if s.store == nil {
		store, err := repository.NewSQLiteStore(s.dsn)
		if err != nil {
			return fmt.Errorf("open event store: %w", err)
		}
		s.store = store
		s.ownStore = true
		s.logger.Info(ctx, "using sqlite store", logger.String("dsn", s.dsn))
	}
	s.resolver = repository.NewSiteResolver(s.store,
		repository.WithCacheTTL(s.cacheTTL),
	)
	if s.guard == nil {
		s.guard = guard.New()
	}
	if s.enricher == nil {
		s.enricher = enrich.New()
	}

	// Start the background expiry sweep when an interval is configured
	if s.sweepInterval > 0 {
		s.sweeper = sweeper.New(s,
			sweeper.WithInterval(s.sweepInterval),
			sweeper.WithLogger(s.logger.Named("sweeper")),
		)
		go s.sweeper.Run(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "collection service started",
		logger.Int("tempRetention", s.tempRetention),
		logger.String("cacheTTL", s.cacheTTL.String()),
		logger.String("sweepInterval", s.sweepInterval.String()),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	sw := s.sweeper
	s.mu.Unlock()

	s.logger.Info(context.Background(), "stopping collection service...")

	// Stop the background sweeper first; a running sweep calls back into
	// the service and must not find it half torn down.
	if sw != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = sw.Shutdown(ctx)
		cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Close the store only if this service opened it
	if s.ownStore && s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "collection service stopped")
}

// Collect runs one event through the full pipeline: resolve the site,
// check the page domain against the allow-list, enrich, and persist.
func (s *Service) Collect(ctx context.Context, e model.IncomingEvent, rc model.RequestContext) (model.StoredEvent, error) {
	if !s.isStarted() {
		return model.StoredEvent{}, ErrNotStarted
	}

	site, err := s.resolver.Resolve(ctx, e.Site)
	if err != nil {
		if errors.Is(err, repository.ErrSiteNotFound) {
			return model.StoredEvent{}, fmt.Errorf("site %q: %w", e.Site, ErrUnknownSite)
		}
		return model.StoredEvent{}, fmt.Errorf("resolve site %q: %w: %w", e.Site, ErrStorage, err)
	}

	if !s.guard.Allowed(ctx, site, rc.Origin, rc.Referer, e.URL) {
		s.logger.Warn(ctx, "event rejected by domain guard",
			logger.String("site", e.Site),
			logger.String("origin", rc.Origin),
			logger.String("referer", rc.Referer),
			logger.String("url", e.URL),
		)
		return model.StoredEvent{}, fmt.Errorf("site %q: %w", e.Site, ErrDomainNotAllowed)
	}

	enriched := s.enricher.Enrich(e, rc)

	stored, err := s.store.SaveEvent(ctx, enriched, site)
	if err != nil {
		return model.StoredEvent{}, fmt.Errorf("save event for site %q: %w: %w", e.Site, ErrStorage, err)
	}

	// Keep temp sites bounded. A failed prune never fails the write; the
	// next accepted event retries it.
	if site.IsTemp {
		if _, err := s.store.PruneTempEvents(ctx, site.SiteKey, s.tempRetention); err != nil {
			s.logger.Warn(ctx, "temp event prune failed",
				logger.String("site", site.SiteKey),
				logger.Error(err),
			)
		}
	}

	return stored, nil
}

// RecentEvents returns the newest stored events for a site.
func (s *Service) RecentEvents(ctx context.Context, siteKey string, limit int) ([]model.StoredEvent, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	return s.store.ListRecent(ctx, siteKey, limit)
}

// ExpireTempSites removes expired temp sites and their events, returning
// the number of sites swept.
func (s *Service) ExpireTempSites(ctx context.Context, now time.Time) (int, error) {
	if !s.isStarted() {
		return 0, ErrNotStarted
	}

	n, err := s.store.ExpireTempSites(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire temp sites: %w", err)
	}
	metrics.RecordSweepRun()

	// Swept sites must stop resolving immediately, not after cache TTL.
	s.resolver.Reset()

	return n, nil
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
