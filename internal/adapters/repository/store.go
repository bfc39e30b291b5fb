// Package repository defines the event and site store contracts and the
// sqlite implementation behind them.
package repository

import (
	"context"
	"time"

	"github.com/okian/pulse/internal/domain/model"
)

// SiteGetter is the read side used by the site resolver.
type SiteGetter interface {
	// GetSite returns the site configuration for a public key.
	// Returns ErrSiteNotFound when the key is unknown.
	GetSite(ctx context.Context, siteKey string) (model.SiteConfig, error)
}

// Store provides durable access to sites and events.
type Store interface {
	SiteGetter

	// SaveEvent appends one enriched event. The stored record's id and
	// creation time are assigned here; IsTemp is copied from the site at
	// write time since temp status can change later.
	SaveEvent(ctx context.Context, e model.EnrichedEvent, site model.SiteConfig) (model.StoredEvent, error)

	// ListRecent returns up to limit events for a site, newest first.
	ListRecent(ctx context.Context, siteKey string, limit int) ([]model.StoredEvent, error)

	// PruneTempEvents deletes the oldest events for a temp site beyond
	// keep, returning how many rows were removed. The cap is a soft
	// storage bound; concurrent writers may briefly overshoot it.
	PruneTempEvents(ctx context.Context, siteKey string, keep int) (int, error)

	// ExpireTempSites deletes temp sites whose expiry has passed,
	// cascading deletion of their events. Returns the number of sites
	// removed.
	ExpireTempSites(ctx context.Context, now time.Time) (int, error)

	// Site management writes, used by the provisioning layer and tests.
	CreateSite(ctx context.Context, site model.SiteConfig) error
	UpdateSiteDomains(ctx context.Context, siteKey string, domains []string) error
	DeleteSite(ctx context.Context, siteKey string) error

	Close() error
}
