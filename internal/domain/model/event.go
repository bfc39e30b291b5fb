// Package model contains domain models passed between layers.
package model

import "time"

// Device classification values produced by enrichment.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

// UnknownDomain marks a referrer whose host could not be parsed.
const UnknownDomain = "unknown"

// IncomingEvent is a client-submitted event after validation. Site and
// Event are always non-empty; Timestamp is resolved to receipt time when
// the client omitted it.
type IncomingEvent struct {
	Site      string         // public site key
	Event     string         // event name, e.g. "pageview"
	Timestamp time.Time      // event time, client-supplied or receipt time
	URL       string         // page URL as sent, not necessarily well-formed
	Referrer  string         // raw referrer string
	Props     map[string]any // open property bag, opaque shape
}

// RequestContext carries transport metadata used for access control and
// enrichment. Headers holds the edge-supplied headers relevant to geo
// derivation, keyed by canonical header name.
type RequestContext struct {
	Origin    string
	Referer   string
	UserAgent string
	Headers   map[string]string
}

// EnrichedEvent is an IncomingEvent plus facts derived from request
// metadata. Derived props never overwrite client-supplied keys.
type EnrichedEvent struct {
	IncomingEvent

	DeviceType     string
	OS             string
	OSVersion      string
	Browser        string
	BrowserVersion string
	ReferrerDomain string
	Country        string
	Region         string
}

// StoredEvent is the persisted record. Created exactly once per accepted
// event and never mutated.
type StoredEvent struct {
	ID             string
	Site           string
	Event          string
	Timestamp      time.Time
	CreatedAt      time.Time
	URL            string
	Referrer       string
	ReferrerDomain string
	DeviceType     string
	OS             string
	OSVersion      string
	Browser        string
	BrowserVersion string
	Country        string
	Region         string
	IsTemp         bool
	Props          map[string]any
}

// SiteConfig is a registered event destination. An empty AllowedDomains
// list means the site accepts events from any origin.
type SiteConfig struct {
	SiteKey        string
	Name           string
	OrganizationID string // empty for unclaimed temp sites
	AllowedDomains []string
	IsTemp         bool
	ExpiresAt      time.Time // zero means never; only meaningful for temp sites
	CreatedAt      time.Time
}

// Expired reports whether the site is a temp site past its expiry.
func (s SiteConfig) Expired(now time.Time) bool {
	return s.IsTemp && !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now)
}

// FieldError describes a single validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
