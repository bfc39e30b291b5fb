// Package guard enforces per-site origin allow-lists.
//
// Protection is opt-in: a site with no configured domains accepts events
// from anywhere. Once a list is configured the guard fails closed: a
// request that yields no usable host is denied.
package guard

import (
	"context"
	"net/url"
	"strings"

	"github.com/okian/pulse/internal/domain/model"
)

// Guard decides whether a request may submit events for a site.
type Guard interface {
	// Allowed checks the request's declared origin against the site's
	// allow-list. Host candidates are tried in a fixed order: the Origin
	// header, the Referer header, then the payload URL. The first
	// candidate that yields a host is the one compared; later candidates
	// are not consulted once a host is derived.
	Allowed(ctx context.Context, site model.SiteConfig, origin, referer, pageURL string) bool
}

// hostGuard implements Guard with exact host matching plus explicit
// wildcard entries.
type hostGuard struct{}

// New creates the default guard.
func New() Guard {
	return hostGuard{}
}

// Allowed implements Guard.
func (hostGuard) Allowed(_ context.Context, site model.SiteConfig, origin, referer, pageURL string) bool {
	if len(site.AllowedDomains) == 0 {
		return true
	}

	host := firstHost(origin, referer, pageURL)
	if host == "" {
		// Beacon transports may omit Origin entirely; with a list
		// configured and no fallback host, fail closed.
		return false
	}

	for _, entry := range site.AllowedDomains {
		if matches(host, entry) {
			return true
		}
	}
	return false
}

// firstHost returns the host of the first candidate that parses to one.
func firstHost(candidates ...string) string {
	for _, c := range candidates {
		if h := hostOf(c); h != "" {
			return h
		}
	}
	return ""
}

// hostOf extracts a lowercased host (port stripped) from an origin or URL
// string. Returns "" when no host can be derived, including the literal
// "null" origin some beacon transports send.
func hostOf(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// matches compares a request host against one allow-list entry. Entries
// starting with "*." match any subdomain of the remainder but not the
// apex itself; all other entries must match exactly.
func matches(host, entry string) bool {
	entry = strings.ToLower(strings.TrimSpace(entry))
	if entry == "" {
		return false
	}
	if rest, ok := strings.CutPrefix(entry, "*."); ok {
		return strings.HasSuffix(host, "."+rest)
	}
	return host == entry
}
