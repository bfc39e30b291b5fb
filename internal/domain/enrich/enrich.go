// Package enrich derives structured facts from raw request metadata.
//
// Enrichment is a pure transformation: no I/O, no clock, no network. The
// same event and request context always enrich to the same output, so the
// ingestion path stays bounded regardless of what the client sends.
package enrich

import (
	"net/url"
	"strings"

	useragent "github.com/mileusna/useragent"

	"github.com/okian/pulse/internal/domain/model"
)

// Enricher merges derived device, referrer, and geo facts into an event.
type Enricher interface {
	Enrich(e model.IncomingEvent, rc model.RequestContext) model.EnrichedEvent
}

// Default edge headers consulted for geo hints, in priority order. These
// are populated by the hosting edge network; no lookup happens here.
var (
	defaultCountryHeaders = []string{"Cf-Ipcountry", "X-Vercel-Ip-Country", "X-Geo-Country"}
	defaultRegionHeaders  = []string{"Cf-Region", "X-Vercel-Ip-Country-Region", "X-Geo-Region"}
)

// Option applies a configuration option to the enricher.
type Option func(*uaEnricher)

// WithCountryHeaders overrides the headers consulted for the country hint.
func WithCountryHeaders(names ...string) Option {
	return func(e *uaEnricher) {
		if len(names) > 0 {
			e.countryHeaders = names
		}
	}
}

// WithRegionHeaders overrides the headers consulted for the region hint.
func WithRegionHeaders(names ...string) Option {
	return func(e *uaEnricher) {
		if len(names) > 0 {
			e.regionHeaders = names
		}
	}
}

// uaEnricher implements Enricher with pattern-based user-agent
// classification.
type uaEnricher struct {
	countryHeaders []string
	regionHeaders  []string
}

// New creates an enricher with configuration options.
func New(opts ...Option) Enricher {
	e := &uaEnricher{
		countryHeaders: defaultCountryHeaders,
		regionHeaders:  defaultRegionHeaders,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich implements Enricher.
func (e *uaEnricher) Enrich(in model.IncomingEvent, rc model.RequestContext) model.EnrichedEvent {
	out := model.EnrichedEvent{IncomingEvent: in}

	ua := useragent.Parse(rc.UserAgent)
	out.DeviceType = deviceType(ua)
	out.OS = orUnknown(ua.OS)
	out.OSVersion = ua.OSVersion
	out.Browser = orUnknown(ua.Name)
	out.BrowserVersion = ua.Version

	out.ReferrerDomain = referrerDomain(in.Referrer)

	out.Country = firstHeader(rc.Headers, e.countryHeaders)
	out.Region = firstHeader(rc.Headers, e.regionHeaders)

	out.Props = mergeProps(in.Props, derivedProps(out))
	return out
}

func deviceType(ua useragent.UserAgent) string {
	switch {
	case ua.Tablet:
		return model.DeviceTablet
	case ua.Mobile:
		return model.DeviceMobile
	case ua.Desktop:
		return model.DeviceDesktop
	default:
		return model.DeviceUnknown
	}
}

func orUnknown(s string) string {
	if s == "" {
		return model.DeviceUnknown
	}
	return s
}

// referrerDomain extracts the lowercased referrer host. A present but
// unparseable referrer is marked unknown rather than dropped; the raw
// string is kept on the event either way.
func referrerDomain(referrer string) string {
	if strings.TrimSpace(referrer) == "" {
		return ""
	}
	u, err := url.Parse(referrer)
	if err != nil || u.Hostname() == "" {
		return model.UnknownDomain
	}
	return strings.ToLower(u.Hostname())
}

func firstHeader(headers map[string]string, names []string) string {
	for _, name := range names {
		if v, ok := headers[name]; ok && v != "" && v != "XX" {
			return v
		}
	}
	return ""
}

// derivedProps lists the derived facts that also land in the props bag so
// downstream consumers see one flat mapping.
func derivedProps(e model.EnrichedEvent) map[string]any {
	d := map[string]any{
		"device_type": e.DeviceType,
		"os":          e.OS,
		"browser":     e.Browser,
	}
	if e.ReferrerDomain != "" {
		d["referrer_domain"] = e.ReferrerDomain
	}
	if e.Country != "" {
		d["country"] = e.Country
	}
	if e.Region != "" {
		d["region"] = e.Region
	}
	return d
}

// mergeProps overlays derived keys under the client's props. A client that
// deliberately sends its own value for a derived key wins.
func mergeProps(client, derived map[string]any) map[string]any {
	out := make(map[string]any, len(client)+len(derived))
	for k, v := range derived {
		out[k] = v
	}
	for k, v := range client {
		out[k] = v
	}
	return out
}
