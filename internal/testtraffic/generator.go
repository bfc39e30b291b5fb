package testtraffic

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/okian/pulse/pkg/logger"
)

// Pools of realistic traffic attributes the generator samples from.
var (
	eventNames = []string{
		"pageview", "pageview", "pageview", "pageview", // dominant
		"signup", "purchase", "outbound_click", "scroll_depth",
	}

	pagePaths = []string{
		"/", "/pricing", "/docs", "/docs/getting-started", "/blog",
		"/blog/launch", "/about", "/changelog",
	}

	referrers = []string{
		"", "", // direct traffic is common
		"https://www.google.com/search?q=analytics",
		"https://news.ycombinator.com/",
		"https://t.co/abc123",
		"https://duckduckgo.com/",
	}

	userAgents = []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (iPad; CPU OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/120.0.6099.119 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (X11; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0",
	}
)

// maxTimestampJitter spreads generated events over the recent past.
const maxTimestampJitter = 10 * time.Minute

// randomIndex returns a random index below n using crypto/rand.
func randomIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateBeacons creates the configured number of beacons.
func generateBeacons(ctx context.Context, config *Config, stats *Stats) []Beacon {
	logger.Get().Info(ctx, "generating beacons",
		logger.Int("numEvents", config.NumEvents),
		logger.String("site", config.SiteKey),
	)

	beacons := make([]Beacon, config.NumEvents)
	now := time.Now().UTC()
	for i := range beacons {
		beacons[i] = generateSingleBeacon(config, now)
	}

	stats.EventsGenerated = len(beacons)
	return beacons
}

// generateSingleBeacon samples one beacon from the attribute pools.
func generateSingleBeacon(config *Config, now time.Time) Beacon {
	jitter := time.Duration(randomIndex(int(maxTimestampJitter / time.Millisecond)))
	ts := now.Add(-jitter * time.Millisecond)

	name := eventNames[randomIndex(len(eventNames))]
	b := Beacon{
		Site:      config.SiteKey,
		Event:     name,
		Timestamp: ts.UnixMilli(),
		URL:       config.Origin + pagePaths[randomIndex(len(pagePaths))],
		Referrer:  referrers[randomIndex(len(referrers))],
		UserAgent: userAgents[randomIndex(len(userAgents))],
	}
	if name == "purchase" {
		b.Props = map[string]any{"plan": "pro", "amount": 29}
	}
	return b
}
