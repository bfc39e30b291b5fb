package testtraffic

import "time"

// Config holds configuration for the beacon generator.
type Config struct {
	BaseURL   string        // Base URL of the service
	SiteKey   string        // Public site key to send beacons for
	Origin    string        // Origin header to present, e.g. "https://example.com"
	NumEvents int           // Number of beacons to generate
	Workers   int           // Number of concurrent workers
	Timeout   time.Duration // HTTP request timeout
	LogFile   string        // Log file for run output
	Verbose   bool          // Enable verbose logging
}

// Beacon is the wire shape of one generated event.
type Beacon struct {
	Site      string         `json:"site"`
	Event     string         `json:"event"`
	Timestamp int64          `json:"timestamp,omitempty"`
	URL       string         `json:"url"`
	Referrer  string         `json:"referrer,omitempty"`
	Props     map[string]any `json:"props,omitempty"`

	// UserAgent is sent as a header, not in the payload.
	UserAgent string `json:"-"`
}

// collectResponse mirrors the collect endpoint's success envelope.
type collectResponse struct {
	Success bool   `json:"success"`
	Type    string `json:"type"`
	Error   string `json:"error"`
}

// recentResponse mirrors the recent-events read envelope.
type recentResponse struct {
	Success bool `json:"success"`
	Events  []struct {
		ID    string `json:"id"`
		Event string `json:"event"`
	} `json:"events"`
}

// Stats holds run statistics.
type Stats struct {
	EventsGenerated int
	EventsSubmitted int
	EventsAccepted  int
	EventsRejected  int
	EventsFailed    int
	RecentRetrieved int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
