package testtraffic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"github.com/okian/pulse/pkg/logger"
)

// HTTPClient wraps http.Client with a per-request timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// PostBeacon performs a POST request carrying one beacon, presenting the
// configured Origin and the beacon's User-Agent.
func (c *HTTPClient) PostBeacon(ctx context.Context, url, origin string, b Beacon) (*http.Response, error) {
	body, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal beacon: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", b.UserAgent)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// submitBeacons submits beacons concurrently using a worker pool.
func submitBeacons(ctx context.Context, config *Config, beacons []Beacon, stats *Stats) error {
	logger.Get().Info(ctx, "submitting beacons",
		logger.Int("count", len(beacons)),
		logger.Int("workers", config.Workers),
	)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/api/event"

	var (
		accepted  atomic.Int64
		rejected  atomic.Int64
		failed    atomic.Int64
		submitted atomic.Int64
	)

	beaconChan := make(chan Beacon, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range beaconChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				submitted.Add(1)
				switch submitSingleBeacon(ctx, client, url, config.Origin, b) {
				case outcomeAccepted:
					accepted.Add(1)
				case outcomeRejected:
					rejected.Add(1)
				default:
					failed.Add(1)
				}

				if config.Verbose {
					logger.Get().Debug(ctx, "progress",
						logger.Int("submitted", int(submitted.Load())),
						logger.Int("accepted", int(accepted.Load())),
						logger.Int("rejected", int(rejected.Load())),
						logger.Int("failed", int(failed.Load())),
					)
				}
			}
		}()
	}

	go func() {
		defer close(beaconChan)
		for _, b := range beacons {
			select {
			case <-ctx.Done():
				return
			case beaconChan <- b:
			}
		}
	}()

	wg.Wait()

	stats.EventsSubmitted = int(submitted.Load())
	stats.EventsAccepted = int(accepted.Load())
	stats.EventsRejected = int(rejected.Load())
	stats.EventsFailed = int(failed.Load())

	logger.Get().Info(ctx, "beacon submission completed",
		logger.Int("accepted", stats.EventsAccepted),
		logger.Int("rejected", stats.EventsRejected),
		logger.Int("failed", stats.EventsFailed),
	)
	return nil
}

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeRejected
	outcomeFailed
)

// submitSingleBeacon submits one beacon and classifies the result. A 4xx
// is a rejection the server chose to make; anything else non-200 is a
// transport or server failure.
func submitSingleBeacon(ctx context.Context, client *HTTPClient, url, origin string, b Beacon) outcome {
	resp, err := client.PostBeacon(ctx, url, origin, b)
	if err != nil {
		return outcomeFailed
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return outcomeFailed
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var ack collectResponse
		if err := json.Unmarshal(body, &ack); err == nil && !ack.Success {
			return outcomeFailed
		}
		return outcomeAccepted
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}
