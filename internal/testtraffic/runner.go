package testtraffic

import (
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/okian/pulse/pkg/logger"
)

// Run executes the complete beacon run: health check, generate, submit,
// then read back the site's recent events.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting beacon run",
		logger.String("baseURL", config.BaseURL),
		logger.String("site", config.SiteKey),
		logger.String("origin", config.Origin),
		logger.Int("events", config.NumEvents),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
	)

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	beacons := generateBeacons(ctx, config, stats)

	if err := submitBeacons(ctx, config, beacons, stats); err != nil {
		return fmt.Errorf("beacon submission failed: %w", err)
	}

	if err := checkRecentEvents(ctx, config, stats); err != nil {
		logger.Get().Warn(ctx, "recent-events readback failed", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "beacon run completed")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Any 200 is healthy; the endpoint serves Prometheus metrics.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// checkRecentEvents reads back the newest events for the target site.
func checkRecentEvents(ctx context.Context, config *Config, stats *Stats) error {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/api/sites/" + config.SiteKey + "/events?limit=100"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to fetch recent events: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recent events request failed with status: %d", resp.StatusCode)
	}

	var recent recentResponse
	if err := json.Unmarshal(body, &recent); err != nil {
		return fmt.Errorf("failed to decode recent events: %w", err)
	}

	stats.RecentRetrieved = len(recent.Events)
	logger.Get().Info(ctx, "recent events retrieved", logger.Int("count", stats.RecentRetrieved))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, eventsPerSecond float64

	if stats.EventsSubmitted > 0 {
		acceptRate = float64(stats.EventsAccepted) / float64(stats.EventsSubmitted) * 100
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsAccepted", stats.EventsAccepted),
		logger.Int("eventsRejected", stats.EventsRejected),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("recentRetrieved", stats.RecentRetrieved),
		logger.String("duration", stats.Duration.String()),
		logger.Any("acceptRate", acceptRate),
		logger.Any("eventsPerSecond", eventsPerSecond),
	)
}
