package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/pulse/internal/testtraffic"
)

// Default configuration constants.
const (
	defaultNumEvents  = 1000
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		siteKey   = flag.String("site", "site-demo", "Public site key to send beacons for")
		origin    = flag.String("origin", "https://example.com", "Origin header to present")
		numEvents = flag.Int("events", defaultNumEvents, "Number of beacons to generate and submit")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile   = flag.String("log", "", "Log file for run output (default: beacon_log_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testtraffic.ShowHelp()
		return
	}

	// Setup logging
	if err := testtraffic.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &testtraffic.Config{
		BaseURL:   *baseURL,
		SiteKey:   *siteKey,
		Origin:    *origin,
		NumEvents: *numEvents,
		Workers:   *workers,
		Timeout:   *timeout,
		LogFile:   *logFile,
		Verbose:   *verbose,
	}

	if err := testtraffic.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Beacon run failed: " + err.Error() + "\n")
		return
	}
}
