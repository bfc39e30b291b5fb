package testtraffic

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/pulse/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "beacon_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the beacon tool.
func ShowHelp() {
	os.Stdout.WriteString(`Pulse Beacon Tool
=================

A concurrent tool for sending synthetic analytics beacons to a running
pulse collection service.

Usage:
  go run cmd/send-beacons/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -site string
        Public site key to send beacons for (default "site-demo")
  -origin string
        Origin header to present (default "https://example.com")
  -events int
        Number of beacons to generate and submit (default 1000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for run output (default: beacon_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Send beacons to a local service
  go run cmd/send-beacons/main.go -site site-demo

  # Simulate a foreign origin to exercise the domain guard
  go run cmd/send-beacons/main.go -site site-demo -origin https://evil.test
`)
}
