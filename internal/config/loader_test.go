package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/okian/pulse/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			// Clear any existing environment variables
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DBDSN, convey.ShouldEqual, "file:pulse.db")
				convey.So(cfg.SiteCacheTTLMS, convey.ShouldEqual, 30_000)
				convey.So(cfg.TempEventRetention, convey.ShouldEqual, 50)
				convey.So(cfg.MaxBodyBytes, convey.ShouldEqual, 65_536)
				convey.So(cfg.MaxRecentLimit, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			// Set environment variables
			_ = os.Setenv("PULSE_ADDR", ":8080")
			_ = os.Setenv("PULSE_DB_DSN", "file:collect.db")
			_ = os.Setenv("PULSE_SITE_CACHE_TTL_MS", "5000")
			_ = os.Setenv("PULSE_TEMP_EVENT_RETENTION", "25")
			_ = os.Setenv("PULSE_SWEEP_INTERVAL_MS", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DBDSN, convey.ShouldEqual, "file:collect.db")
				convey.So(cfg.SiteCacheTTLMS, convey.ShouldEqual, 5000)
				convey.So(cfg.TempEventRetention, convey.ShouldEqual, 25)
				convey.So(cfg.SweepIntervalMS, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
db_dsn: "file:staging.db"
temp_event_retention: 10
max_recent_limit: 50
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			// Set the config file path
			_ = os.Setenv("PULSE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DBDSN, convey.ShouldEqual, "file:staging.db")
				convey.So(cfg.TempEventRetention, convey.ShouldEqual, 10)
				convey.So(cfg.MaxRecentLimit, convey.ShouldEqual, 50)
				// Missing fields keep defaults
				convey.So(cfg.SiteCacheTTLMS, convey.ShouldEqual, 30_000)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
temp_event_retention: 10
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PULSE_CONFIG", tmpFile)
			_ = os.Setenv("PULSE_ADDR", ":8080") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")          // Overridden by env
				convey.So(cfg.TempEventRetention, convey.ShouldEqual, 10) // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			invalidYaml := `invalid: yaml: content: [`
			tmpFile := createTempConfigFile(invalidYaml)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PULSE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("PULSE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("PULSE_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-positive retention", func() {
			_ = os.Setenv("PULSE_TEMP_EVENT_RETENTION", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "temp_event_retention")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	vars := []string{
		"PULSE_CONFIG",
		"PULSE_ADDR",
		"PULSE_LOG_LEVEL",
		"PULSE_DB_DSN",
		"PULSE_SITE_CACHE_TTL_MS",
		"PULSE_TEMP_EVENT_RETENTION",
		"PULSE_SWEEP_INTERVAL_MS",
		"PULSE_MAX_BODY_BYTES",
		"PULSE_MAX_RECENT_LIMIT",
	}
	for _, v := range vars {
		_ = os.Unsetenv(v)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "pulse-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
