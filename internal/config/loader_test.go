package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/cognitrend/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
				convey.So(cfg.Assessment.LookbackDays, convey.ShouldEqual, 30)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("COGNITREND_ADDR", ":8080")
			_ = os.Setenv("COGNITREND_STORE", "sqlite")
			_ = os.Setenv("COGNITREND_SQLITE__PATH", "/tmp/cog.db")
			_ = os.Setenv("COGNITREND_ASSESSMENT__LOOKBACK_DAYS", "14")
			_ = os.Setenv("COGNITREND_THRESHOLDS__DECLINING", "-0.08")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreSQLite)
				convey.So(cfg.SQLite.Path, convey.ShouldEqual, "/tmp/cog.db")
				convey.So(cfg.Assessment.LookbackDays, convey.ShouldEqual, 14)
				convey.So(cfg.Thresholds.Declining, convey.ShouldEqual, -0.08)
			})

			convey.Convey("And untouched nested fields should keep their defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Assessment.SampleLimit, convey.ShouldEqual, 50)
				convey.So(cfg.Thresholds.Improving, convey.ShouldEqual, 0.1)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
store: postgres
postgres:
  dsn: "postgres://care@localhost/care?sslmode=disable"
weights:
  vocabulary_richness: 0.2
  sentence_complexity: 0.2
  topic_coherence: 0.2
  emotional_stability: 0.2
  memory_recall_accuracy: 0.2
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("COGNITREND_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Store, convey.ShouldEqual, config.StorePostgres)
				convey.So(cfg.Postgres.DSN, convey.ShouldContainSubstring, "postgres://")
				convey.So(cfg.Postgres.MaxConns, convey.ShouldEqual, 10)
				convey.So(cfg.Weights.TopicCoherence, convey.ShouldEqual, 0.2)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
batch:
  worker_count: 24
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("COGNITREND_CONFIG", tmpFile)
			_ = os.Setenv("COGNITREND_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")         // Overridden by env
				convey.So(cfg.Batch.WorkerCount, convey.ShouldEqual, 24) // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("COGNITREND_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("COGNITREND_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("COGNITREND_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("COGNITREND_ASSESSMENT__HISTORY_LIMIT", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"COGNITREND_CONFIG",
		"COGNITREND_ADDR",
		"COGNITREND_STORE",
		"COGNITREND_SQLITE__PATH",
		"COGNITREND_ASSESSMENT__LOOKBACK_DAYS",
		"COGNITREND_ASSESSMENT__HISTORY_LIMIT",
		"COGNITREND_THRESHOLDS__DECLINING",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "cognitrend-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
