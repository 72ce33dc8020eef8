// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading layers defaults, an optional YAML file and environment variables.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"math"
	"runtime"
	"strings"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreBackend  = "backend"
)

// weightSumTolerance bounds float drift when checking that weights sum to 1.
const weightSumTolerance = 1e-6

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Store selects the persistence backend: memory, sqlite, postgres or backend.
	Store string `koanf:"store"`

	Postgres   PostgresConfig   `koanf:"postgres"`
	SQLite     SQLiteConfig     `koanf:"sqlite"`
	Backend    BackendConfig    `koanf:"backend"`
	Redis      RedisConfig      `koanf:"redis"`
	Assessment AssessmentConfig `koanf:"assessment"`
	Weights    WeightsConfig    `koanf:"weights"`
	Thresholds ThresholdsConfig `koanf:"thresholds"`
	Batch      BatchConfig      `koanf:"batch"`
}

// PostgresConfig configures the lib/pq backed store.
type PostgresConfig struct {
	DSN      string `koanf:"dsn"`
	MaxConns int    `koanf:"max_conns"`
	MaxIdle  int    `koanf:"max_idle"`
}

// SQLiteConfig configures the embedded store.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// BackendConfig configures the managed REST backend client.
type BackendConfig struct {
	URL       string `koanf:"url"`
	APIKey    string `koanf:"api_key"`
	TimeoutMS int    `koanf:"timeout_ms"`
	Retries   int    `koanf:"retries"`
}

// RedisConfig configures the alert stream. An empty Addr disables it.
type RedisConfig struct {
	Addr        string `koanf:"addr"`
	Password    string `koanf:"password"`
	DB          int    `koanf:"db"`
	AlertStream string `koanf:"alert_stream"`
}

// AssessmentConfig holds the lookback windows of the pipeline.
type AssessmentConfig struct {
	LookbackDays int `koanf:"lookback_days"`
	SampleLimit  int `koanf:"sample_limit"`
	HistoryLimit int `koanf:"history_limit"`
	MinSamples   int `koanf:"min_samples"`
}

// WeightsConfig holds the composite score weights. They must sum to 1.
type WeightsConfig struct {
	VocabularyRichness   float64 `koanf:"vocabulary_richness"`
	SentenceComplexity   float64 `koanf:"sentence_complexity"`
	TopicCoherence       float64 `koanf:"topic_coherence"`
	EmotionalStability   float64 `koanf:"emotional_stability"`
	MemoryRecallAccuracy float64 `koanf:"memory_recall_accuracy"`
}

// Sum returns the total of all weights.
func (w WeightsConfig) Sum() float64 {
	return w.VocabularyRichness + w.SentenceComplexity + w.TopicCoherence + w.EmotionalStability + w.MemoryRecallAccuracy
}

// ThresholdsConfig holds the trend classifier cut-offs.
type ThresholdsConfig struct {
	Improving       float64 `koanf:"improving"`
	RapidDecline    float64 `koanf:"rapid_decline"`
	RecentRapidDrop float64 `koanf:"recent_rapid_drop"`
	Declining       float64 `koanf:"declining"`
	MinHistory      int     `koanf:"min_history"`
}

// BatchConfig sizes the batch assessment queue and worker pool.
type BatchConfig struct {
	WorkerCount int `koanf:"worker_count"`
	QueueSize   int `koanf:"queue_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Addr:     ":9080",
		Store:    StoreMemory,
		Postgres: PostgresConfig{
			MaxConns: 10,
			MaxIdle:  2,
		},
		SQLite: SQLiteConfig{
			Path: "cognitrend.db",
		},
		Backend: BackendConfig{
			TimeoutMS: 5000,
			Retries:   2,
		},
		Redis: RedisConfig{
			AlertStream: "cognitrend:alerts",
		},
		Assessment: AssessmentConfig{
			LookbackDays: 30,
			SampleLimit:  50,
			HistoryLimit: 10,
			MinSamples:   3,
		},
		Weights: WeightsConfig{
			VocabularyRichness:   0.20,
			SentenceComplexity:   0.20,
			TopicCoherence:       0.25,
			EmotionalStability:   0.15,
			MemoryRecallAccuracy: 0.20,
		},
		Thresholds: ThresholdsConfig{
			Improving:       0.1,
			RapidDecline:    -0.2,
			RecentRapidDrop: -0.15,
			Declining:       -0.05,
			MinHistory:      3,
		},
		Batch: BatchConfig{
			WorkerCount: runtime.NumCPU(),
			QueueSize:   10_000,
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreMemory, StoreSQLite, StorePostgres, StoreBackend:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	if c.Store == StorePostgres && c.Postgres.DSN == "" {
		return fmt.Errorf("%w: postgres.dsn is required for the postgres store", ErrInvalidConfig)
	}
	if c.Store == StoreBackend && c.Backend.URL == "" {
		return fmt.Errorf("%w: backend.url is required for the backend store", ErrInvalidConfig)
	}
	if c.Assessment.LookbackDays <= 0 || c.Assessment.SampleLimit <= 0 || c.Assessment.HistoryLimit <= 0 || c.Assessment.MinSamples <= 0 {
		return fmt.Errorf("%w: assessment windows must be positive", ErrInvalidConfig)
	}
	if math.Abs(c.Weights.Sum()-1) > weightSumTolerance {
		return fmt.Errorf("%w: weights must sum to 1, got %.4f", ErrInvalidConfig, c.Weights.Sum())
	}
	return nil
}
