// Package cli implements the cognitrend commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/okian/cognitrend/internal/adapters/alert"
	"github.com/okian/cognitrend/internal/adapters/backend"
	"github.com/okian/cognitrend/internal/adapters/repository"
	service "github.com/okian/cognitrend/internal/app"
	"github.com/okian/cognitrend/internal/config"
	"github.com/okian/cognitrend/internal/domain/scoring"
	"github.com/okian/cognitrend/internal/domain/trend"
	"github.com/okian/cognitrend/pkg/logger"
)

var (
	configPath string
	logLevel   string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:          "cognitrend",
	Short:        "Cognitive and emotional trend assessments",
	Long:         "Scores elders' recent conversations and moods, tracks the trend and raises an alert on rapid decline.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: $COGNITREND_CONFIG)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

// setup loads configuration and initializes logging. One-shot commands pass
// quiet so that info logs do not interleave with their JSON output.
func setup(ctx context.Context, quiet bool) (*config.Config, logger.Logger, error) {
	if configPath != "" {
		if err := os.Setenv(config.EnvConfigFile, configPath); err != nil {
			return nil, nil, fmt.Errorf("set config path: %w", err)
		}
	}
	if err := logger.Init(); err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case logLevel != "":
		cfg.LogLevel = logLevel
	case quiet:
		cfg.LogLevel = "warn"
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, log, nil
}

// openStore builds the configured persistence backend.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return repository.NewSQLiteStore(cfg.SQLite.Path)
	case config.StorePostgres:
		return repository.OpenPostgres(ctx, cfg.Postgres.DSN,
			repository.WithMaxConns(cfg.Postgres.MaxConns),
			repository.WithMaxIdle(cfg.Postgres.MaxIdle),
		)
	case config.StoreBackend:
		return backend.New(cfg.Backend.URL,
			backend.WithAPIKey(cfg.Backend.APIKey),
			backend.WithTimeout(time.Duration(cfg.Backend.TimeoutMS)*time.Millisecond),
			backend.WithRetries(cfg.Backend.Retries),
		), nil
	case config.StoreMemory, "":
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfig, cfg.Store)
	}
}

// alertSink returns the store itself, fanned out to a Redis stream when one
// is configured. The returned close func releases the Redis client.
func alertSink(ctx context.Context, cfg *config.Config, store repository.Store, log logger.Logger) (repository.AlertSink, func() error, error) {
	if cfg.Redis.Addr == "" {
		return store, func() error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	stream := alert.NewStreamSink(client, alert.WithStream(cfg.Redis.AlertStream))
	if err := stream.Ping(ctx); err != nil {
		_ = stream.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
	}
	log.Info(ctx, "alert stream enabled", logger.String("addr", cfg.Redis.Addr), logger.String("stream", cfg.Redis.AlertStream))
	return alert.Fanout{store, stream}, stream.Close, nil
}

// newService maps the config onto service options.
func newService(cfg *config.Config, store repository.Store, sink repository.AlertSink, log logger.Logger) *service.Service {
	return service.New(
		service.WithLogger(log),
		service.WithStore(store),
		service.WithAlertSink(sink),
		service.WithLookbackDays(cfg.Assessment.LookbackDays),
		service.WithSampleLimit(cfg.Assessment.SampleLimit),
		service.WithHistoryLimit(cfg.Assessment.HistoryLimit),
		service.WithMinSamples(cfg.Assessment.MinSamples),
		service.WithWeights(scoring.Weights{
			VocabularyRichness:   cfg.Weights.VocabularyRichness,
			SentenceComplexity:   cfg.Weights.SentenceComplexity,
			TopicCoherence:       cfg.Weights.TopicCoherence,
			EmotionalStability:   cfg.Weights.EmotionalStability,
			MemoryRecallAccuracy: cfg.Weights.MemoryRecallAccuracy,
		}),
		service.WithThresholds(trend.Thresholds{
			Improving:       cfg.Thresholds.Improving,
			RapidDecline:    cfg.Thresholds.RapidDecline,
			RecentRapidDrop: cfg.Thresholds.RecentRapidDrop,
			Declining:       cfg.Thresholds.Declining,
			MinHistory:      cfg.Thresholds.MinHistory,
		}),
		service.WithWorkerCount(cfg.Batch.WorkerCount),
		service.WithQueueSize(cfg.Batch.QueueSize),
	)
}

// runtimeDeps bundles everything a command needs. close releases it all.
type runtimeDeps struct {
	cfg   *config.Config
	log   logger.Logger
	store repository.Store
	svc   *service.Service
	close func()
}

func bootstrap(ctx context.Context, quiet bool) (*runtimeDeps, error) {
	cfg, log, err := setup(ctx, quiet)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	sink, closeSink, err := alertSink(ctx, cfg, store, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	var once sync.Once
	return &runtimeDeps{
		cfg:   cfg,
		log:   log,
		store: store,
		svc:   newService(cfg, store, sink, log),
		close: func() {
			once.Do(func() {
				if err := closeSink(); err != nil {
					log.Warn(ctx, "close alert stream", logger.Error(err))
				}
				if err := store.Close(); err != nil {
					log.Warn(ctx, "close store", logger.Error(err))
				}
				_ = logger.Sync()
			})
		},
	}, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
