// Package service wires the assessment pipeline to its stores, alert sinks and
// the batch worker pool, and implements the dependencies of the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	jobqueue "github.com/okian/cognitrend/internal/adapters/mq/queue"
	workerpool "github.com/okian/cognitrend/internal/adapters/mq/worker"
	"github.com/okian/cognitrend/internal/adapters/repository"
	"github.com/okian/cognitrend/internal/domain/dedupe"
	"github.com/okian/cognitrend/internal/domain/model"
	"github.com/okian/cognitrend/internal/domain/scoring"
	"github.com/okian/cognitrend/internal/domain/trend"
	"github.com/okian/cognitrend/pkg/logger"
	"github.com/okian/cognitrend/pkg/metrics"
)

// Default pipeline windows.
const (
	DefaultLookbackDays = 30
	DefaultSampleLimit  = 50
	DefaultHistoryLimit = 10
	DefaultMinSamples   = 3
)

const (
	defaultQueueSize    = 10_000
	defaultDedupeSize   = 50_000
	stopTimeout         = 30 * time.Second
	defaultHistoryRange = 30
)

// Sentinel errors.
var (
	// ErrInsufficientData means too few text samples were found. It is a
	// normal outcome, not a failure.
	ErrInsufficientData = errors.New("insufficient data for assessment")
	ErrInvalidElderID   = errors.New("elder id is required")
	ErrNotStarted       = errors.New("batch processing not started")
	ErrBackpressure     = errors.New("assessment backpressure")
)

// Assessment is the outcome of one pipeline run.
type Assessment struct {
	Record model.CognitiveScoreRecord `json:"record"`
	// Persisted is false when the upsert failed. The record is still returned.
	Persisted bool `json:"persisted"`
	// AlertEmitted is true only when a rapid decline alert was accepted.
	AlertEmitted bool `json:"alert_emitted"`
}

// BatchResult summarizes one batch submission.
type BatchResult struct {
	Queued     int `json:"queued"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
}

// Service runs assessments.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	alerts     repository.AlertSink
	scorer     *scoring.Scorer
	classifier *trend.Classifier
	now        func() time.Time

	lookbackDays int
	sampleLimit  int
	historyLimit int
	minSamples   int

	// Batch processing
	tracker     dedupe.Tracker
	queue       jobqueue.Queue
	pool        *workerpool.Pool
	workerCount int
	queueSize   int
	dedupeSize  int
	started     bool
	cancel      context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the data store. Defaults to an empty in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithAlertSink overrides where alerts go. Defaults to the store.
func WithAlertSink(sink repository.AlertSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.alerts = sink
		}
	}
}

// WithWeights sets the composite weights. Invalid weights are ignored.
func WithWeights(w scoring.Weights) Option {
	return func(s *Service) {
		s.scorer = scoring.NewScorer(scoring.WithWeights(w))
	}
}

// WithThresholds sets the trend thresholds.
func WithThresholds(th trend.Thresholds) Option {
	return func(s *Service) {
		s.classifier = trend.NewClassifier(trend.WithThresholds(th))
	}
}

// WithClock sets the time source used for "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLookbackDays sets the activity window in days.
func WithLookbackDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.lookbackDays = days
		}
	}
}

// WithSampleLimit caps memories and questions fetched per assessment.
func WithSampleLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sampleLimit = n
		}
	}
}

// WithHistoryLimit caps prior score records used for the trend.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithMinSamples sets the minimum number of text samples.
func WithMinSamples(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minSamples = n
		}
	}
}

// WithWorkerCount sets the number of batch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued batch jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the number of tracked pending jobs.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		scorer:       scoring.NewScorer(),
		classifier:   trend.NewClassifier(),
		now:          time.Now,
		lookbackDays: DefaultLookbackDays,
		sampleLimit:  DefaultSampleLimit,
		historyLimit: DefaultHistoryLimit,
		minSamples:   DefaultMinSamples,
		workerCount:  runtime.NumCPU(),
		queueSize:    defaultQueueSize,
		dedupeSize:   defaultDedupeSize,
		logger:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.alerts == nil {
		s.alerts = s.store
	}
	return s
}

// Store returns the underlying store.
func (s *Service) Store() repository.Store {
	return s.store
}

// Start launches the batch worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting assessment service...")

	s.tracker = dedupe.NewMemoryTracker(dedupe.WithMaxPending(s.dedupeSize))
	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	tracker := s.tracker
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s,
		workerpool.WithLogger(s.logger),
		workerpool.WithOnDone(func(j model.AssessmentJob) {
			tracker.Release(runCtx, j.Key())
		}),
	)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "assessment service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains queued jobs and stops the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping assessment service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "assessment service stopped")
}

// AssessJob runs one queued job. Insufficient data is not an error here.
func (s *Service) AssessJob(ctx context.Context, job model.AssessmentJob) error {
	_, err := s.AssessOn(ctx, job.ElderID, job.Date)
	if errors.Is(err, ErrInsufficientData) {
		s.logger.Debug(ctx, "skipping elder without enough data", logger.String("elderID", job.ElderID))
		return nil
	}
	return err
}

// Enqueue schedules an assessment. It returns false without error when the
// same elder and date is already pending.
func (s *Service) Enqueue(ctx context.Context, elderID string, date time.Time) (bool, error) {
	if elderID == "" {
		return false, ErrInvalidElderID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return false, ErrNotStarted
	}

	job := model.AssessmentJob{ElderID: elderID, Date: model.DateOf(date)}
	if !s.tracker.Claim(ctx, job.Key()) {
		metrics.RecordJobDuplicate()
		s.logger.Debug(ctx, "assessment already pending", logger.String("key", job.Key()))
		return false, nil
	}
	if !s.queue.Enqueue(ctx, job) {
		s.tracker.Release(ctx, job.Key())
		return false, fmt.Errorf("%w: %w", ErrBackpressure, jobqueue.ErrQueueFull)
	}
	return true, nil
}

// EnqueueBatch schedules assessments for every elder on date. It stops at the
// first rejection and reports ErrBackpressure.
func (s *Service) EnqueueBatch(ctx context.Context, elderIDs []string, date time.Time) (BatchResult, error) {
	var res BatchResult
	for i, id := range elderIDs {
		queued, err := s.Enqueue(ctx, id, date)
		switch {
		case errors.Is(err, ErrBackpressure):
			res.Rejected = len(elderIDs) - i
			return res, err
		case err != nil:
			return res, fmt.Errorf("enqueue %q: %w", id, err)
		case queued:
			res.Queued++
		default:
			res.Duplicates++
		}
	}
	return res, nil
}

// AssessAll schedules an assessment for every known elder.
func (s *Service) AssessAll(ctx context.Context, date time.Time) (BatchResult, error) {
	ids, err := s.store.ListElders(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list elders: %w", err)
	}
	s.logger.Info(ctx, "scheduling assessments", logger.Int("elders", len(ids)),
		logger.String("date", model.DateOf(date).Format(model.DateLayout)))
	return s.EnqueueBatch(ctx, ids, date)
}

// History returns stored records up to and including today, newest first.
func (s *Service) History(ctx context.Context, elderID string, limit int) ([]model.CognitiveScoreRecord, error) {
	if elderID == "" {
		return nil, ErrInvalidElderID
	}
	if limit <= 0 {
		limit = defaultHistoryRange
	}
	tomorrow := model.DateOf(s.now()).AddDate(0, 0, 1)
	recs, err := s.store.ScoreHistory(ctx, elderID, tomorrow, limit)
	if err != nil {
		return nil, fmt.Errorf("score history for %q: %w", elderID, err)
	}
	return recs, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w := s.scorer.Weights()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"lookbackDays": s.lookbackDays,
		"minSamples":   s.minSamples,
		"weights": map[string]float64{
			"vocabulary_richness":    w.VocabularyRichness,
			"sentence_complexity":    w.SentenceComplexity,
			"topic_coherence":        w.TopicCoherence,
			"emotional_stability":    w.EmotionalStability,
			"memory_recall_accuracy": w.MemoryRecallAccuracy,
		},
	}

	if s.started {
		queueLen := s.queue.Len(context.Background())
		stats["queueLength"] = queueLen
		stats["pendingJobs"] = s.tracker.Pending()
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
