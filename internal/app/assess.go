package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cognitrend/internal/adapters/repository"
	"github.com/okian/cognitrend/internal/domain/linguistics"
	"github.com/okian/cognitrend/internal/domain/model"
	"github.com/okian/cognitrend/internal/domain/scoring"
	"github.com/okian/cognitrend/pkg/logger"
	"github.com/okian/cognitrend/pkg/metrics"
)

// Source names used in logs and metrics.
const (
	sourceMemories  = "memories"
	sourceQuestions = "questions"
	sourceMoods     = "moods"
	sourceActivity  = "activity"
	sourceHistory   = "score_history"
)

// inputs is everything fetched for one assessment.
type inputs struct {
	memories  []model.Memory
	questions []model.QuestionAnswer
	moods     []model.MoodEntry
	activity  model.ActivityCount
	history   []model.CognitiveScoreRecord
}

// Assess runs the pipeline for elderID on today's date.
func (s *Service) Assess(ctx context.Context, elderID string) (*Assessment, error) {
	return s.AssessOn(ctx, elderID, s.now())
}

// AssessOn runs the pipeline for elderID on the calendar date of date.
// It returns ErrInsufficientData when fewer than the minimum text samples
// exist in the lookback window. Persistence and alert failures are reported
// through the Assessment flags, not as errors.
func (s *Service) AssessOn(ctx context.Context, elderID string, date time.Time) (*Assessment, error) {
	if elderID == "" {
		return nil, ErrInvalidElderID
	}
	start := time.Now()
	defer func() {
		metrics.RecordAssessmentLatency(float64(time.Since(start).Milliseconds()))
	}()

	date = model.DateOf(date)
	log := s.logger.Named("assess")

	in := s.gather(ctx, log, elderID, date)

	samples := model.TextSamples(in.memories, in.questions)
	metrics.RecordTextSamples(len(samples))
	if len(samples) < s.minSamples {
		metrics.RecordAssessment(metrics.OutcomeInsufficientData)
		log.Debug(ctx, "not enough text samples",
			logger.String("elderID", elderID),
			logger.Int("samples", len(samples)),
		)
		return nil, fmt.Errorf("%w: %d of %d text samples for %q", ErrInsufficientData, len(samples), s.minSamples, elderID)
	}

	analyses := linguistics.AnalyzeAll(samples)
	moods := make([]model.MoodLabel, len(in.moods))
	for i, m := range in.moods {
		moods[i] = m.Mood
	}
	res := s.scorer.Score(scoring.Input{Analyses: analyses, Moods: moods, Activity: in.activity})

	history := make([]float64, len(in.history))
	for i, h := range in.history {
		history[i] = h.OverallScore
	}
	direction := s.classifier.Classify(res.Overall, history)

	rec := newRecord(elderID, date, res, direction, rawMetrics(analyses, in))
	out := &Assessment{Record: rec}

	metrics.RecordOverallScore(res.Overall)
	metrics.RecordTrendDirection(string(direction))

	if err := s.store.UpsertScore(ctx, &out.Record); err != nil {
		metrics.RecordPersistFailure()
		metrics.RecordAssessment(metrics.OutcomePersistFailed)
		log.Error(ctx, "failed to persist score",
			logger.String("elderID", elderID),
			logger.String("date", date.Format(model.DateLayout)),
			logger.Error(err),
		)
		return out, nil
	}
	out.Persisted = true
	metrics.RecordAssessment(metrics.OutcomeAssessed)

	if direction == model.TrendRapidDecline {
		out.AlertEmitted = s.emitDeclineAlert(ctx, log, out.Record)
	}

	log.Info(ctx, "assessment complete",
		logger.String("elderID", elderID),
		logger.String("date", date.Format(model.DateLayout)),
		logger.Float64("overall", res.Overall),
		logger.String("trend", string(direction)),
		logger.Int("samples", len(samples)),
	)
	return out, nil
}

// gather fetches every input concurrently. A failing source degrades to its
// zero value.
func (s *Service) gather(ctx context.Context, log logger.Logger, elderID string, date time.Time) inputs {
	to := date.AddDate(0, 0, 1)
	w := repository.Window{From: to.AddDate(0, 0, -s.lookbackDays), To: to}

	var (
		in inputs
		wg sync.WaitGroup
	)
	degrade := func(source string, err error) {
		metrics.RecordSourceFetchError(source)
		log.Warn(ctx, "source fetch failed, continuing without it",
			logger.String("elderID", elderID),
			logger.String("source", source),
			logger.Error(err),
		)
	}

	wg.Add(5)
	go func() {
		defer wg.Done()
		var err error
		if in.memories, err = s.store.RecentMemories(ctx, elderID, w, s.sampleLimit); err != nil {
			in.memories = nil
			degrade(sourceMemories, err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if in.questions, err = s.store.RecentQuestions(ctx, elderID, w, s.sampleLimit); err != nil {
			in.questions = nil
			degrade(sourceQuestions, err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if in.moods, err = s.store.RecentMoods(ctx, elderID, w); err != nil {
			in.moods = nil
			degrade(sourceMoods, err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if in.activity, err = s.store.CountActivity(ctx, elderID, w); err != nil {
			in.activity = model.ActivityCount{}
			degrade(sourceActivity, err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if in.history, err = s.store.ScoreHistory(ctx, elderID, date, s.historyLimit); err != nil {
			in.history = nil
			degrade(sourceHistory, err)
		}
	}()
	wg.Wait()

	return in
}

func (s *Service) emitDeclineAlert(ctx context.Context, log logger.Logger, rec model.CognitiveScoreRecord) bool {
	a := newDeclineAlert(rec, s.now())
	if err := s.alerts.EmitAlert(ctx, a); err != nil {
		metrics.RecordAlertFailed()
		log.Error(ctx, "failed to emit decline alert; score record kept",
			logger.String("elderID", rec.ElderID),
			logger.Error(err),
		)
		return false
	}
	metrics.RecordAlertEmitted()
	log.Warn(ctx, "rapid cognitive decline alert emitted",
		logger.String("elderID", rec.ElderID),
		logger.Float64("overall", rec.OverallScore),
	)
	return true
}

func newRecord(elderID string, date time.Time, res scoring.Result, direction model.TrendDirection, raw model.RawMetrics) model.CognitiveScoreRecord {
	return model.CognitiveScoreRecord{
		ElderID:              elderID,
		AssessmentDate:       date,
		VocabularyRichness:   res.VocabularyRichness,
		SentenceComplexity:   res.SentenceComplexity,
		TopicCoherence:       res.TopicCoherence,
		ResponseTimeAvg:      res.ResponseTimeAvg,
		EmotionalStability:   res.EmotionalStability,
		MemoryRecallAccuracy: res.MemoryRecallAccuracy,
		OverallScore:         res.Overall,
		TrendDirection:       direction,
		AlertTriggered:       direction == model.TrendRapidDecline,
		RawMetrics:           raw,
	}
}

func rawMetrics(analyses []linguistics.Analysis, in inputs) model.RawMetrics {
	raw := model.RawMetrics{
		TextSamples:   len(analyses),
		MoodEntries:   len(in.moods),
		MemoryCount:   in.activity.Memories,
		QuestionCount: in.activity.Questions,
		HistoryLength: len(in.history),
	}
	ttr := 0.0
	for _, a := range analyses {
		raw.TotalWords += a.WordCount
		raw.EmotionWords += a.EmotionWordCount
		raw.ComplexSentences += a.ComplexSentenceCount
		ttr += a.TypeTokenRatio
	}
	if n := len(analyses); n > 0 {
		raw.AvgWordsPerSample = float64(raw.TotalWords) / float64(n)
		raw.AvgTypeTokenRatio = ttr / float64(n)
	}
	return raw
}

// DeclineMessage formats the alert text with the score as a whole percentage.
func DeclineMessage(overall float64) string {
	return fmt.Sprintf("Rapid cognitive decline detected. Overall score: %d%%", int(math.Round(overall*100)))
}

func newDeclineAlert(rec model.CognitiveScoreRecord, now time.Time) model.Alert {
	return model.Alert{
		ID:       uuid.NewString(),
		ElderID:  rec.ElderID,
		Type:     model.AlertTypeCognitiveDecline,
		Severity: model.SeverityHigh,
		Message:  DeclineMessage(rec.OverallScore),
		Metadata: map[string]any{
			"score_id":        rec.ID,
			"assessment_date": rec.AssessmentDate.Format(model.DateLayout),
			"overall_score":   rec.OverallScore,
			"trend_direction": string(rec.TrendDirection),
		},
		CreatedAt: now.UTC(),
	}
}
