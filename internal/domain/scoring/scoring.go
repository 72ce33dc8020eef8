// Package scoring reduces per-sample linguistic features, mood labels and
// activity volume into five normalized sub-scores and one composite score.
//
// All functions are pure: the same inputs always give bit-identical outputs.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/cognitrend/internal/domain/linguistics"
	"github.com/okian/cognitrend/internal/domain/model"
)

// Default composite weights. They sum to 1.
const (
	DefaultVocabularyWeight = 0.20
	DefaultComplexityWeight = 0.20
	DefaultCoherenceWeight  = 0.25
	DefaultStabilityWeight  = 0.15
	DefaultRecallWeight     = 0.20
)

// Sub-metric scaling.
const (
	weightSumTolerance      = 1e-6
	uniqueWordsForFullBonus = 50
	maxUniqueWordBonus      = 0.3
	sentenceLengthScale     = 20
	complexSentencesScale   = 3
	complexityComponentCap  = 0.5
	activityForFullRecall   = 20
	recallActivityWeight    = 0.7
	recallFloor             = 0.3
	minMoodsForStability    = 2
	stabilityDeviationScale = 2
)

// Fallbacks used when a sub-metric has no input.
const (
	NeutralScore              = 0.5
	DefaultEmotionalStability = 0.7
)

// ResponseTimePlaceholder fills ResponseTimeAvg. There is no latency signal
// yet; the value is stored but never weighted into the composite.
const ResponseTimePlaceholder = 0.5

// ErrInvalidWeights is returned when weights are negative or do not sum to 1.
var ErrInvalidWeights = errors.New("invalid scoring weights")

// Weights configures the composite score.
type Weights struct {
	VocabularyRichness   float64
	SentenceComplexity   float64
	TopicCoherence       float64
	EmotionalStability   float64
	MemoryRecallAccuracy float64
}

// DefaultWeights returns the tuned default weights.
func DefaultWeights() Weights {
	return Weights{
		VocabularyRichness:   DefaultVocabularyWeight,
		SentenceComplexity:   DefaultComplexityWeight,
		TopicCoherence:       DefaultCoherenceWeight,
		EmotionalStability:   DefaultStabilityWeight,
		MemoryRecallAccuracy: DefaultRecallWeight,
	}
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.VocabularyRichness + w.SentenceComplexity + w.TopicCoherence + w.EmotionalStability + w.MemoryRecallAccuracy
}

// Validate checks that weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	for _, v := range []float64{w.VocabularyRichness, w.SentenceComplexity, w.TopicCoherence, w.EmotionalStability, w.MemoryRecallAccuracy} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: negative or NaN weight %v", ErrInvalidWeights, v)
		}
	}
	if math.Abs(w.Sum()-1) > weightSumTolerance {
		return fmt.Errorf("%w: sum is %.6f", ErrInvalidWeights, w.Sum())
	}
	return nil
}

// Composite weighs the five sub-scores into one overall score.
func (w Weights) Composite(s SubScores) float64 {
	return w.VocabularyRichness*s.VocabularyRichness +
		w.SentenceComplexity*s.SentenceComplexity +
		w.TopicCoherence*s.TopicCoherence +
		w.EmotionalStability*s.EmotionalStability +
		w.MemoryRecallAccuracy*s.MemoryRecallAccuracy
}

// SubScores holds the normalized [0,1] inputs to the composite.
type SubScores struct {
	VocabularyRichness   float64
	SentenceComplexity   float64
	TopicCoherence       float64
	EmotionalStability   float64
	MemoryRecallAccuracy float64
	// ResponseTimeAvg is always ResponseTimePlaceholder.
	ResponseTimeAvg float64
}

// Input is everything the scorer needs for one assessment.
type Input struct {
	Analyses []linguistics.Analysis
	Moods    []model.MoodLabel
	Activity model.ActivityCount
}

// Result is the scorer output.
type Result struct {
	SubScores
	Overall float64
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights replaces the default weights. Invalid weights are ignored.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		if w.Validate() == nil {
			s.weights = w
		}
	}
}

// Scorer computes sub-scores and the composite.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with default weights unless overridden.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the weights in use.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score computes every sub-score and the weighted composite.
func (s *Scorer) Score(in Input) Result {
	sub := SubScores{
		VocabularyRichness:   VocabularyRichness(in.Analyses),
		SentenceComplexity:   SentenceComplexity(in.Analyses),
		TopicCoherence:       TopicCoherence(in.Analyses),
		EmotionalStability:   EmotionalStability(in.Moods),
		MemoryRecallAccuracy: MemoryRecallAccuracy(in.Activity),
		ResponseTimeAvg:      ResponseTimePlaceholder,
	}
	return Result{SubScores: sub, Overall: s.weights.Composite(sub)}
}
