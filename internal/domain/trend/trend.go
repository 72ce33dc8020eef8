// Package trend classifies a fresh composite score against recent history.
package trend

import "github.com/okian/cognitrend/internal/domain/model"

// Default thresholds.
const (
	DefaultImproving       = 0.1
	DefaultRapidDecline    = -0.2
	DefaultRecentRapidDrop = -0.15
	DefaultDeclining       = -0.05
	DefaultMinHistory      = 3
)

// Window sizes over the date-descending history.
const (
	recentWindow = 3
	olderWindow  = 4
)

// Thresholds are the decision boundaries of the classifier.
type Thresholds struct {
	Improving       float64
	RapidDecline    float64
	RecentRapidDrop float64
	Declining       float64
	MinHistory      int
}

// DefaultThresholds returns the tuned defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Improving:       DefaultImproving,
		RapidDecline:    DefaultRapidDecline,
		RecentRapidDrop: DefaultRecentRapidDrop,
		Declining:       DefaultDeclining,
		MinHistory:      DefaultMinHistory,
	}
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithThresholds overrides the default thresholds.
func WithThresholds(t Thresholds) Option {
	return func(c *Classifier) {
		c.th = t
		if c.th.MinHistory < recentWindow {
			c.th.MinHistory = recentWindow
		}
	}
}

// Classifier maps a score and its history to a direction.
type Classifier struct {
	th Thresholds
}

// NewClassifier creates a classifier with default thresholds unless overridden.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{th: DefaultThresholds()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Thresholds returns the thresholds in use.
func (c *Classifier) Thresholds() Thresholds {
	return c.th
}

// Classify compares current with history, which must be ordered most recent
// first. Short histories are stable. When only the recent window exists the
// older average is zero.
func (c *Classifier) Classify(current float64, history []float64) model.TrendDirection {
	if len(history) < c.th.MinHistory {
		return model.TrendStable
	}

	recentAvg := average(window(history, 0, recentWindow))
	olderAvg := average(window(history, recentWindow, recentWindow+olderWindow))

	diff := current - olderAvg
	recentDiff := current - recentAvg

	switch {
	case diff > c.th.Improving && recentDiff > 0:
		return model.TrendImproving
	case diff < c.th.RapidDecline || recentDiff < c.th.RecentRapidDrop:
		return model.TrendRapidDecline
	case diff < c.th.Declining:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

// Classify uses the default thresholds.
func Classify(current float64, history []float64) model.TrendDirection {
	return defaultClassifier.Classify(current, history)
}

var defaultClassifier = NewClassifier()

func window(xs []float64, from, to int) []float64 {
	if from >= len(xs) {
		return nil
	}
	return xs[from:min(to, len(xs))]
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
