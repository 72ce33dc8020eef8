package scoring

import (
	"math"

	"github.com/okian/cognitrend/internal/domain/linguistics"
	"github.com/okian/cognitrend/internal/domain/model"
)

// VocabularyRichness rewards lexical diversity plus a capped bonus for the
// absolute number of distinct words.
func VocabularyRichness(as []linguistics.Analysis) float64 {
	if len(as) == 0 {
		return NeutralScore
	}
	ttr := mean(as, func(a linguistics.Analysis) float64 { return a.TypeTokenRatio })
	unique := mean(as, func(a linguistics.Analysis) float64 { return float64(a.UniqueWordCount) })
	return clamp01(ttr + math.Min(unique/uniqueWordsForFullBonus, maxUniqueWordBonus))
}

// SentenceComplexity combines sentence length and complex sentence frequency,
// each capped at half of the range.
func SentenceComplexity(as []linguistics.Analysis) float64 {
	if len(as) == 0 {
		return NeutralScore
	}
	length := mean(as, func(a linguistics.Analysis) float64 { return a.AvgSentenceLength })
	complexity := mean(as, func(a linguistics.Analysis) float64 { return float64(a.ComplexSentenceCount) })
	return math.Min(length/sentenceLengthScale, complexityComponentCap) +
		math.Min(complexity/complexSentencesScale, complexityComponentCap)
}

// TopicCoherence is the mean per-sample coherence.
func TopicCoherence(as []linguistics.Analysis) float64 {
	if len(as) == 0 {
		return NeutralScore
	}
	return clamp01(mean(as, func(a linguistics.Analysis) float64 { return a.CoherenceScore }))
}

// EmotionalStability is high when mood scores barely vary. Unknown labels are
// ignored; fewer than two usable entries are assumed stable.
func EmotionalStability(moods []model.MoodLabel) float64 {
	scores := make([]float64, 0, len(moods))
	for _, m := range moods {
		if v := m.Score(); v > 0 {
			scores = append(scores, float64(v))
		}
	}
	if len(scores) < minMoodsForStability {
		return DefaultEmotionalStability
	}

	avg := 0.0
	for _, v := range scores {
		avg += v
	}
	avg /= float64(len(scores))

	variance := 0.0
	for _, v := range scores {
		variance += (v - avg) * (v - avg)
	}
	variance /= float64(len(scores))

	return clamp01(1 - math.Sqrt(variance)/stabilityDeviationScale)
}

// MemoryRecallAccuracy is an engagement proxy with a floor of 0.3.
func MemoryRecallAccuracy(activity model.ActivityCount) float64 {
	volume := math.Min(float64(activity.Total())/activityForFullRecall, 1)
	return volume*recallActivityWeight + recallFloor
}

func mean(as []linguistics.Analysis, f func(linguistics.Analysis) float64) float64 {
	sum := 0.0
	for _, a := range as {
		sum += f(a)
	}
	return sum / float64(len(as))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
