package linguistics

import "strings"

const (
	// DefaultCoherence is used when a sample has fewer than two sentences.
	DefaultCoherence = 0.5

	// minCommasForComplexity marks a sentence as complex by punctuation alone.
	minCommasForComplexity = 3

	// coherenceMinWordLen excludes short function words from overlap sets.
	coherenceMinWordLen = 3
)

// Analysis is the fixed feature vector of one text sample.
type Analysis struct {
	WordCount            int     `json:"word_count"`
	UniqueWordCount      int     `json:"unique_word_count"`
	AvgSentenceLength    float64 `json:"avg_sentence_length"`
	ComplexSentenceCount int     `json:"complex_sentence_count"`
	EmotionWordCount     int     `json:"emotion_word_count"`
	CoherenceScore       float64 `json:"coherence_score"`
	TypeTokenRatio       float64 `json:"type_token_ratio"`
}

// Analyze extracts the feature vector of a single text sample.
func Analyze(text string) Analysis {
	words := Words(text)
	sentences := Sentences(text)

	unique := make(map[string]struct{}, len(words))
	emotion := 0
	for _, w := range words {
		unique[w] = struct{}{}
		if IsEmotionWord(w) {
			emotion++
		}
	}

	return Analysis{
		WordCount:            len(words),
		UniqueWordCount:      len(unique),
		AvgSentenceLength:    float64(len(words)) / float64(max(len(sentences), 1)),
		ComplexSentenceCount: countComplex(sentences),
		EmotionWordCount:     emotion,
		CoherenceScore:       coherence(sentences),
		TypeTokenRatio:       float64(len(unique)) / float64(max(len(words), 1)),
	}
}

// AnalyzeAll analyzes every sample in order.
func AnalyzeAll(samples []string) []Analysis {
	out := make([]Analysis, len(samples))
	for i, s := range samples {
		out[i] = Analyze(s)
	}
	return out
}

func countComplex(sentences []string) int {
	n := 0
	for _, s := range sentences {
		if strings.Count(s, ",") >= minCommasForComplexity || hasConnective(s) {
			n++
		}
	}
	return n
}

func hasConnective(sentence string) bool {
	for _, w := range Words(sentence) {
		if IsConnective(w) {
			return true
		}
	}
	return false
}

// coherence is the mean lexical overlap of adjacent sentences.
func coherence(sentences []string) float64 {
	if len(sentences) < 2 {
		return DefaultCoherence
	}

	sum := 0.0
	prev := contentWords(sentences[0])
	for _, s := range sentences[1:] {
		curr := contentWords(s)
		shared := 0
		for w := range curr {
			if _, ok := prev[w]; ok {
				shared++
			}
		}
		sum += float64(shared) / float64(max(min(len(prev), len(curr)), 1))
		prev = curr
	}

	return min(sum/float64(len(sentences)-1), 1)
}

func contentWords(sentence string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range Words(sentence) {
		if len(w) > coherenceMinWordLen {
			set[w] = struct{}{}
		}
	}
	return set
}
