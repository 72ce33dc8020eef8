package model

import "time"

// TrendDirection labels the trajectory of the composite score.
type TrendDirection string

// Trend labels.
const (
	TrendImproving    TrendDirection = "improving"
	TrendStable       TrendDirection = "stable"
	TrendDeclining    TrendDirection = "declining"
	TrendRapidDecline TrendDirection = "rapid_decline"
)

// Valid reports whether d is one of the known labels.
func (d TrendDirection) Valid() bool {
	switch d {
	case TrendImproving, TrendStable, TrendDeclining, TrendRapidDecline:
		return true
	}
	return false
}

// RawMetrics is the diagnostic payload stored next to each score.
type RawMetrics struct {
	TextSamples          int     `json:"text_samples"`
	MoodEntries          int     `json:"mood_entries"`
	MemoryCount          int     `json:"memory_count"`
	QuestionCount        int     `json:"question_count"`
	TotalWords           int     `json:"total_words"`
	AvgWordsPerSample    float64 `json:"avg_words_per_sample"`
	AvgTypeTokenRatio    float64 `json:"avg_type_token_ratio"`
	EmotionWords         int     `json:"emotion_words"`
	ComplexSentences     int     `json:"complex_sentences"`
	HistoryLength        int     `json:"history_length"`
	ResponseTimeMeasured bool    `json:"response_time_measured"`
}

// CognitiveScoreRecord is the persisted daily assessment, unique per
// (ElderID, AssessmentDate).
type CognitiveScoreRecord struct {
	ID                   string         `json:"id,omitempty"`
	ElderID              string         `json:"elder_id"`
	AssessmentDate       time.Time      `json:"assessment_date"`
	VocabularyRichness   float64        `json:"vocabulary_richness"`
	SentenceComplexity   float64        `json:"sentence_complexity"`
	TopicCoherence       float64        `json:"topic_coherence"`
	ResponseTimeAvg      float64        `json:"response_time_avg"`
	EmotionalStability   float64        `json:"emotional_stability"`
	MemoryRecallAccuracy float64        `json:"memory_recall_accuracy"`
	OverallScore         float64        `json:"overall_score"`
	TrendDirection       TrendDirection `json:"trend_direction"`
	AlertTriggered       bool           `json:"alert_triggered"`
	RawMetrics           RawMetrics     `json:"raw_metrics"`
	UpdatedAt            time.Time      `json:"updated_at,omitempty"`
}

// AlertTypeCognitiveDecline is the only alert type emitted by the pipeline.
const AlertTypeCognitiveDecline = "cognitive_decline"

// Alert severities.
const (
	SeverityHigh = "high"
)

// Alert is handed to an external alert store. The pipeline does not own it
// after emission.
type Alert struct {
	ID        string         `json:"id"`
	ElderID   string         `json:"elder_id"`
	Type      string         `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AssessmentJob is one unit of batch work.
type AssessmentJob struct {
	ElderID string
	Date    time.Time
}

// Key identifies the job for deduplication.
func (j AssessmentJob) Key() string {
	return j.ElderID + "|" + j.Date.Format(DateLayout)
}
