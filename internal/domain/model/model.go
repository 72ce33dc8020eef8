// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used for assessment dates.
const DateLayout = "2006-01-02"

// MoodLabel is one of the self-reported mood values.
type MoodLabel string

// Known mood labels, best to worst.
const (
	MoodGreat MoodLabel = "great"
	MoodGood  MoodLabel = "good"
	MoodOkay  MoodLabel = "okay"
	MoodLow   MoodLabel = "low"
	MoodSad   MoodLabel = "sad"
)

var moodScores = map[MoodLabel]int{
	MoodGreat: 5,
	MoodGood:  4,
	MoodOkay:  3,
	MoodLow:   2,
	MoodSad:   1,
}

// ParseMood normalizes a raw label. ok is false for unknown labels.
func ParseMood(raw string) (MoodLabel, bool) {
	m := MoodLabel(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := moodScores[m]
	return m, ok
}

// Score maps the label onto 1..5. Unknown labels map to 0.
func (m MoodLabel) Score() int {
	return moodScores[m]
}

// Memory is a free-form memory written by an elder.
type Memory struct {
	ElderID       string    `json:"elder_id"`
	Text          string    `json:"text"`
	EmotionalTone string    `json:"emotional_tone,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// QuestionAnswer is a prompt and the elder's answer.
type QuestionAnswer struct {
	ElderID      string    `json:"elder_id"`
	QuestionText string    `json:"question_text"`
	AnswerText   string    `json:"answer_text"`
	CreatedAt    time.Time `json:"created_at"`
}

// MoodEntry is one mood log row.
type MoodEntry struct {
	ElderID   string    `json:"elder_id"`
	Mood      MoodLabel `json:"mood"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityCount is the engagement volume inside the lookback window.
type ActivityCount struct {
	Memories  int `json:"memories"`
	Questions int `json:"questions"`
}

// Total returns memories plus questions.
func (a ActivityCount) Total() int {
	return a.Memories + a.Questions
}

// TextSamples flattens memories and question/answer pairs into the text the
// pipeline analyzes. Answers are preferred over questions; blank text is skipped.
func TextSamples(memories []Memory, qas []QuestionAnswer) []string {
	out := make([]string, 0, len(memories)+len(qas))
	for _, m := range memories {
		if strings.TrimSpace(m.Text) != "" {
			out = append(out, m.Text)
		}
	}
	for _, qa := range qas {
		switch {
		case strings.TrimSpace(qa.AnswerText) != "":
			out = append(out, qa.AnswerText)
		case strings.TrimSpace(qa.QuestionText) != "":
			out = append(out, qa.QuestionText)
		}
	}
	return out
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
