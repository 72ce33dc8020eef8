// Package repository defines the storage ports of the assessment pipeline and
// their SQL and in-memory implementations.
package repository

import (
	"context"
	"time"

	"github.com/okian/cognitrend/internal/domain/model"
)

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// MemorySource reads elder-authored memories, newest first.
type MemorySource interface {
	RecentMemories(ctx context.Context, elderID string, w Window, limit int) ([]model.Memory, error)
}

// QuestionSource reads question/answer pairs, newest first.
type QuestionSource interface {
	RecentQuestions(ctx context.Context, elderID string, w Window, limit int) ([]model.QuestionAnswer, error)
}

// MoodSource reads mood log entries, newest first.
type MoodSource interface {
	RecentMoods(ctx context.Context, elderID string, w Window) ([]model.MoodEntry, error)
}

// ActivitySource counts engagement inside a window.
type ActivitySource interface {
	CountActivity(ctx context.Context, elderID string, w Window) (model.ActivityCount, error)
}

// ScoreHistorySource reads prior score records dated strictly before
// `before`, most recent first.
type ScoreHistorySource interface {
	ScoreHistory(ctx context.Context, elderID string, before time.Time, limit int) ([]model.CognitiveScoreRecord, error)
}

// ScoreStore persists one record per (elder, assessment date).
type ScoreStore interface {
	// UpsertScore inserts or replaces the record for its (ElderID,
	// AssessmentDate) key. rec.ID is set to the stored id.
	UpsertScore(ctx context.Context, rec *model.CognitiveScoreRecord) error

	// GetScore returns ErrNotFound when no record exists for the key.
	GetScore(ctx context.Context, elderID string, date time.Time) (model.CognitiveScoreRecord, error)
}

// AlertSink accepts emitted alerts.
type AlertSink interface {
	EmitAlert(ctx context.Context, a model.Alert) error
}

// ElderLister enumerates elders with any recorded activity.
type ElderLister interface {
	ListElders(ctx context.Context) ([]string, error)
}

// Store is everything the pipeline reads from and writes to.
type Store interface {
	MemorySource
	QuestionSource
	MoodSource
	ActivitySource
	ScoreHistorySource
	ScoreStore
	AlertSink
	ElderLister

	Close() error
}

// Migrator creates the schema of a SQL-backed store.
type Migrator interface {
	Migrate(ctx context.Context) error
}
