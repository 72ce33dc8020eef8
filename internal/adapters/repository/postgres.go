package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // postgres driver

	"github.com/okian/cognitrend/internal/domain/model"
)

// PostgresSchema creates the tables the pipeline reads and writes.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS memories (
	id             BIGSERIAL PRIMARY KEY,
	elder_id       TEXT        NOT NULL,
	content        TEXT        NOT NULL,
	emotional_tone TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_memories_elder_created ON memories (elder_id, created_at DESC);

CREATE TABLE IF NOT EXISTS questions (
	id            BIGSERIAL PRIMARY KEY,
	elder_id      TEXT        NOT NULL,
	question_text TEXT        NOT NULL,
	answer_text   TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_questions_elder_created ON questions (elder_id, created_at DESC);

CREATE TABLE IF NOT EXISTS mood_logs (
	id         BIGSERIAL PRIMARY KEY,
	elder_id   TEXT        NOT NULL,
	mood       TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_mood_logs_elder_created ON mood_logs (elder_id, created_at DESC);

CREATE TABLE IF NOT EXISTS cognitive_scores (
	id                     UUID PRIMARY KEY,
	elder_id               TEXT             NOT NULL,
	assessment_date        DATE             NOT NULL,
	vocabulary_richness    DOUBLE PRECISION NOT NULL,
	sentence_complexity    DOUBLE PRECISION NOT NULL,
	topic_coherence        DOUBLE PRECISION NOT NULL,
	response_time_avg      DOUBLE PRECISION NOT NULL,
	emotional_stability    DOUBLE PRECISION NOT NULL,
	memory_recall_accuracy DOUBLE PRECISION NOT NULL,
	overall_score          DOUBLE PRECISION NOT NULL,
	trend_direction        TEXT             NOT NULL,
	alert_triggered        BOOLEAN          NOT NULL DEFAULT FALSE,
	raw_metrics            JSONB            NOT NULL DEFAULT '{}',
	updated_at             TIMESTAMPTZ      NOT NULL DEFAULT now(),
	UNIQUE (elder_id, assessment_date)
);

CREATE TABLE IF NOT EXISTS alerts (
	id         UUID PRIMARY KEY,
	elder_id   TEXT        NOT NULL,
	type       TEXT        NOT NULL,
	severity   TEXT        NOT NULL,
	message    TEXT        NOT NULL,
	metadata   JSONB       NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const scoreColumns = `id, elder_id, assessment_date, vocabulary_richness, sentence_complexity,
	topic_coherence, response_time_avg, emotional_stability, memory_recall_accuracy,
	overall_score, trend_direction, alert_triggered, raw_metrics, updated_at`

// PostgresOption configures the connection pool.
type PostgresOption func(*sql.DB)

// WithMaxConns caps open connections.
func WithMaxConns(n int) PostgresOption {
	return func(db *sql.DB) {
		if n > 0 {
			db.SetMaxOpenConns(n)
		}
	}
}

// WithMaxIdle caps idle connections.
func WithMaxIdle(n int) PostgresOption {
	return func(db *sql.DB) {
		if n > 0 {
			db.SetMaxIdleConns(n)
		}
	}
}

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres: %w", ErrOpenStore, err)
	}
	for _, opt := range opts {
		opt(db)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping postgres: %w", ErrOpenStore, err)
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentMemories(ctx context.Context, elderID string, w Window, limit int) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT elder_id, content, COALESCE(emotional_tone, ''), created_at
		FROM memories
		WHERE elder_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC
		LIMIT $4`, elderID, w.From, w.To, pgLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	out := make([]model.Memory, 0)
	for rows.Next() {
		var m model.Memory
		if err := rows.Scan(&m.ElderID, &m.Text, &m.EmotionalTone, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RecentQuestions(ctx context.Context, elderID string, w Window, limit int) ([]model.QuestionAnswer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT elder_id, question_text, COALESCE(answer_text, ''), created_at
		FROM questions
		WHERE elder_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC
		LIMIT $4`, elderID, w.From, w.To, pgLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := make([]model.QuestionAnswer, 0)
	for rows.Next() {
		var qa model.QuestionAnswer
		if err := rows.Scan(&qa.ElderID, &qa.QuestionText, &qa.AnswerText, &qa.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, qa)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RecentMoods(ctx context.Context, elderID string, w Window) ([]model.MoodEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT elder_id, mood, created_at
		FROM mood_logs
		WHERE elder_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC`, elderID, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("query moods: %w", err)
	}
	defer rows.Close()

	out := make([]model.MoodEntry, 0)
	for rows.Next() {
		var (
			m   model.MoodEntry
			raw string
		)
		if err := rows.Scan(&m.ElderID, &raw, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mood: %w", err)
		}
		m.Mood, _ = model.ParseMood(raw)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountActivity(ctx context.Context, elderID string, w Window) (model.ActivityCount, error) {
	var c model.ActivityCount
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM memories  WHERE elder_id = $1 AND created_at >= $2 AND created_at < $3),
			(SELECT COUNT(*) FROM questions WHERE elder_id = $1 AND created_at >= $2 AND created_at < $3)`,
		elderID, w.From, w.To).Scan(&c.Memories, &c.Questions)
	if err != nil {
		return model.ActivityCount{}, fmt.Errorf("count activity: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ScoreHistory(ctx context.Context, elderID string, before time.Time, limit int) ([]model.CognitiveScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scoreColumns+`
		FROM cognitive_scores
		WHERE elder_id = $1 AND assessment_date < $2
		ORDER BY assessment_date DESC
		LIMIT $3`, elderID, model.DateOf(before), pgLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}
	defer rows.Close()

	out := make([]model.CognitiveScoreRecord, 0)
	for rows.Next() {
		rec, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertScore(ctx context.Context, rec *model.CognitiveScoreRecord) error {
	if rec == nil || rec.ElderID == "" {
		return fmt.Errorf("%w: missing elder id", ErrInvalidRecord)
	}
	raw, err := json.Marshal(rec.RawMetrics)
	if err != nil {
		return fmt.Errorf("%w: raw metrics: %w", ErrInvalidRecord, err)
	}

	rec.AssessmentDate = model.DateOf(rec.AssessmentDate)
	rec.UpdatedAt = s.now().UTC()

	var id string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO cognitive_scores (`+scoreColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (elder_id, assessment_date) DO UPDATE SET
			vocabulary_richness    = EXCLUDED.vocabulary_richness,
			sentence_complexity    = EXCLUDED.sentence_complexity,
			topic_coherence        = EXCLUDED.topic_coherence,
			response_time_avg      = EXCLUDED.response_time_avg,
			emotional_stability    = EXCLUDED.emotional_stability,
			memory_recall_accuracy = EXCLUDED.memory_recall_accuracy,
			overall_score          = EXCLUDED.overall_score,
			trend_direction        = EXCLUDED.trend_direction,
			alert_triggered        = EXCLUDED.alert_triggered,
			raw_metrics            = EXCLUDED.raw_metrics,
			updated_at             = EXCLUDED.updated_at
		RETURNING id`,
		uuid.NewString(), rec.ElderID, rec.AssessmentDate,
		rec.VocabularyRichness, rec.SentenceComplexity, rec.TopicCoherence,
		rec.ResponseTimeAvg, rec.EmotionalStability, rec.MemoryRecallAccuracy,
		rec.OverallScore, string(rec.TrendDirection), rec.AlertTriggered,
		raw, rec.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	rec.ID = id
	return nil
}

func (s *PostgresStore) GetScore(ctx context.Context, elderID string, date time.Time) (model.CognitiveScoreRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+scoreColumns+`
		FROM cognitive_scores
		WHERE elder_id = $1 AND assessment_date = $2`, elderID, model.DateOf(date))
	rec, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CognitiveScoreRecord{}, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) EmitAlert(ctx context.Context, a model.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal alert metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, elder_id, type, severity, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.ElderID, a.Type, a.Severity, a.Message, meta, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListElders(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT elder_id FROM memories
		UNION SELECT elder_id FROM questions
		UNION SELECT elder_id FROM mood_logs
		ORDER BY elder_id`)
	if err != nil {
		return nil, fmt.Errorf("list elders: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan elder id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Close closes the database handle.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// pgLimit maps a non-positive limit to LIMIT NULL, which is unbounded.
func pgLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

type scanner interface {
	Scan(dest ...any) error
}

func scanScore(row scanner) (model.CognitiveScoreRecord, error) {
	var (
		rec   model.CognitiveScoreRecord
		trend string
		raw   []byte
	)
	err := row.Scan(&rec.ID, &rec.ElderID, &rec.AssessmentDate,
		&rec.VocabularyRichness, &rec.SentenceComplexity, &rec.TopicCoherence,
		&rec.ResponseTimeAvg, &rec.EmotionalStability, &rec.MemoryRecallAccuracy,
		&rec.OverallScore, &trend, &rec.AlertTriggered, &raw, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan score: %w", err)
	}
	rec.TrendDirection = model.TrendDirection(trend)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec.RawMetrics); err != nil {
			return rec, fmt.Errorf("decode raw metrics: %w", err)
		}
	}
	return rec, nil
}
