package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/cognitrend/internal/domain/model"
)

// sqliteTimeLayout is fixed-width so TEXT comparison orders chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS memories (
	id             TEXT PRIMARY KEY,
	elder_id       TEXT NOT NULL,
	content        TEXT NOT NULL,
	emotional_tone TEXT,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_elder_created ON memories(elder_id, created_at DESC);

CREATE TABLE IF NOT EXISTS questions (
	id            TEXT PRIMARY KEY,
	elder_id      TEXT NOT NULL,
	question_text TEXT NOT NULL,
	answer_text   TEXT,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_questions_elder_created ON questions(elder_id, created_at DESC);

CREATE TABLE IF NOT EXISTS mood_logs (
	id         TEXT PRIMARY KEY,
	elder_id   TEXT NOT NULL,
	mood       TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mood_logs_elder_created ON mood_logs(elder_id, created_at DESC);

CREATE TABLE IF NOT EXISTS cognitive_scores (
	id                     TEXT PRIMARY KEY,
	elder_id               TEXT    NOT NULL,
	assessment_date        TEXT    NOT NULL,
	vocabulary_richness    REAL    NOT NULL,
	sentence_complexity    REAL    NOT NULL,
	topic_coherence        REAL    NOT NULL,
	response_time_avg      REAL    NOT NULL,
	emotional_stability    REAL    NOT NULL,
	memory_recall_accuracy REAL    NOT NULL,
	overall_score          REAL    NOT NULL,
	trend_direction        TEXT    NOT NULL,
	alert_triggered        INTEGER NOT NULL DEFAULT 0,
	raw_metrics            TEXT    NOT NULL DEFAULT '{}',
	updated_at             TEXT    NOT NULL,
	UNIQUE (elder_id, assessment_date)
);

CREATE TABLE IF NOT EXISTS alerts (
	id         TEXT PRIMARY KEY,
	elder_id   TEXT NOT NULL,
	type       TEXT NOT NULL,
	severity   TEXT NOT NULL,
	message    TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);
`

// SQLiteStore is a Store backed by a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens or creates the database at dbPath and migrates it.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create db dir: %w", ErrOpenStore, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: %w", ErrOpenStore, err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

func newID() string {
	return ulid.Make().String()
}

// sqliteLimit maps a non-positive limit to SQLite's "no limit".
func sqliteLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, s)
}

// InsertMemory stores a memory row.
func (s *SQLiteStore) InsertMemory(ctx context.Context, m model.Memory) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, elder_id, content, emotional_tone, created_at) VALUES (?, ?, ?, ?, ?)`,
		newID(), m.ElderID, m.Text, m.EmotionalTone, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// InsertQuestion stores a question/answer row.
func (s *SQLiteStore) InsertQuestion(ctx context.Context, qa model.QuestionAnswer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (id, elder_id, question_text, answer_text, created_at) VALUES (?, ?, ?, ?, ?)`,
		newID(), qa.ElderID, qa.QuestionText, qa.AnswerText, formatTime(qa.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// InsertMood stores a mood row.
func (s *SQLiteStore) InsertMood(ctx context.Context, m model.MoodEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mood_logs (id, elder_id, mood, created_at) VALUES (?, ?, ?, ?)`,
		newID(), m.ElderID, string(m.Mood), formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert mood: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentMemories(ctx context.Context, elderID string, w Window, limit int) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT elder_id, content, COALESCE(emotional_tone, ''), created_at
		FROM memories
		WHERE elder_id = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at DESC
		LIMIT ?`, elderID, formatTime(w.From), formatTime(w.To), sqliteLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	out := make([]model.Memory, 0)
	for rows.Next() {
		var (
			m       model.Memory
			created string
		)
		if err := rows.Scan(&m.ElderID, &m.Text, &m.EmotionalTone, &created); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		if m.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parse memory time: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RecentQuestions(ctx context.Context, elderID string, w Window, limit int) ([]model.QuestionAnswer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT elder_id, question_text, COALESCE(answer_text, ''), created_at
		FROM questions
		WHERE elder_id = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at DESC
		LIMIT ?`, elderID, formatTime(w.From), formatTime(w.To), sqliteLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := make([]model.QuestionAnswer, 0)
	for rows.Next() {
		var (
			qa      model.QuestionAnswer
			created string
		)
		if err := rows.Scan(&qa.ElderID, &qa.QuestionText, &qa.AnswerText, &created); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if qa.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parse question time: %w", err)
		}
		out = append(out, qa)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RecentMoods(ctx context.Context, elderID string, w Window) ([]model.MoodEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT elder_id, mood, created_at
		FROM mood_logs
		WHERE elder_id = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at DESC`, elderID, formatTime(w.From), formatTime(w.To))
	if err != nil {
		return nil, fmt.Errorf("query moods: %w", err)
	}
	defer rows.Close()

	out := make([]model.MoodEntry, 0)
	for rows.Next() {
		var (
			m            model.MoodEntry
			raw, created string
		)
		if err := rows.Scan(&m.ElderID, &raw, &created); err != nil {
			return nil, fmt.Errorf("scan mood: %w", err)
		}
		m.Mood, _ = model.ParseMood(raw)
		if m.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parse mood time: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountActivity(ctx context.Context, elderID string, w Window) (model.ActivityCount, error) {
	from, to := formatTime(w.From), formatTime(w.To)
	var c model.ActivityCount
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM memories  WHERE elder_id = ? AND created_at >= ? AND created_at < ?),
			(SELECT COUNT(*) FROM questions WHERE elder_id = ? AND created_at >= ? AND created_at < ?)`,
		elderID, from, to, elderID, from, to).Scan(&c.Memories, &c.Questions)
	if err != nil {
		return model.ActivityCount{}, fmt.Errorf("count activity: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) ScoreHistory(ctx context.Context, elderID string, before time.Time, limit int) ([]model.CognitiveScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scoreColumns+`
		FROM cognitive_scores
		WHERE elder_id = ? AND assessment_date < ?
		ORDER BY assessment_date DESC
		LIMIT ?`, elderID, model.DateOf(before).Format(model.DateLayout), sqliteLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}
	defer rows.Close()

	out := make([]model.CognitiveScoreRecord, 0)
	for rows.Next() {
		rec, err := scanSQLiteScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertScore(ctx context.Context, rec *model.CognitiveScoreRecord) error {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (elder_id, assessment_date) DO UPDATE SET
			vocabulary_richness    = excluded.vocabulary_richness,
			sentence_complexity    = excluded.sentence_complexity,
			topic_coherence        = excluded.topic_coherence,
			response_time_avg      = excluded.response_time_avg,
			emotional_stability    = excluded.emotional_stability,
			memory_recall_accuracy = excluded.memory_recall_accuracy,
			overall_score          = excluded.overall_score,
			trend_direction        = excluded.trend_direction,
			alert_triggered        = excluded.alert_triggered,
			raw_metrics            = excluded.raw_metrics,
			updated_at             = excluded.updated_at
		RETURNING id`,
		newID(), rec.ElderID, rec.AssessmentDate.Format(model.DateLayout),
		rec.VocabularyRichness, rec.SentenceComplexity, rec.TopicCoherence,
		rec.ResponseTimeAvg, rec.EmotionalStability, rec.MemoryRecallAccuracy,
		rec.OverallScore, string(rec.TrendDirection), rec.AlertTriggered,
		string(raw), formatTime(rec.UpdatedAt),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	rec.ID = id
	return nil
}

func (s *SQLiteStore) GetScore(ctx context.Context, elderID string, date time.Time) (model.CognitiveScoreRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+scoreColumns+`
		FROM cognitive_scores
		WHERE elder_id = ? AND assessment_date = ?`, elderID, model.DateOf(date).Format(model.DateLayout))
	rec, err := scanSQLiteScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CognitiveScoreRecord{}, ErrNotFound
	}
	return rec, err
}

func (s *SQLiteStore) EmitAlert(ctx context.Context, a model.Alert) error {
	if a.ID == "" {
		a.ID = newID()
	}
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal alert metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, elder_id, type, severity, message, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ElderID, a.Type, a.Severity, a.Message, string(meta), formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// CountAlerts returns the number of stored alerts for an elder.
func (s *SQLiteStore) CountAlerts(ctx context.Context, elderID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE elder_id = ?`, elderID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) ListElders(ctx context.Context) ([]string, error) {
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSQLiteScore(row scanner) (model.CognitiveScoreRecord, error) {
	var (
		rec                     model.CognitiveScoreRecord
		date, trend, raw, updAt string
	)
	err := row.Scan(&rec.ID, &rec.ElderID, &date,
		&rec.VocabularyRichness, &rec.SentenceComplexity, &rec.TopicCoherence,
		&rec.ResponseTimeAvg, &rec.EmotionalStability, &rec.MemoryRecallAccuracy,
		&rec.OverallScore, &trend, &rec.AlertTriggered, &raw, &updAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan score: %w", err)
	}
	if rec.AssessmentDate, err = time.Parse(model.DateLayout, date); err != nil {
		return rec, fmt.Errorf("parse assessment date: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updAt); err != nil {
		return rec, fmt.Errorf("parse updated_at: %w", err)
	}
	rec.TrendDirection = model.TrendDirection(trend)
	if err := json.Unmarshal([]byte(raw), &rec.RawMetrics); err != nil {
		return rec, fmt.Errorf("decode raw metrics: %w", err)
	}
	return rec, nil
}
