package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/cognitrend/internal/adapters/repository"
	"github.com/okian/cognitrend/internal/domain/model"
)

var scoreCols = []string{
	"id", "elder_id", "assessment_date", "vocabulary_richness", "sentence_complexity",
	"topic_coherence", "response_time_avg", "emotional_stability", "memory_recall_accuracy",
	"overall_score", "trend_direction", "alert_triggered", "raw_metrics", "updated_at",
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *repository.PostgresStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, repository.NewPostgresStore(db)
}

func TestPostgresStore_RecentMemories(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	w := repository.Window{From: day.AddDate(0, 0, -30), To: day}
	rows := sqlmock.NewRows([]string{"elder_id", "content", "emotional_tone", "created_at"}).
		AddRow("e1", "We baked bread.", "happy", day.Add(-time.Hour)).
		AddRow("e1", "Rainy day.", "", day.Add(-2*time.Hour))

	mock.ExpectQuery(`SELECT elder_id, content`).
		WithArgs("e1", w.From, w.To, 50).
		WillReturnRows(rows)

	got, err := store.RecentMemories(context.Background(), "e1", w, 50)

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "We baked bread.", got[0].Text)
	assert.Equal(t, "happy", got[0].EmotionalTone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecentMoods_NormalizesLabels(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	w := repository.Window{From: day.AddDate(0, 0, -30), To: day}
	rows := sqlmock.NewRows([]string{"elder_id", "mood", "created_at"}).
		AddRow("e1", " Great ", day.Add(-time.Hour)).
		AddRow("e1", "meh", day.Add(-2*time.Hour))

	mock.ExpectQuery(`FROM mood_logs`).
		WithArgs("e1", w.From, w.To).
		WillReturnRows(rows)

	got, err := store.RecentMoods(context.Background(), "e1", w)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.MoodGreat, got[0].Mood)
	assert.Equal(t, 0, got[1].Mood.Score())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountActivity(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	w := repository.Window{From: day.AddDate(0, 0, -30), To: day}
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM memories`).
		WithArgs("e1", w.From, w.To).
		WillReturnRows(sqlmock.NewRows([]string{"m", "q"}).AddRow(7, 3))

	got, err := store.CountActivity(context.Background(), "e1", w)

	require.NoError(t, err)
	assert.Equal(t, model.ActivityCount{Memories: 7, Questions: 3}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ScoreHistory(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows(scoreCols).
		AddRow("id-1", "e1", day.AddDate(0, 0, -1), 0.8, 0.5, 0.6, 0.5, 0.7, 0.9, 0.7, "stable", false, []byte(`{"text_samples":4}`), day).
		AddRow("id-2", "e1", day.AddDate(0, 0, -2), 0.8, 0.5, 0.6, 0.5, 0.7, 0.9, 0.65, "declining", false, []byte(`{}`), day)

	mock.ExpectQuery(`FROM cognitive_scores`).
		WithArgs("e1", day, 10).
		WillReturnRows(rows)

	got, err := store.ScoreHistory(context.Background(), "e1", day.Add(13*time.Hour), 10)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0.7, got[0].OverallScore)
	assert.Equal(t, model.TrendStable, got[0].TrendDirection)
	assert.Equal(t, 4, got[0].RawMetrics.TextSamples)
	assert.Equal(t, model.TrendDeclining, got[1].TrendDirection)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertScore(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	rec := &model.CognitiveScoreRecord{
		ElderID:        "e1",
		AssessmentDate: day.Add(10 * time.Hour),
		OverallScore:   0.42,
		TrendDirection: model.TrendRapidDecline,
		AlertTriggered: true,
	}

	mock.ExpectQuery(`INSERT INTO cognitive_scores .* ON CONFLICT \(elder_id, assessment_date\) DO UPDATE`).
		WithArgs(sqlmock.AnyArg(), "e1", day,
			0.0, 0.0, 0.0, 0.0, 0.0, 0.0,
			0.42, "rapid_decline", true,
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	err := store.UpsertScore(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, "existing-id", rec.ID)
	assert.Equal(t, day, rec.AssessmentDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertScore_Error(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO cognitive_scores`).WillReturnError(errors.New("connection reset"))

	err := store.UpsertScore(context.Background(), &model.CognitiveScoreRecord{ElderID: "e1", AssessmentDate: day})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetScore_NotFound(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM cognitive_scores`).
		WithArgs("e1", day).
		WillReturnRows(sqlmock.NewRows(scoreCols))

	_, err := store.GetScore(context.Background(), "e1", day)

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EmitAlert(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	alert := model.Alert{
		ID:        "alert-1",
		ElderID:   "e1",
		Type:      model.AlertTypeCognitiveDecline,
		Severity:  model.SeverityHigh,
		Message:   "Rapid cognitive decline detected. Overall score: 45%",
		Metadata:  map[string]any{"overall_score": 0.45},
		CreatedAt: day,
	}

	mock.ExpectExec(`INSERT INTO alerts`).
		WithArgs("alert-1", "e1", "cognitive_decline", "high", alert.Message, sqlmock.AnyArg(), day).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.EmitAlert(context.Background(), alert))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListElders(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`UNION`).
		WillReturnRows(sqlmock.NewRows([]string{"elder_id"}).AddRow("e1").AddRow("e2"))

	ids, err := store.ListElders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS cognitive_scores`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
