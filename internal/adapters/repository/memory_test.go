package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/cognitrend/internal/adapters/repository"
	"github.com/okian/cognitrend/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var day = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func TestMemoryStore_Sources(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory store with activity inside and outside a window", t, func() {
		s := repository.NewMemoryStore()
		s.AddMemory(model.Memory{ElderID: "e1", Text: "old", CreatedAt: day.AddDate(0, 0, -40)})
		s.AddMemory(model.Memory{ElderID: "e1", Text: "older", CreatedAt: day.Add(-2 * time.Hour)})
		s.AddMemory(model.Memory{ElderID: "e1", Text: "newest", CreatedAt: day.Add(-time.Hour)})
		s.AddMemory(model.Memory{ElderID: "e2", Text: "other elder", CreatedAt: day.Add(-time.Hour)})
		s.AddQuestion(model.QuestionAnswer{ElderID: "e1", QuestionText: "q", AnswerText: "a", CreatedAt: day.Add(-time.Hour)})
		s.AddMood(model.MoodEntry{ElderID: "e3", Mood: model.MoodGood, CreatedAt: day.Add(-time.Hour)})

		w := repository.Window{From: day.AddDate(0, 0, -30), To: day}

		Convey("When reading memories", func() {
			got, err := s.RecentMemories(ctx, "e1", w, 10)

			Convey("Then only in-window rows are returned, newest first", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].Text, ShouldEqual, "newest")
				So(got[1].Text, ShouldEqual, "older")
			})
		})

		Convey("When reading with a limit", func() {
			got, _ := s.RecentMemories(ctx, "e1", w, 1)
			So(got, ShouldHaveLength, 1)
			So(got[0].Text, ShouldEqual, "newest")
		})

		Convey("When counting activity", func() {
			c, err := s.CountActivity(ctx, "e1", w)
			So(err, ShouldBeNil)
			So(c, ShouldResemble, model.ActivityCount{Memories: 2, Questions: 1})
		})

		Convey("When listing elders", func() {
			ids, err := s.ListElders(ctx)
			So(err, ShouldBeNil)
			So(ids, ShouldResemble, []string{"e1", "e2", "e3"})
		})
	})
}

func TestMemoryStore_Scores(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty memory store", t, func() {
		s := repository.NewMemoryStore()

		Convey("When a record is upserted twice for the same day", func() {
			first := &model.CognitiveScoreRecord{ElderID: "e1", AssessmentDate: day.Add(9 * time.Hour), OverallScore: 0.4}
			So(s.UpsertScore(ctx, first), ShouldBeNil)

			second := &model.CognitiveScoreRecord{ElderID: "e1", AssessmentDate: day.Add(15 * time.Hour), OverallScore: 0.6}
			So(s.UpsertScore(ctx, second), ShouldBeNil)

			Convey("Then one record remains, carrying the latest values and the original id", func() {
				So(s.ScoreCount(), ShouldEqual, 1)
				So(second.ID, ShouldEqual, first.ID)

				got, err := s.GetScore(ctx, "e1", day)
				So(err, ShouldBeNil)
				So(got.OverallScore, ShouldEqual, 0.6)
				So(got.AssessmentDate, ShouldEqual, day)
			})
		})

		Convey("When reading a missing record", func() {
			_, err := s.GetScore(ctx, "e1", day)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When upserting without an elder id", func() {
			err := s.UpsertScore(ctx, &model.CognitiveScoreRecord{})
			So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
		})

		Convey("When history spans the assessment date", func() {
			for i := 0; i < 5; i++ {
				rec := &model.CognitiveScoreRecord{ElderID: "e1", AssessmentDate: day.AddDate(0, 0, 1-i), OverallScore: float64(i)}
				So(s.UpsertScore(ctx, rec), ShouldBeNil)
			}
			got, err := s.ScoreHistory(ctx, "e1", day, 2)

			Convey("Then only strictly earlier records are returned, newest first", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].AssessmentDate, ShouldEqual, day.AddDate(0, 0, -1))
				So(got[1].AssessmentDate, ShouldEqual, day.AddDate(0, 0, -2))
			})
		})

		Convey("When an alert is emitted", func() {
			So(s.EmitAlert(ctx, model.Alert{ElderID: "e1", Type: model.AlertTypeCognitiveDecline}), ShouldBeNil)

			Convey("Then it is stored with an id", func() {
				alerts := s.Alerts()
				So(alerts, ShouldHaveLength, 1)
				So(alerts[0].ID, ShouldNotBeEmpty)
			})
		})
	})
}
