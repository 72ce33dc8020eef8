package trend_test

import (
	"testing"

	"github.com/okian/cognitrend/internal/domain/model"
	"github.com/okian/cognitrend/internal/domain/trend"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassify(t *testing.T) {
	Convey("Given fewer than three history entries", t, func() {
		Convey("Then the trend is stable regardless of the current score", func() {
			So(trend.Classify(0.1, nil), ShouldEqual, model.TrendStable)
			So(trend.Classify(0.0, []float64{0.9, 0.9}), ShouldEqual, model.TrendStable)
		})
	})

	Convey("Given a strong older-to-recent rise but a small dip today", t, func() {
		history := []float64{0.9, 0.9, 0.9, 0.3, 0.3, 0.3, 0.3}

		Convey("Then improving requires a positive recent delta and the result is stable", func() {
			So(trend.Classify(0.85, history), ShouldEqual, model.TrendStable)
		})
	})

	Convey("Given a current score a quarter below the older window", t, func() {
		history := []float64{0.5, 0.5, 0.5, 0.75, 0.75, 0.75, 0.75}

		Convey("Then the trend is a rapid decline", func() {
			So(trend.Classify(0.5, history), ShouldEqual, model.TrendRapidDecline)
		})
	})

	Convey("Given a rising trend that continues today", t, func() {
		history := []float64{0.7, 0.7, 0.7, 0.5, 0.5, 0.5, 0.5}
		So(trend.Classify(0.8, history), ShouldEqual, model.TrendImproving)
	})

	Convey("Given a mild drop between windows", t, func() {
		history := []float64{0.6, 0.6, 0.6, 0.7, 0.7, 0.7, 0.7}
		So(trend.Classify(0.6, history), ShouldEqual, model.TrendDeclining)
	})

	Convey("Given a sharp drop today against a flat history", t, func() {
		history := []float64{0.8, 0.8, 0.8, 0.8}
		So(trend.Classify(0.5, history), ShouldEqual, model.TrendRapidDecline)
	})

	Convey("Given exactly three history entries", t, func() {
		history := []float64{0.5, 0.5, 0.5}

		Convey("Then the older average is zero and a small gain reads as improving", func() {
			So(trend.Classify(0.6, history), ShouldEqual, model.TrendImproving)
		})
	})

	Convey("Given entries beyond the seventh", t, func() {
		base := []float64{0.6, 0.6, 0.6, 0.6, 0.6, 0.6, 0.6}
		longer := append(append([]float64{}, base...), 0.0, 0.0, 0.0)

		Convey("Then they do not affect the result", func() {
			So(trend.Classify(0.6, longer), ShouldEqual, trend.Classify(0.6, base))
		})
	})
}

func TestClassifier_Options(t *testing.T) {
	Convey("Given a classifier with a stricter decline threshold", t, func() {
		th := trend.DefaultThresholds()
		th.Declining = -0.2
		th.RapidDecline = -0.5
		c := trend.NewClassifier(trend.WithThresholds(th))

		Convey("Then a mild drop is stable", func() {
			history := []float64{0.6, 0.6, 0.6, 0.7, 0.7, 0.7, 0.7}
			So(c.Classify(0.6, history), ShouldEqual, model.TrendStable)
		})
	})

	Convey("Given a minimum history below the recent window", t, func() {
		th := trend.DefaultThresholds()
		th.MinHistory = 1
		c := trend.NewClassifier(trend.WithThresholds(th))

		Convey("Then it is raised to the recent window size", func() {
			So(c.Thresholds().MinHistory, ShouldEqual, 3)
			So(c.Classify(0.0, []float64{0.9}), ShouldEqual, model.TrendStable)
		})
	})
}
