package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	dedupe "github.com/okian/cognitrend/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryTracker(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new tracker", t, func() {
		tr := dedupe.NewMemoryTracker()
		So(tr.Pending(), ShouldEqual, 0)

		Convey("When a key is claimed", func() {
			owned := tr.Claim(ctx, "elder-1|2026-10-19")

			Convey("Then the caller owns it", func() {
				So(owned, ShouldBeTrue)
				So(tr.Pending(), ShouldEqual, 1)
			})

			Convey("And a second claim for the same key is refused", func() {
				So(tr.Claim(ctx, "elder-1|2026-10-19"), ShouldBeFalse)
				So(tr.Pending(), ShouldEqual, 1)
			})

			Convey("And a different date is a different job", func() {
				So(tr.Claim(ctx, "elder-1|2026-10-20"), ShouldBeTrue)
				So(tr.Pending(), ShouldEqual, 2)
			})

			Convey("And after release it can be claimed again", func() {
				tr.Release(ctx, "elder-1|2026-10-19")
				So(tr.Pending(), ShouldEqual, 0)
				So(tr.Claim(ctx, "elder-1|2026-10-19"), ShouldBeTrue)
			})
		})

		Convey("When releasing an unknown key", func() {
			tr.Release(ctx, "missing")

			Convey("Then nothing changes", func() {
				So(tr.Pending(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded tracker", t, func() {
		tr := dedupe.NewMemoryTracker(dedupe.WithMaxPending(2))
		tr.Claim(ctx, "a")
		tr.Claim(ctx, "b")

		Convey("When a third key is claimed", func() {
			So(tr.Claim(ctx, "c"), ShouldBeTrue)

			Convey("Then the oldest claim is evicted", func() {
				So(tr.Pending(), ShouldEqual, 2)
				So(tr.Claim(ctx, "a"), ShouldBeTrue)
				So(tr.Claim(ctx, "c"), ShouldBeFalse)
			})
		})
	})

	Convey("Given an unbounded tracker", t, func() {
		tr := dedupe.NewMemoryTracker(dedupe.WithMaxPending(0))
		for i := 0; i < 100; i++ {
			tr.Claim(ctx, fmt.Sprintf("k-%d", i))
		}
		So(tr.Pending(), ShouldEqual, 100)
	})
}

func TestMemoryTracker_Concurrent(t *testing.T) {
	Convey("Given many goroutines claiming the same key", t, func() {
		tr := dedupe.NewMemoryTracker()
		var owners atomic.Int32
		var wg sync.WaitGroup

		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if tr.Claim(context.Background(), "elder-1|2026-10-19") {
					owners.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one wins", func() {
			So(owners.Load(), ShouldEqual, 1)
		})
	})
}
