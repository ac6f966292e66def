package qls

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestExponentialBackoff(t *testing.T) {
	Convey("Given an exponential backoff strategy", t, func() {
		eb := &ExponentialBackoff{Initial: time.Second}

		Convey("It should double the delay every attempt", func() {
			So(eb.NextDelay(1), ShouldEqual, time.Second)
			So(eb.NextDelay(2), ShouldEqual, 2*time.Second)
			So(eb.NextDelay(3), ShouldEqual, 4*time.Second)
		})
	})
}

func TestRetryPolicy(t *testing.T) {
	Convey("Given a retry policy", t, func() {
		ctx := context.Background()
		policy := &RetryPolicy{
			MaxAttempts: 3,
			Strategy:    &ExponentialBackoff{Initial: time.Millisecond},
		}

		Convey("It should stop as soon as the call succeeds", func() {
			calls := 0
			err := policy.Do(ctx, func() error {
				calls++
				if calls < 2 {
					return errors.New("transient")
				}
				return nil
			})
			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 2)
		})

		Convey("It should give up after the attempt budget", func() {
			calls := 0
			boom := errors.New("boom")
			err := policy.Do(ctx, func() error {
				calls++
				return boom
			})
			So(err, ShouldEqual, boom)
			So(calls, ShouldEqual, 3)
		})

		Convey("It should not retry errors the filter rejects", func() {
			policy.Filter = func(error) bool { return false }
			calls := 0
			err := policy.Do(ctx, func() error {
				calls++
				return errors.New("fatal")
			})
			So(err, ShouldNotBeNil)
			So(calls, ShouldEqual, 1)
		})

		Convey("It should stop waiting when the context ends", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			slow := &RetryPolicy{
				MaxAttempts: 2,
				Strategy:    &ExponentialBackoff{Initial: time.Hour},
			}
			err := slow.Do(cancelled, func() error { return errors.New("transient") })
			So(err, ShouldEqual, context.Canceled)
		})
	})
}
