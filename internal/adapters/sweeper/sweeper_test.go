package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

type countingExpirer struct {
	calls atomic.Int64
	err   error
}

func (c *countingExpirer) ExpireTempSites(_ context.Context, _ time.Time) (int, error) {
	c.calls.Add(1)
	if c.err != nil {
		return 0, c.err
	}
	return 1, nil
}

func TestSweeperRun(t *testing.T) {
	convey.Convey("Given a sweeper with a short interval", t, func() {
		exp := &countingExpirer{}
		s := New(exp, WithInterval(10*time.Millisecond))

		convey.Convey("It sweeps repeatedly until shutdown", func() {
			go s.Run(context.Background())
			time.Sleep(60 * time.Millisecond)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := s.Shutdown(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(exp.calls.Load(), convey.ShouldBeGreaterThanOrEqualTo, 2)
		})
	})

	convey.Convey("Given an expirer that fails", t, func() {
		exp := &countingExpirer{err: errors.New("disk full")}
		s := New(exp, WithInterval(10*time.Millisecond))

		convey.Convey("It keeps ticking through failures", func() {
			go s.Run(context.Background())
			time.Sleep(60 * time.Millisecond)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			convey.So(s.Shutdown(ctx), convey.ShouldBeNil)
			convey.So(exp.calls.Load(), convey.ShouldBeGreaterThanOrEqualTo, 2)
		})
	})

	convey.Convey("Given a canceled context", t, func() {
		exp := &countingExpirer{}
		s := New(exp, WithInterval(10*time.Millisecond))

		convey.Convey("Run returns without a sweep", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			done := make(chan struct{})
			go func() {
				s.Run(ctx)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("Run did not return after context cancellation")
			}
			convey.So(exp.calls.Load(), convey.ShouldEqual, 0)
		})
	})
}
