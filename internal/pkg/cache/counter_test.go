package cache

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryCounter(t *testing.T) {
	Convey("MemoryCounter 计数与过期", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
		counter := NewMemoryCounter().WithClock(func() time.Time { return now })

		Convey("不存在的 key 返回 0", func() {
			n, err := counter.Get(ctx, "missing")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, int64(0))
		})

		Convey("Incr 逐次累加", func() {
			for i := 1; i <= 3; i++ {
				n, err := counter.Incr(ctx, "k")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, int64(i))
			}
			n, _ := counter.Get(ctx, "k")
			So(n, ShouldEqual, int64(3))
		})

		Convey("过期后计数归零", func() {
			_, _ = counter.Incr(ctx, "k")
			So(counter.Expire(ctx, "k", 24*time.Hour), ShouldBeNil)

			now = now.Add(23 * time.Hour)
			n, _ := counter.Get(ctx, "k")
			So(n, ShouldEqual, int64(1))

			now = now.Add(time.Hour)
			n, _ = counter.Get(ctx, "k")
			So(n, ShouldEqual, int64(0))

			n, _ = counter.Incr(ctx, "k")
			So(n, ShouldEqual, int64(1))
		})

		Convey("对不存在的 key 设置过期不报错", func() {
			So(counter.Expire(ctx, "nothing", time.Minute), ShouldBeNil)
		})
	})
}
