package line_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/okian/parakeet/internal/adapters/line"
	"github.com/okian/parakeet/internal/domain/model"
	"github.com/okian/parakeet/internal/raysim"
)

func TestGPIOLine(t *testing.T) {
	Convey("Given a fake GPIO23 pin with edge support", t, func() {
		ctx := context.Background()
		pin := &gpiotest.Pin{N: "GPIO23", Num: 23, L: gpio.High, EdgesChan: make(chan gpio.Level, 4)}
		l, err := line.NewGPIOLine(pin)
		So(err, ShouldBeNil)

		Convey("Then it is configured as a pulled-down input", func() {
			So(pin.Pull(), ShouldEqual, gpio.PullDown)
			lvl, err := l.Read(ctx)
			So(err, ShouldBeNil)
			So(lvl, ShouldEqual, model.Low)
			So(l.String(), ShouldEqual, "GPIO23(23)")
		})

		Convey("When a rising edge arrives", func() {
			pin.EdgesChan <- gpio.High

			Convey("Then WaitForEdge returns and the line reads HIGH", func() {
				So(l.WaitForEdge(time.Second), ShouldBeTrue)
				lvl, _ := l.Read(ctx)
				So(lvl, ShouldEqual, model.High)
			})
		})

		Convey("When no edge arrives", func() {
			So(l.WaitForEdge(5*time.Millisecond), ShouldBeFalse)
		})

		Convey("When closed", func() {
			So(l.Close(), ShouldBeNil)
		})
	})

	Convey("Given a pin without an edge channel", t, func() {
		_, err := line.NewGPIOLine(&gpiotest.Pin{N: "GPIO5", Num: 5})
		So(err, ShouldNotBeNil)
	})
}

func TestFileLine(t *testing.T) {
	Convey("Given a missing signal file", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "ray_signal.txt")
		l, err := line.OpenFile(path)
		So(err, ShouldBeNil)

		Convey("Then it is created holding 0", func() {
			b, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, "0")
			lvl, err := l.Read(ctx)
			So(err, ShouldBeNil)
			So(lvl, ShouldEqual, model.Low)
		})

		Convey("When the simulator writes 1", func() {
			So(l.Set(model.High), ShouldBeNil)
			lvl, _ := l.Read(ctx)
			So(lvl, ShouldEqual, model.High)

			Convey("And then 0 again", func() {
				So(l.Set(model.Low), ShouldBeNil)
				lvl, _ := l.Read(ctx)
				So(lvl, ShouldEqual, model.Low)
			})
		})

		Convey("When the file holds noise or a trailing newline", func() {
			So(os.WriteFile(path, []byte("1\n"), 0o600), ShouldBeNil)
			lvl, _ := l.Read(ctx)
			So(lvl, ShouldEqual, model.High)

			So(os.WriteFile(path, []byte("maybe"), 0o600), ShouldBeNil)
			lvl, _ = l.Read(ctx)
			So(lvl, ShouldEqual, model.Low)
		})

		Convey("When the file disappears", func() {
			So(os.Remove(path), ShouldBeNil)
			lvl, err := l.Read(ctx)
			So(err, ShouldBeNil)
			So(lvl, ShouldEqual, model.Low)
		})
	})

	Convey("Given an existing signal file holding 1", t, func() {
		path := filepath.Join(t.TempDir(), "ray_signal.txt")
		So(os.WriteFile(path, []byte("1"), 0o600), ShouldBeNil)
		l, err := line.OpenFile(path)
		So(err, ShouldBeNil)

		Convey("Then it is left untouched", func() {
			lvl, _ := l.Read(context.Background())
			So(lvl, ShouldEqual, model.High)
		})
	})
}

func TestSimLine(t *testing.T) {
	Convey("Given a simulator with a fixed one second gap and 100ms rays", t, func() {
		now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		gen := raysim.NewGenerator(raysim.Bounds{MinGap: time.Second, MaxGap: time.Second, MinEnergy: 1, MaxEnergy: 1}, 1)
		l := line.NewSimLine(gen, clock)
		ctx := context.Background()

		read := func() model.Level {
			lvl, err := l.Read(ctx)
			So(err, ShouldBeNil)
			return lvl
		}

		Convey("Then the line follows the schedule", func() {
			So(read(), ShouldEqual, model.Low)
			now = now.Add(time.Second)
			So(read(), ShouldEqual, model.High)
			now = now.Add(99 * time.Millisecond)
			So(read(), ShouldEqual, model.High)
			now = now.Add(time.Millisecond)
			So(read(), ShouldEqual, model.Low)
			now = now.Add(time.Second)
			So(read(), ShouldEqual, model.High)
		})
	})
}

func TestSimLine_Predefined(t *testing.T) {
	Convey("Given a simulator replaying the predefined run", t, func() {
		start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		now := start
		l := line.NewSimLine(raysim.NewSequence(raysim.Predefined()), func() time.Time { return now })
		ctx := context.Background()

		at := func(d time.Duration) model.Level {
			now = start.Add(d)
			lvl, err := l.Read(ctx)
			So(err, ShouldBeNil)
			return lvl
		}

		Convey("Then the first hit rises at 1s for 230ms and the second near 4.5s", func() {
			So(at(999*time.Millisecond), ShouldEqual, model.Low)
			So(at(time.Second), ShouldEqual, model.High)
			So(at(1229*time.Millisecond), ShouldEqual, model.High)
			So(at(1230*time.Millisecond), ShouldEqual, model.Low)
			So(at(4400*time.Millisecond), ShouldEqual, model.Low)
			So(at(4501*time.Millisecond), ShouldEqual, model.High)
		})
	})
}
