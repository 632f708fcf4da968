package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/parakeet/internal/app"
	"github.com/okian/parakeet/internal/adapters/line"
	"github.com/okian/parakeet/internal/config"
	"github.com/okian/parakeet/internal/domain/calibration"
	"github.com/okian/parakeet/internal/domain/model"
	"github.com/okian/parakeet/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type brokenLine struct{}

func (brokenLine) Read(context.Context) (model.Level, error) {
	return model.Low, errors.New("sysfs gone")
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.New()
	cfg.LineSource = config.LineFile
	cfg.SignalFile = filepath.Join(t.TempDir(), "ray_signal.txt")
	cfg.Store = config.StoreMemory
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

// pulseOnce drives the signal file HIGH for width.
func pulseOnce(sig *line.FileLine, width time.Duration) {
	So(sig.Set(model.High), ShouldBeNil)
	time.Sleep(width)
	So(sig.Set(model.Low), ShouldBeNil)
}

func waitForEvents(svc *service.Service, n int) []model.Event {
	ctx := context.Background()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Events().Count(ctx) >= n {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	evs, err := svc.Events().List(ctx, 100)
	So(err, ShouldBeNil)
	return evs
}

func stop(svc *service.Service) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return svc.Stop(ctx)
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service watching a signal file", t, func() {
		cfg := testConfig(t)
		sig, err := line.OpenFile(cfg.SignalFile)
		So(err, ShouldBeNil)

		svc := service.New(cfg, service.WithLine(sig), service.WithPlayers())

		Convey("When it is stopped before starting", func() {
			So(stop(svc), ShouldEqual, service.ErrNotStarted)
		})

		Convey("When started", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)

			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["calibration"], ShouldEqual, calibration.KindLinear)

			Convey("And a 50ms pulse arrives", func() {
				pulseOnce(sig, 50*time.Millisecond)
				evs := waitForEvents(svc, 1)

				Convey("Then one event is recorded with the linear energy", func() {
					So(evs, ShouldHaveLength, 1)
					e := evs[0]
					So(e.PulseDuration, ShouldBeBetween, 0.04, 0.5)
					So(e.Energy, ShouldAlmostEqual, e.PulseDuration*1e6, 1e-6)
					So(e.Note.Rest, ShouldBeFalse)
					So(e.Note.MIDI, ShouldBeBetween, 20, 109)
					So(svc.GetStats()["stored_events"], ShouldEqual, 1)
				})

				Convey("Then a swapped calibration applies to the next pulse", func() {
					So(svc.SetCalibration(calibration.Identity{}), ShouldBeNil)
					pulseOnce(sig, 50*time.Millisecond)
					evs := waitForEvents(svc, 2)

					So(evs, ShouldHaveLength, 2)
					So(evs[1].Energy, ShouldEqual, evs[1].PulseDuration)
					So(evs[1].Timestamp.Before(evs[0].Timestamp), ShouldBeFalse)
				})
			})

			Convey("And a nil calibration is set", func() {
				err := svc.SetCalibration(nil)

				Convey("Then it is refused and the current one stays", func() {
					So(errors.Is(err, calibration.ErrUnknownKind), ShouldBeTrue)
					So(svc.GetStats()["calibration"], ShouldEqual, calibration.KindLinear)
				})
			})

			Convey("And it is stopped", func() {
				So(stop(svc), ShouldBeNil)

				Convey("Then it cannot be started again", func() {
					So(svc.Start(context.Background()), ShouldEqual, service.ErrStopped)
					So(svc.GetStats()["started"], ShouldEqual, false)
				})
			})

			Reset(func() {
				_ = stop(svc)
			})
		})
	})
}

func TestService_FileStoreRestart(t *testing.T) {
	Convey("Given a service logging to a file", t, func() {
		cfg := testConfig(t)
		cfg.Store = config.StoreFile
		cfg.LogPath = filepath.Join(t.TempDir(), "event_log.txt")
		sig, err := line.OpenFile(cfg.SignalFile)
		So(err, ShouldBeNil)

		first := service.New(cfg, service.WithLine(sig), service.WithPlayers())
		So(first.Start(context.Background()), ShouldBeNil)
		pulseOnce(sig, 30*time.Millisecond)
		So(waitForEvents(first, 1), ShouldHaveLength, 1)
		So(stop(first), ShouldBeNil)

		Convey("When a new service opens the same log", func() {
			second := service.New(cfg, service.WithLine(sig), service.WithPlayers())
			So(second.Start(context.Background()), ShouldBeNil)
			defer stop(second)

			Convey("Then the stored event is counted and served again", func() {
				So(second.GetStats()["stored_events"], ShouldEqual, 1)
				last, ok, err := second.Events().Last(context.Background())
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(last.Energy, ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestService_LineFailure(t *testing.T) {
	Convey("Given a service whose line cannot be read", t, func() {
		svc := service.New(testConfig(t), service.WithLine(brokenLine{}), service.WithPlayers())
		So(svc.Start(context.Background()), ShouldBeNil)
		defer stop(svc)

		Convey("Then the failure is reported on Errors", func() {
			select {
			case err := <-svc.Errors():
				So(errors.Is(err, service.ErrLineFailed), ShouldBeTrue)
			case <-time.After(2 * time.Second):
				So("no error reported", ShouldBeEmpty)
			}
		})
	})
}

func TestService_BadConfig(t *testing.T) {
	Convey("An unknown calibration fails Start", t, func() {
		cfg := testConfig(t)
		cfg.CalibrationKind = "astrology"
		svc := service.New(cfg, service.WithLine(brokenLine{}), service.WithPlayers())
		err := svc.Start(context.Background())
		So(errors.Is(err, calibration.ErrUnknownKind), ShouldBeTrue)
		So(svc.GetStats()["started"], ShouldEqual, false)
	})
}
