package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it uses the detector namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "parakeet")
				So(manager.subsystem, ShouldEqual, "detector")
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("balloon"),
				WithSubsystem("payload"),
				WithMetricPrefix("flight"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithDurationBuckets([]float64{0.01, 0.1}),
				WithEnergyBuckets([]float64{1, 100}),
				WithMetricsEnabled(true),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"flight": "PK-1"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the collectors carry the custom names", func() {
				manager.pulsesDetected.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				found := false
				for _, f := range families {
					if f.GetName() == "balloon_payload_flight_pulses_detected_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "PK-1")
					}
				}
				So(found, ShouldBeTrue)
				So(manager.refreshInterval, ShouldEqual, 5*time.Second)
			})
		})
	})
}

func TestMetricsOptionsValidation(t *testing.T) {
	Convey("Given options with empty values", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(
			WithNamespace(""),
			WithSubsystem(""),
			WithMetricPrefix(""),
			WithHistogramBuckets(nil),
			WithDurationBuckets([]float64{}),
			WithEnergyBuckets(nil),
			WithRefreshInterval(0),
			WithCustomLabels(nil),
			WithPrometheusRegistry(registry),
		)

		Convey("Then the defaults survive", func() {
			So(manager.namespace, ShouldEqual, "parakeet")
			So(manager.subsystem, ShouldEqual, "detector")
			So(manager.metricPrefix, ShouldBeEmpty)
			So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			So(manager.durationBuckets, ShouldResemble, defaultDurationBuckets)
			So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			So(manager.customLabels, ShouldNotBeNil)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When pulses are detected", func() {
			before := testutil.ToFloat64(globalManager.pulsesDetected)
			RecordPulseDetected(150 * time.Millisecond)
			RecordPulseDetected(2 * time.Second)

			Convey("Then the counter advances", func() {
				So(testutil.ToFloat64(globalManager.pulsesDetected), ShouldEqual, before+2)
			})
		})

		Convey("When pulses are rejected", func() {
			before := testutil.ToFloat64(globalManager.pulsesRejected.WithLabelValues("glitch"))
			RecordPulseRejected("glitch")
			RecordPulseRejected("stuck_high")

			Convey("Then each reason is counted apart", func() {
				So(testutil.ToFloat64(globalManager.pulsesRejected.WithLabelValues("glitch")), ShouldEqual, before+1)
			})
		})

		Convey("When events are recorded", func() {
			before := testutil.ToFloat64(globalManager.eventsRecorded)
			RecordEvent(150000, 69, 3*time.Millisecond)
			RecordEvent(0, 0, 0)

			Convey("Then the events counter advances", func() {
				So(testutil.ToFloat64(globalManager.eventsRecorded), ShouldEqual, before+2)
			})
		})

		Convey("When queue gauges are updated", func() {
			UpdateQueueSize(12)
			UpdateQueueCapacity(1024)

			Convey("Then the gauges hold the latest values", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 1024)
			})
		})

		Convey("When sink failures occur", func() {
			before := testutil.ToFloat64(globalManager.downlinkErrors.WithLabelValues("mqtt"))
			RecordDownlinkError("mqtt")
			RecordDownlinkSent("kafka")
			RecordStoreError()
			RecordPlaybackError()
			RecordArchiveUpload("ok")
			RecordQueueDropped()
			RecordEstimateError()
			RecordTimestampClamped()
			RecordLineError()
			UpdateStoreRecords(3)

			Convey("Then the per-transport counter advances", func() {
				So(testutil.ToFloat64(globalManager.downlinkErrors.WithLabelValues("mqtt")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.storeRecords), ShouldEqual, 3)
			})
		})

		Convey("When recording HTTP and system metrics", func() {
			So(func() {
				RecordHTTPRequest("/events", "GET", "200")
				RecordHTTPRequestDuration("/events", "GET", "200", 1.5)
				RecordErrorByEndpoint("/events", "GET", "bad_request")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})
	})
}

func TestRegistryExposition(t *testing.T) {
	Convey("Given the package registry", t, func() {
		RecordPulseDetected(time.Millisecond)

		Convey("Then it exposes the detector metrics", func() {
			n, err := testutil.GatherAndCount(GetRegistry(), "parakeet_detector_pulses_detected_total")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "parakeet_detector_"), ShouldBeTrue)
			}
		})

		Convey("Then the refresh interval is the default", func() {
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given metrics recorded from many goroutines", t, func() {
		done := make(chan bool, 10)
		for i := 0; i < 10; i++ {
			go func() {
				for j := 0; j < 100; j++ {
					RecordPulseDetected(time.Duration(j) * time.Millisecond)
					UpdateQueueSize(j)
					RecordHTTPRequest("/stats", "GET", "200")
				}
				done <- true
			}()
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		Convey("Then nothing panics", func() {
			So(true, ShouldBeTrue)
		})
	})
}
