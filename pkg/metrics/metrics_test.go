package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then it should be enabled with the default refresh interval", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_ns"),
				WithSubsystem("test_sub"),
				WithMetricPrefix("pre"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.RecordCalculation("ORIGINAL", 10, false, false)

			Convey("Then names and labels follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_ns_test_sub_pre_calculations_total" {
						found = true
						labels := f.GetMetric()[0].GetLabel()
						var names []string
						for _, l := range labels {
							names = append(names, l.GetName())
						}
						So(strings.Join(names, ","), ShouldContainSubstring, "env")
					}
				}
				So(found, ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)
			})
		})
	})
}

func TestRecordCalculation(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When recording a wiped Vengeance hand and a Flip 7", func() {
			manager.RecordCalculation("VENGEANCE", 0, false, true)
			manager.RecordCalculation("VENGEANCE", 36, true, false)

			Convey("Then the per-mode counters move", func() {
				So(testutil.ToFloat64(manager.calculations.WithLabelValues("VENGEANCE")), ShouldEqual, 2)
				So(testutil.ToFloat64(manager.zeroWipes.WithLabelValues("VENGEANCE")), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.flip7Hands.WithLabelValues("VENGEANCE")), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.calculations.WithLabelValues("ORIGINAL")), ShouldEqual, 0)
			})
		})

		Convey("When recording is disabled", func() {
			disabled := NewManager(
				WithPrometheusRegistry(prometheus.NewRegistry()),
				WithMetricsEnabled(false),
			)
			disabled.RecordCalculation("COMBO", 12, false, false)

			Convey("Then nothing is observed", func() {
				So(disabled.Enabled(), ShouldBeFalse)
				So(testutil.ToFloat64(disabled.calculations.WithLabelValues("COMBO")), ShouldEqual, 0)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Then every recorder accepts observations", func() {
			So(func() {
				RecordCalculation("COMBO", 20, false, false)
				RecordCalculationLatency(0.2)
				RecordValidationFailure("card_not_in_deck")
				RecordSubmissionAccepted()
				RecordSubmissionDuplicate()
				RecordSubmissionScored()
				RecordSubmissionFailed()
				RecordScoringLatency(1)
				UpdateQueueSize(3)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.3)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				UpdateStoreRecords(7)
				RecordStoreLatency("save", 0.5)
				RecordStoreError("save")
				RecordHTTPRequest("score", "POST", "200")
				RecordHTTPRequestDuration("score", "POST", "200", 1.5)
				RecordErrorByComponent("queue", "closed")
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("score", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 1)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("Then gauges reflect the last update", func() {
			UpdateQueueCapacity(64)
			So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 64)
			UpdateStoreRecords(5)
			So(testutil.ToFloat64(globalManager.storeRecords), ShouldEqual, 5)
		})

		Convey("Then the custom registry gathers flip7 metrics", func() {
			RecordSubmissionAccepted()
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			var names []string
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(strings.Join(names, " "), ShouldContainSubstring, "flip7_scorekeeper_submissions_accepted_total")
		})
	})
}

func TestInit(t *testing.T) {
	Convey("Given the global manager rebuilt from options", t, func() {
		defer Init()

		m := Init(
			WithMetricPrefix("table"),
			WithCustomLabels(map[string]string{"env": "test"}),
			WithRefreshInterval(3*time.Second),
			WithMetricsEnabled(false),
		)

		Convey("Then the returned manager carries the settings", func() {
			So(m.Enabled(), ShouldBeFalse)
			So(m.RefreshInterval(), ShouldEqual, 3*time.Second)
		})

		Convey("Then the new registry exposes prefixed, labelled metrics", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			var capacity float64 = -1
			var env string
			for _, f := range families {
				if f.GetName() == "flip7_scorekeeper_table_queue_capacity" {
					capacity = f.GetMetric()[0].GetGauge().GetValue()
					for _, l := range f.GetMetric()[0].GetLabel() {
						if l.GetName() == "env" {
							env = l.GetValue()
						}
					}
				}
			}
			So(capacity, ShouldEqual, 0)
			So(env, ShouldEqual, "test")
		})

		Convey("Then disabled recorders leave gauges untouched", func() {
			UpdateQueueCapacity(64)
			So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 0)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					manager.RecordCalculation("ORIGINAL", j, j%7 == 0, false)
				}
			}()
		}
		wg.Wait()

		So(testutil.ToFloat64(manager.calculations.WithLabelValues("ORIGINAL")), ShouldEqual, 1000)
	})
}
