package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/flip7/internal/config"
	"github.com/okian/flip7/pkg/logger"
	"github.com/okian/flip7/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		t.Setenv("FLIP7_ADDR", ":8080")
		t.Setenv("FLIP7_QUEUE_SIZE", "1000")
		t.Setenv("FLIP7_WORKER_COUNT", "4")
		t.Setenv("FLIP7_STRICT_HANDS", "true")

		convey.Convey("Then the service is built from the loaded config", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)

			svc := newService(cfg, logger.Get())
			stats := svc.GetStats()
			convey.So(stats["workerCount"], convey.ShouldEqual, 4)
			convey.So(stats["queueSize"], convey.ShouldEqual, 1000)
			convey.So(stats["strictHands"], convey.ShouldBeTrue)
		})
	})
}

func TestMainRoutes(t *testing.T) {
	convey.Convey("Given a started service behind the mux", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.WorkerCount = 2
		cfg.QueueSize = 16

		svc := newService(cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newMux(ctx, cfg, svc))
		defer srv.Close()

		convey.Convey("When a hand is scored", func() {
			body := `{"mode":"COMBO","numbers":[1,2,3,4,5,6,7],"modifiers":[4,-2]}`
			resp, err := http.Post(srv.URL+"/score", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			var out map[string]any
			convey.So(json.NewDecoder(resp.Body).Decode(&out), convey.ShouldBeNil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			convey.So(out["total"], convey.ShouldEqual, 45.0)
			convey.So(out["bonus_display"], convey.ShouldEqual, "+2")
			convey.So(out["is_flip7"], convey.ShouldBeTrue)
		})

		convey.Convey("When the API document is requested", func() {
			resp, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("When health is checked", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	convey.Convey("Given a cancelled context", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.WorkerCount = 1

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		convey.Convey("Then run shuts down cleanly", func() {
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg, logger.Get()) }()

			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(5 * time.Second):
				t.Fatal("run did not return after cancellation")
			}
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		svc := newService(config.New(), logger.Get())

		convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
		convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		convey.So(func() { startSystemMetricsUpdater(ctx, 10*time.Millisecond) }, convey.ShouldNotPanic)
		convey.So(func() { startServiceMetricsUpdater(ctx, svc, 10*time.Millisecond) }, convey.ShouldNotPanic)
	})
}

func TestInitMetrics(t *testing.T) {
	convey.Convey("Given metrics settings in the config", t, func() {
		defer metrics.Init()

		cfg := config.New()
		cfg.MetricsRefreshInterval = 2 * time.Second
		cfg.MetricsPrefix = "table"
		cfg.MetricsLabels = "env=test"

		convey.Convey("Then the global manager follows them", func() {
			m, err := initMetrics(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(m.RefreshInterval(), convey.ShouldEqual, 2*time.Second)
			convey.So(metrics.RefreshInterval(), convey.ShouldEqual, 2*time.Second)
			convey.So(metrics.Enabled(), convey.ShouldBeTrue)
		})

		convey.Convey("Then metrics can be switched off", func() {
			cfg.MetricsEnabled = false
			_, err := initMetrics(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(metrics.Enabled(), convey.ShouldBeFalse)
		})

		convey.Convey("Then malformed labels are rejected", func() {
			cfg.MetricsLabels = "env"
			_, err := initMetrics(cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
