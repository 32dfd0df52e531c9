package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/flip7/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.DBPath, convey.ShouldBeEmpty)
			convey.So(cfg.StrictHands, convey.ShouldBeFalse)
			convey.So(cfg.MaxListLimit, convey.ShouldEqual, 100)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsRefreshInterval, convey.ShouldEqual, 10*time.Second)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad field", t, func() {
		cases := map[string]func(*config.Config){
			"addr must not be empty":                    func(c *config.Config) { c.Addr = "  " },
			"queue_size must be positive":               func(c *config.Config) { c.QueueSize = 0 },
			"worker_count must be positive":             func(c *config.Config) { c.WorkerCount = -1 },
			"dedupe_size must not be negative":          func(c *config.Config) { c.DedupeSize = -5 },
			"max_list_limit must be positive":           func(c *config.Config) { c.MaxListLimit = 0 },
			"unknown log_format":                        func(c *config.Config) { c.LogFormat = "xml" },
			"metrics_refresh_interval must be positive": func(c *config.Config) { c.MetricsRefreshInterval = 0 },
			"is not key=value":                          func(c *config.Config) { c.MetricsLabels = "env=prod,region" },
		}

		for msg, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, msg)
		}
	})

	convey.Convey("Given a zero dedupe size", t, func() {
		cfg := config.New()
		cfg.DedupeSize = 0

		convey.So(cfg.Validate(), convey.ShouldBeNil)
	})
}

func TestConfig_Labels(t *testing.T) {
	convey.Convey("Given metric labels in key=value form", t, func() {
		cfg := config.New()
		cfg.MetricsLabels = " env = prod ,region=eu-west,"

		labels, err := cfg.Labels()
		convey.So(err, convey.ShouldBeNil)
		convey.So(labels, convey.ShouldResemble, map[string]string{"env": "prod", "region": "eu-west"})
	})

	convey.Convey("Given no metric labels", t, func() {
		labels, err := config.New().Labels()
		convey.So(err, convey.ShouldBeNil)
		convey.So(labels, convey.ShouldBeEmpty)
	})
}
