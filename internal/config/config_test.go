package config_test

import (
	"testing"

	"github.com/molehit/molehit/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewDefaults(t *testing.T) {
	Convey("Given a default config", t, func() {
		cfg := config.New()

		Convey("Then it carries sane defaults", func() {
			So(cfg.Addr, ShouldEqual, ":8090")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.TickIntervalMS, ShouldEqual, 100)
			So(cfg.HitHoldMS, ShouldEqual, 300)
			So(cfg.MaxSessions, ShouldEqual, 1000)
			So(cfg.EventBufferSize, ShouldEqual, 256)
			So(cfg.MaxHistoryLimit, ShouldEqual, 100)
			So(cfg.DBPath, ShouldBeEmpty)
		})
	})
}
