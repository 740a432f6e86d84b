package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/molehit/molehit/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		for _, k := range []string{"MOLEHIT_CONFIG", "MOLEHIT_ADDR", "MOLEHIT_TICK_INTERVAL_MS", "MOLEHIT_LOG_LEVEL"} {
			So(os.Unsetenv(k), ShouldBeNil)
		}

		Convey("When loading with no overrides", func() {
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":8090")
		})

		Convey("When env vars override defaults", func() {
			So(os.Setenv("MOLEHIT_ADDR", ":9999"), ShouldBeNil)
			So(os.Setenv("MOLEHIT_LOG_LEVEL", "debug"), ShouldBeNil)
			defer func() {
				_ = os.Unsetenv("MOLEHIT_ADDR")
				_ = os.Unsetenv("MOLEHIT_LOG_LEVEL")
			}()

			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9999")
			So(cfg.LogLevel, ShouldEqual, "debug")
		})

		Convey("When a YAML file is provided", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "molehit.yaml")
			body := []byte("addr: \":7070\"\ntick_interval_ms: 50\n")
			So(os.WriteFile(path, body, 0o600), ShouldBeNil)
			So(os.Setenv("MOLEHIT_CONFIG", path), ShouldBeNil)
			defer func() { _ = os.Unsetenv("MOLEHIT_CONFIG") }()

			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.TickIntervalMS, ShouldEqual, 50)
		})

		Convey("When the file path is bogus", func() {
			So(os.Setenv("MOLEHIT_CONFIG", "/does/not/exist.yaml"), ShouldBeNil)
			defer func() { _ = os.Unsetenv("MOLEHIT_CONFIG") }()

			_, err := config.Load(context.Background())
			So(err, ShouldNotBeNil)
			So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
		})

		Convey("When validation fails", func() {
			So(os.Setenv("MOLEHIT_TICK_INTERVAL_MS", "0"), ShouldBeNil)
			defer func() { _ = os.Unsetenv("MOLEHIT_TICK_INTERVAL_MS") }()

			_, err := config.Load(context.Background())
			So(err, ShouldNotBeNil)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
