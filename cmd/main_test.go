package main

import (
	"context"
	"os"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/rollcall/internal/app"
	"github.com/okian/rollcall/internal/config"
	"github.com/okian/rollcall/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "text"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestConfigFromEnvironment(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		t.Setenv("ROLLCALL_API__ADDR", ":9090")
		t.Setenv("ROLLCALL_STORAGE__DRIVER", "memory")
		t.Setenv("ROLLCALL_RECOGNITION__WORKER_COUNT", "2")

		convey.Convey("Load applies them over the defaults", func() {
			cfg, err := config.Load()
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.API.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.Storage.Driver, convey.ShouldEqual, config.DriverMemory)
			convey.So(cfg.Recognition.WorkerCount, convey.ShouldEqual, 2)
		})
	})
}

func TestServiceLifecycleFromConfig(t *testing.T) {
	convey.Convey("Given a memory-backed configuration", t, func() {
		cfg := config.New()
		cfg.Storage.Driver = config.DriverMemory
		cfg.Camera.Enabled = false

		convey.Convey("The service starts and stops cleanly", func() {
			ctx := context.Background()
			svc := app.New(cfg)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			convey.So(svc.Snapshot(ctx).Running, convey.ShouldBeTrue)
			svc.Stop(ctx)
			convey.So(svc.Snapshot(ctx).Running, convey.ShouldBeFalse)
		})
	})
}
