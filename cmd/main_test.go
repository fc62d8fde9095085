package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	service "github.com/okian/readiness/internal/app"
	"github.com/okian/readiness/internal/config"
	"github.com/okian/readiness/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the assembled handler", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.WorkerCount = 2
		svc, err := service.New(ctx, service.WithConfig(cfg))
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		srv := httptest.NewServer(newHandler(ctx, svc, cfg))
		defer srv.Close()

		get := func(path string) (int, string) {
			resp, err := http.Get(srv.URL + path) //nolint:noctx // test helper
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			convey.So(err, convey.ShouldBeNil)
			return resp.StatusCode, string(body)
		}

		convey.Convey("Then every surface is mounted", func() {
			for _, path := range []string{"/", "/api-docs", "/openapi.yaml", "/healthz", "/stats", "/metrics", "/v1/zones"} {
				code, _ := get(path)
				convey.So(code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then unknown athletes are not found", func() {
			code, body := get("/v1/athletes/nobody/report")
			convey.So(code, convey.ShouldEqual, http.StatusNotFound)
			convey.So(body, convey.ShouldContainSubstring, "not_found")
		})

		convey.Convey("Then a malformed evaluation is rejected", func() {
			resp, err := http.Post(srv.URL+"/v1/evaluations", "application/json", strings.NewReader("[")) //nolint:noctx // test helper
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given an environment with a free port", t, func() {
		clearEnv()
		_ = os.Setenv("READINESS_ADDR", "127.0.0.1:0")
		_ = os.Setenv("READINESS_LOG_LEVEL", "error")
		_ = os.Setenv("READINESS_WORKER_COUNT", "2")
		_ = os.Setenv("READINESS_SHUTDOWN_TIMEOUT", "2s")
		defer clearEnv()

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx) }()
			time.Sleep(100 * time.Millisecond)
			cancel()

			convey.Convey("Then run shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})
	})

	convey.Convey("Given an invalid configuration", t, func() {
		clearEnv()
		_ = os.Setenv("READINESS_STORE_DRIVER", "postgres")
		defer clearEnv()

		convey.Convey("Then run fails before serving", func() {
			err := run(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "failed to load config")
		})
	})
}

func clearEnv() {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
}
