package main

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/config"
	"github.com/md-rashed-zaman/salonqueue/libs/grpcx"
	"github.com/md-rashed-zaman/salonqueue/libs/httpx"
	"github.com/md-rashed-zaman/salonqueue/libs/internalapi"
	otelx "github.com/md-rashed-zaman/salonqueue/libs/otel"
	"github.com/md-rashed-zaman/salonqueue/libs/redisx"
	"github.com/md-rashed-zaman/salonqueue/libs/runtime"
	"github.com/md-rashed-zaman/salonqueue/services/scheduler-service/internal/jobs"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.Load()
	service := config.String("SERVICE_NAME", "scheduler-service")
	port, err := config.Port("PORT", "8087")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	bookingURL, err := config.RequiredString("BOOKING_URL")
	if err != nil {
		panic(err)
	}
	token, err := config.RequiredString("REMINDER_TOKEN")
	if err != nil {
		panic(err)
	}

	rdb, err := redisx.Open(ctx, config.String("REDIS_URL", ""))
	if err != nil {
		logger.Warn("redis unavailable; every replica will trigger sweeps", "err", err)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	trigger := internalapi.NewRemindersClient(bookingURL, token, config.Duration("REMINDER_TIMEOUT", 2*time.Minute))
	worker := jobs.NewWorker(trigger, redisx.NewLocker(rdb), logger, jobs.WorkerConfig{
		Interval:   config.Duration("REMINDER_INTERVAL", time.Hour),
		RunOnStart: config.Bool("REMINDER_RUN_ON_START", false),
	})
	go worker.Run(ctx)

	var checks []runtime.ReadyCheck
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: redisx.ReadyCheck(rdb)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "scheduler")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	health := grpcx.NewHealthServer(service)
	go func() {
		if err := health.Serve(":"+config.String("GRPC_PORT", "9087"), logger); err != nil {
			logger.Error("grpc health server error", "err", err)
		}
	}()

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	health.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	health.Stop()
	logger.Info("http server stopped")
}
