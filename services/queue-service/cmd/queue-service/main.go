package main

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/catalog"
	"github.com/md-rashed-zaman/salonqueue/libs/changefeed"
	"github.com/md-rashed-zaman/salonqueue/libs/config"
	"github.com/md-rashed-zaman/salonqueue/libs/db"
	"github.com/md-rashed-zaman/salonqueue/libs/grpcx"
	"github.com/md-rashed-zaman/salonqueue/libs/httpx"
	otelx "github.com/md-rashed-zaman/salonqueue/libs/otel"
	"github.com/md-rashed-zaman/salonqueue/libs/redisx"
	"github.com/md-rashed-zaman/salonqueue/libs/runtime"
	"github.com/md-rashed-zaman/salonqueue/services/queue-service/internal/handlers"
	"github.com/md-rashed-zaman/salonqueue/services/queue-service/internal/storage"
	"github.com/md-rashed-zaman/salonqueue/services/queue-service/internal/walkin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.Load()
	service := config.String("SERVICE_NAME", "queue-service")
	port, err := config.Port("PORT", "8085")
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

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(config.Int("DB_MAX_CONNS", 10))})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	rdb, err := redisx.Open(ctx, config.String("REDIS_URL", ""))
	if err != nil {
		logger.Warn("redis unavailable; queue changes stay in-process", "err", err)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	queueService := walkin.NewService(
		catalog.NewReader(pool),
		storage.NewQueueRepository(pool),
		changefeed.New(rdb, logger),
		redisx.NewLocker(rdb),
		logger,
	)
	queueHandler := handlers.NewQueueHandler(queueService, logger)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: redisx.ReadyCheck(rdb)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)

	timeout := httpx.WithTimeout(config.Duration("HTTP_HANDLER_TIMEOUT", 10*time.Second))
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, timeout(h))
	}
	route("/api/v1/public/queue/join", queueHandler.Join)
	route("/api/v1/public/queue/board", queueHandler.Board)
	route("/api/v1/queue", queueHandler.Board)
	route("/api/v1/queue/call-next", queueHandler.CallNext)
	route("/api/v1/queue/status", queueHandler.Transition)
	mux.HandleFunc("/api/v1/public/queue/stream", queueHandler.Stream)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "queue")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	health := grpcx.NewHealthServer(service)
	go func() {
		if err := health.Serve(":"+config.String("GRPC_PORT", "9085"), logger); err != nil {
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
