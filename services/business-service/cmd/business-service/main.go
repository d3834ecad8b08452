package main

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/catalog"
	"github.com/md-rashed-zaman/salonqueue/libs/config"
	"github.com/md-rashed-zaman/salonqueue/libs/db"
	"github.com/md-rashed-zaman/salonqueue/libs/grpcx"
	"github.com/md-rashed-zaman/salonqueue/libs/httpx"
	otelx "github.com/md-rashed-zaman/salonqueue/libs/otel"
	"github.com/md-rashed-zaman/salonqueue/libs/runtime"
	"github.com/md-rashed-zaman/salonqueue/services/business-service/internal/handlers"
	"github.com/md-rashed-zaman/salonqueue/services/business-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.Load()
	service := config.String("SERVICE_NAME", "business-service")
	port, err := config.Port("PORT", "8082")
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

	httpHandler := handlers.New(catalog.NewReader(pool), storage.NewRepository(pool), logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
	)
	mux.HandleFunc("/api/v1/admin/businesses", httpHandler.Businesses)
	mux.HandleFunc("/api/v1/business", httpHandler.Profile)
	mux.HandleFunc("/api/v1/business/settings", httpHandler.Settings)
	mux.HandleFunc("/api/v1/business/services", httpHandler.Services)
	mux.HandleFunc("/api/v1/business/staff", httpHandler.Staff)
	mux.HandleFunc("/api/v1/public/business", httpHandler.PublicBusiness)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(config.Duration("HTTP_HANDLER_TIMEOUT", 10*time.Second)),
	)
	handler = otelhttp.NewHandler(handler, "business")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	health := grpcx.NewHealthServer(service)
	go func() {
		if err := health.Serve(":"+config.String("GRPC_PORT", "9082"), logger); err != nil {
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
