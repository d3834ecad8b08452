package main

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/config"
	"github.com/md-rashed-zaman/salonqueue/libs/db"
	"github.com/md-rashed-zaman/salonqueue/libs/events"
	"github.com/md-rashed-zaman/salonqueue/libs/grpcx"
	"github.com/md-rashed-zaman/salonqueue/libs/httpx"
	"github.com/md-rashed-zaman/salonqueue/libs/kafkax"
	"github.com/md-rashed-zaman/salonqueue/libs/notify"
	otelx "github.com/md-rashed-zaman/salonqueue/libs/otel"
	"github.com/md-rashed-zaman/salonqueue/libs/runtime"
	"github.com/md-rashed-zaman/salonqueue/services/notification-service/internal/consumer"
	"github.com/md-rashed-zaman/salonqueue/services/notification-service/internal/delivery"
	"github.com/md-rashed-zaman/salonqueue/services/notification-service/internal/inbox"
	"github.com/md-rashed-zaman/salonqueue/services/notification-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.Load()
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8086")
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
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(config.Int("DB_MAX_CONNS", 5))})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	brokers := config.String("KAFKA_BROKERS", "")
	notifier := notify.NewNotifier(notify.SenderFromEnv(logger), logger)
	confirmations := delivery.NewConfirmations(notifier, storage.NewRepository(pool), logger)

	eventConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
		Brokers: brokers,
		GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
		Topic:   config.String("KAFKA_CONSUME_TOPIC", events.AppointmentBooked),
	}, confirmations.Handle)
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	health := grpcx.NewHealthServer(service)
	go func() {
		if err := health.Serve(":"+config.String("GRPC_PORT", "9086"), logger); err != nil {
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
