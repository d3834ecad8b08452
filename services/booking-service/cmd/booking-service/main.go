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
	"github.com/md-rashed-zaman/salonqueue/libs/internalapi"
	"github.com/md-rashed-zaman/salonqueue/libs/kafkax"
	"github.com/md-rashed-zaman/salonqueue/libs/notify"
	otelx "github.com/md-rashed-zaman/salonqueue/libs/otel"
	"github.com/md-rashed-zaman/salonqueue/libs/outbox"
	"github.com/md-rashed-zaman/salonqueue/libs/redisx"
	"github.com/md-rashed-zaman/salonqueue/libs/runtime"
	"github.com/md-rashed-zaman/salonqueue/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/salonqueue/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/salonqueue/services/booking-service/internal/reminders"
	"github.com/md-rashed-zaman/salonqueue/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.Load()
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
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
		logger.Warn("redis unavailable; change feed stays in-process", "err", err)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	feed := changefeed.New(rdb, logger)

	brokers := config.String("KAFKA_BROKERS", "")
	outboxRepo := outbox.NewRepository()
	repo := storage.NewBookingRepository(pool, outboxRepo)
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go publisher.Run(ctx)

	bookings := booking.NewService(catalog.NewReader(pool), repo, feed, logger)
	notifier := notify.NewNotifier(notify.SenderFromEnv(logger), logger)
	sweeper := reminders.NewSweeper(storage.NewReminderRepository(pool), notifier, logger)

	bookingHandler := handlers.NewBookingHandler(bookings, logger)
	remindersHandler := handlers.NewRemindersHandler(sweeper, config.String("REMINDER_TOKEN_HASH", ""), logger)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: redisx.ReadyCheck(rdb)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)

	timeout := httpx.WithTimeout(config.Duration("HTTP_HANDLER_TIMEOUT", 10*time.Second))
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, timeout(h))
	}
	route("/api/v1/public/slots", bookingHandler.Slots)
	route("/api/v1/public/appointments", bookingHandler.Create)
	route("/api/v1/public/appointments/lookup", bookingHandler.Lookup)
	route("/api/v1/public/appointments/cancel", bookingHandler.Cancel)
	route("/api/v1/appointments", bookingHandler.List)
	route("/api/v1/appointments/status", bookingHandler.UpdateStatus)
	// The sweep sends one email per appointment and may outlive the API timeout.
	mux.HandleFunc(internalapi.RemindersRunPath, remindersHandler.Run)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	health := grpcx.NewHealthServer(service)
	go func() {
		if err := health.Serve(":"+config.String("GRPC_PORT", "9083"), logger); err != nil {
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
