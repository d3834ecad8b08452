package main

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/auth"
	"github.com/md-rashed-zaman/salonqueue/libs/config"
	"github.com/md-rashed-zaman/salonqueue/libs/grpcx"
	"github.com/md-rashed-zaman/salonqueue/libs/httpx"
	otelx "github.com/md-rashed-zaman/salonqueue/libs/otel"
	"github.com/md-rashed-zaman/salonqueue/libs/redisx"
	"github.com/md-rashed-zaman/salonqueue/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.Load()
	service := config.String("SERVICE_NAME", "gateway-service")
	port, err := config.Port("PORT", "8080")
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

	v := verifier{secret: config.String("JWT_SECRET", "")}
	if jwksURL := config.String("JWKS_URL", ""); jwksURL != "" {
		v.jwks = auth.NewJWKSClient(jwksURL, config.Duration("JWKS_CACHE_TTL", 5*time.Minute))
	}
	if v.secret == "" && v.jwks == nil {
		logger.Warn("neither JWT_SECRET nor JWKS_URL set; protected routes will reject every token")
	}

	rdb, err := redisx.Open(ctx, config.String("REDIS_URL", ""))
	if err != nil {
		logger.Warn("redis unavailable; falling back to in-memory rate limit", "err", err)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	var checks []runtime.ReadyCheck
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: redisx.ReadyCheck(rdb)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)
	registerRoutes(mux, routerConfig{
		Upstreams: map[string]*url.URL{
			upstreamBusiness: mustParseURL(config.String("BUSINESS_URL", "http://business-service:8082")),
			upstreamBooking:  mustParseURL(config.String("BOOKING_URL", "http://booking-service:8083")),
			upstreamQueue:    mustParseURL(config.String("QUEUE_URL", "http://queue-service:8085")),
		},
		Verifier:      v,
		Timeout:       config.Duration("REQUEST_TIMEOUT", 10*time.Second),
		ReminderToken: config.String("REMINDER_TOKEN", ""),
		Transport:     otelhttp.NewTransport(http.DefaultTransport),
		Logger:        logger,
	})

	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	var rateLimitMW httpx.Middleware
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute)
	} else {
		rateLimitMW = httpx.NewRateLimiter(limitPerMinute, time.Minute).Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id,X-Business-Id,Idempotency-Key")),
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           config.Duration("CORS_MAX_AGE", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, "gateway")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	health := grpcx.NewHealthServer(service)
	go func() {
		if err := health.Serve(":"+config.String("GRPC_PORT", "9080"), logger); err != nil {
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

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}
