// Package main is the entrypoint for the userdash admin console.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/userdash/userdash/internal/cache"
	"github.com/userdash/userdash/internal/config"
	"github.com/userdash/userdash/internal/dashboard"
	"github.com/userdash/userdash/internal/handler"
	"github.com/userdash/userdash/internal/metrics"
	"github.com/userdash/userdash/internal/middleware"
	"github.com/userdash/userdash/internal/observability"
	"github.com/userdash/userdash/internal/server"
	"github.com/userdash/userdash/internal/session"
	"github.com/userdash/userdash/internal/transport"
	"github.com/userdash/userdash/internal/web"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Tracing
	var shutdownTracer func(context.Context) error
	if cfg.TracingEnabled() {
		shutdownTracer, err = observability.InitTracer(ctx, cfg.OTelServiceName, cfg.OTelEndpoint)
		if err != nil {
			logger.Error("failed to init tracer", "error", err)
			os.Exit(1)
		}
		logger.Info("tracing enabled", "endpoint", cfg.OTelEndpoint)
	} else {
		observability.InstallPropagator()
	}

	// Metrics
	var (
		recorder metrics.Recorder = metrics.NewNoop()
		registry *prometheus.Registry
	)
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder = metrics.NewPrometheus(registry)
	}

	// Optional cache
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		logger.Info("connected to Redis")
	} else {
		logger.Warn("REDIS_URL not set, mutation rate limiting disabled")
	}

	// Remote user service
	client := transport.New(
		transport.Endpoints{
			List:    cfg.Endpoints.ListURL,
			GetByID: cfg.Endpoints.GetByIDURL,
			Create:  cfg.Endpoints.CreateURL,
			Update:  cfg.Endpoints.UpdateURL,
			Delete:  cfg.Endpoints.DeleteURL,
		},
		transport.WithHTTPClient(transport.NewHTTPClient(cfg.TransportTimeout)),
		transport.WithLogger(logger),
		transport.WithRecorder(recorder),
		transport.WithTracerProvider(otel.GetTracerProvider()),
	)

	// Sessions
	store := session.NewStore(
		func() *dashboard.Controller {
			return dashboard.New(client,
				dashboard.WithLogger(logger),
				dashboard.WithRecorder(recorder),
				dashboard.WithNotificationTTL(cfg.NotificationTTL),
			)
		},
		logger,
		recorder,
		session.WithIdleTimeout(cfg.SessionIdleTimeout),
		session.WithSweepInterval(cfg.SessionSweepInterval),
	)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go func() {
		if err := store.Run(sweepCtx); err != nil && sweepCtx.Err() == nil {
			logger.Error("session sweeper stopped", "error", err)
		}
	}()

	renderer, err := web.NewRenderer()
	if err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	r := setupRouter(renderer, store, cacheClient, registry, cfg, logger)

	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Registered first, stopped last.
	if shutdownTracer != nil {
		srv.OnShutdown("tracer", shutdownTracer)
	}
	if cacheClient != nil {
		srv.OnShutdown("cache", func(ctx context.Context) error {
			return cacheClient.Close()
		})
	}
	srv.OnShutdown("sessions", func(ctx context.Context) error {
		stopSweep()
		store.CloseAll()
		return nil
	})

	logger.Info("starting console",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"list_url", cfg.Endpoints.ListURL,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(observability.NewTraceHandler(h))
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	renderer *web.Renderer,
	store *session.Store,
	cacheClient *cache.Cache,
	registry *prometheus.Registry,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	h := handler.New(renderer, logger)
	dashboardHandler := handler.NewDashboardHandler(renderer, logger)

	var healthHandler *handler.HealthHandler
	if cacheClient != nil {
		healthHandler = handler.NewHealthHandler(cacheClient)
	} else {
		healthHandler = handler.NewHealthHandler(nil)
	}

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(otel.GetTracerProvider()))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger, cfg.IsDevelopment()))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      cfg.IsDevelopment(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Health endpoints (no session)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.StaticFS()))))

	rateLimitCfg := middleware.RateLimitConfig{
		Logger: logger,
		RPS:    cfg.RateLimitMutationRPS,
		Burst:  cfg.RateLimitMutationBurst,
	}
	if cacheClient != nil {
		rateLimitCfg.Limiter = cacheClient
		rateLimitCfg.Enabled = cfg.RateLimitEnabled
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	// Console routes, one dashboard per browser session
	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS(corsCfg))
		r.Use(middleware.Session(store, cfg.SessionCookieSecure))
		r.Use(middleware.RateLimitMutations(rateLimitCfg))

		dashboardHandler.Routes(r)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
