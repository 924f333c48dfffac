package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpAdapter "github.com/corkboard/realtime-backend/internal/adapters/primary/http"
	mw "github.com/corkboard/realtime-backend/internal/adapters/primary/http/middleware"
	"github.com/corkboard/realtime-backend/internal/adapters/secondary/postgres"
	"github.com/corkboard/realtime-backend/internal/auth"
	"github.com/corkboard/realtime-backend/internal/config"
	"github.com/corkboard/realtime-backend/internal/core/events"
	"github.com/corkboard/realtime-backend/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Database Pool (read-only access to the board database)
	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	// The bus is the single broadcast point for the whole process;
	// every handler receives this one instance.
	bus := events.NewBus(events.Config{
		MaxConnsPerUser:    cfg.Realtime.MaxConnsPerUser,
		MaxConnsPerProject: cfg.Realtime.MaxConnsPerProject,
	}, logger)

	// 5. Initialize Rate Limiter (publish and admin routes only)
	var rateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
	}

	// 6. Dependency Injection
	errorHandler := httpAdapter.NewErrorHandler(logger)
	resolver := postgres.NewMembershipRepository(pool)

	streamHandler := httpAdapter.NewStreamHandler(bus, resolver, errorHandler, cfg, logger)
	publishHandler := httpAdapter.NewPublishHandler(bus, errorHandler, logger)
	adminHandler := httpAdapter.NewAdminHandler(bus, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, bus, cfg.App.Version)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))

	// Browser EventSource clients connect cross-origin from the board UI.
	allowedOrigins := cfg.CORS.AllowedOrigins
	if len(allowedOrigins) == 0 && cfg.IsDevelopment() {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))

			// Event streams
			r.Get("/projects/{projectID}/events", streamHandler.HandleProjectStream)
			r.Get("/events/{channel}", streamHandler.HandleGlobalStream)

			// Service-scoped routes
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireServiceScope)
				if rateLimiter != nil {
					r.Use(rateLimiter.Middleware)
				}
				r.Post("/internal/events", publishHandler.HandlePublish)
				r.Get("/admin/stats", adminHandler.HandleStats)
			})
		})
	})

	// 8. Start Server with Graceful Shutdown
	//
	// WriteTimeout stays zero: event streams are open-ended responses
	// and a write deadline would sever every stream at the timeout.
	//
	// baseCtx is the parent of every request context. Shutdown never
	// cancels in-flight requests, and an open stream keeps its
	// connection active forever, so on shutdown we cancel baseCtx
	// first: streams run their teardown, the connections go idle, and
	// Shutdown can drain them.
	baseCtx, closeStreams := context.WithCancel(context.Background())
	defer closeStreams()

	srv := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Tear down open streams before draining connections.
	closeStreams()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}
