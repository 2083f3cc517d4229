package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "github.com/tracked/backend/docs"
	"github.com/tracked/backend/internal/auth"
	"github.com/tracked/backend/internal/broadcast"
	"github.com/tracked/backend/internal/config"
	"github.com/tracked/backend/internal/database"
	"github.com/tracked/backend/internal/handlers"
	"github.com/tracked/backend/internal/logger"
	"github.com/tracked/backend/internal/metrics"
	"github.com/tracked/backend/internal/middleware"
	"github.com/tracked/backend/internal/policy"
	"github.com/tracked/backend/internal/repositories"
	"github.com/tracked/backend/internal/services"
	"go.uber.org/zap"
)

// @title Tracked Feedback API
// @version 1.0
// @description API for submitting, triaging and following student feedback

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token. Browsers may send the session_token cookie instead.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Tracked feedback service")

	// Connect to database
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := database.MigrateUp(db, cfg.MigrationsPath); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	hub := broadcast.NewHub(cfg.Stream.BufferSize, logger.Logger, m)
	tokenGenerator := auth.NewTokenGenerator(cfg.JWT.Secret, cfg.JWT.SessionExpiry)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db, logger.Logger)
	feedbackRepo := repositories.NewFeedbackRepository(db, logger.Logger)

	// Initialize services
	authService := services.NewAuthService(userRepo, tokenGenerator, logger.Logger)
	userService := services.NewUserService(userRepo, logger.Logger)
	feedbackService := services.NewFeedbackService(feedbackRepo, hub, m, logger.Logger)

	// Initialize handlers
	streamHandler := handlers.NewStatusStreamHandler(hub, cfg.Stream.HeartbeatInterval, logger.Logger)
	authHandler := handlers.NewAuthHandler(authService, logger.Logger, cfg.Server.CookieSecure)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackService, streamHandler, logger.Logger)
	userHandler := handlers.NewUserHandler(userService, logger.Logger)
	healthHandler := handlers.NewHealthHandler(db, logger.Logger)

	// Initialize auth middleware
	authMiddleware := middleware.AuthMiddleware(authService)
	superAdminMiddleware := middleware.RoleMiddleware(policy.CanManageUsers)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggerMiddleware(logger.Logger))
	r.Use(middleware.RecoveryMiddleware(logger.Logger))
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
	r.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))

	healthHandler.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	// Scope router to /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authMiddleware)
		feedbackHandler.RegisterRoutes(r, authMiddleware)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(superAdminMiddleware)
			userHandler.RegisterRoutes(r)
		})
	})

	// Start server. WriteTimeout does not cut live update streams; the stream handler clears its own deadline.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Close live update streams before waiting for in-flight requests
	srv.RegisterOnShutdown(hub.Close)

	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}
