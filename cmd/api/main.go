package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finwise/internal/config"
	"finwise/internal/database"
	"finwise/internal/events"
	"finwise/internal/identity"
	"finwise/internal/logger"
	"finwise/internal/server"
	"finwise/internal/services"
	"finwise/internal/validator"
)

// @title           FinWise API
// @version         1.0
// @description     FinWise is a personal finance tracker: categories, income and expense transactions, and a spending dashboard.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 10 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	publisher, err := newPublisher(appConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warnw("failed to close event publisher", "error", err)
		}
	}()

	if appConfig.GoogleClientID == "" {
		log.Warn("GOOGLE_CLIENT_ID not set; Google sign-in is disabled")
	}

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	router := server.NewRouter(server.Dependencies{
		Users:        services.NewUserService(db),
		Categories:   services.NewCategoryService(db),
		Transactions: services.NewTransactionService(db),
		Summary:      services.NewSummaryService(db),
		Audit:        services.NewAuditService(db, publisher),
		Verifier:     identity.NewGoogleVerifier(appConfig.GoogleClientID),
		CORSOrigin:   appConfig.CORSOrigin,
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting FinWise API server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// newPublisher connects to RabbitMQ when AMQP_URL is set and falls back to
// dropping audit events otherwise.
func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		logger.Get().Info("AMQP_URL not set; audit events are not published")
		return events.NopPublisher{}, nil
	}
	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, fmt.Errorf("failed to connect event publisher: %w", err)
	}
	return publisher, nil
}
