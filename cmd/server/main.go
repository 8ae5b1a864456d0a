package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	goredis "github.com/redis/go-redis/v9"

	"ridebot/internal/app"
	"ridebot/internal/config"
	"ridebot/internal/fare"
	"ridebot/internal/handler"
	"ridebot/internal/logging"
	internalRedis "ridebot/internal/redis"
	"ridebot/internal/repository/postgres"
	"ridebot/internal/route"
	"ridebot/internal/service"
	"ridebot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so datastores can be instrumented.
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", "error", err)
		} else {
			logger.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	server, err := wireServer(db, redisClient, nrApp, cfg, logger)
	if err != nil {
		logger.Error("failed to wire server", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *goredis.Client, nrApp *newrelic.Application, cfg *config.Config, logger *slog.Logger) (*http.Server, error) {
	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		return nil, err
	}

	// Redis stores.
	dedupStore := internalRedis.NewDedupStore(redisClient, cfg.Booking.DedupRetention)
	profileStore := internalRedis.NewProfileStore(redisClient)
	promptStore := internalRedis.NewPromptStore(redisClient)

	// Repositories.
	tripRepo := postgres.NewTripRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	bookingStore := postgres.NewBookingStore(db)

	// External collaborators.
	routeProvider, err := route.NewLocationProvider(cfg.Location)
	if err != nil {
		return nil, err
	}
	notifier := telegram.NewClient(cfg.Telegram)

	// Services.
	fareCalc := fare.NewCalculator(cfg.Fare)
	lifecycleService := service.NewLifecycleService(tripRepo, promptStore, notifier, logger, loc)
	assignmentService := service.NewAssignmentService(
		tripRepo, promptStore, notifier, cfg.Drivers, lifecycleService, logger, loc)
	conversationService := service.NewConversationService(
		sessionRepo, tripRepo, bookingStore, routeProvider, fareCalc, profileStore, notifier,
		assignmentService, logger, loc, cfg.Booking.SessionIdleLimit, cfg.Booking.PickerDaysAhead)
	orchestrator := service.NewOrchestrator(
		dedupStore, conversationService, assignmentService, lifecycleService, logger)

	// Handlers.
	webhookHandler := handler.NewWebhookHandler(orchestrator)
	tripHandler := handler.NewTripHandler(assignmentService)

	router := app.NewRouter(app.RouterDeps{
		WebhookHandler: webhookHandler,
		TripHandler:    tripHandler,
		WebhookSecret:  cfg.Telegram.WebhookSecret,
		NewRelicApp:    nrApp,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
