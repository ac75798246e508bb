package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/internal/app"
	"github.com/jwalitptl/hospital-api/internal/config"
	"github.com/jwalitptl/hospital-api/internal/email"
	"github.com/jwalitptl/hospital-api/internal/handler/health"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	"github.com/jwalitptl/hospital-api/internal/repository/postgres"
	"github.com/jwalitptl/hospital-api/internal/service/notification"
	"github.com/jwalitptl/hospital-api/pkg/lock"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/messaging"
	"github.com/jwalitptl/hospital-api/pkg/messaging/redis"
	"github.com/jwalitptl/hospital-api/pkg/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
	})
	appLogger.Install()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]health.Checker{}

	// Initialize storage
	var store repository.Store
	switch cfg.Server.Storage {
	case "memory":
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		store = memory.New()
	default:
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if cfg.Database.Migrate {
			applied, err := postgres.Migrate(ctx, db)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to run migrations")
			}
			log.Info().Int("applied", applied).Msg("migrations complete")
		}
		checks["postgres"] = db.PingContext
		store = postgres.NewStore(db)
	}

	// Slot lock
	var locker lock.Locker
	if cfg.Booking.SlotLock && cfg.Redis.URL != "" {
		client, err := redis.NewClient(ctx, cfg.Redis.ToBrokerConfig())
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, falling back to in-process slot lock")
		} else {
			defer client.Close()
			locker = lock.NewRedisLocker(client, "hospital:")
			checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}

	application, err := app.New(cfg, app.Deps{
		Store:  store,
		Locker: locker,
		Checks: checks,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}
	if err := application.Seed(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to seed accounts")
	}

	// Memory storage has no separate worker process, so deliver events here
	if cfg.Server.Storage == "memory" && cfg.Outbox.Enabled {
		if err := startLocalDelivery(ctx, cfg, store, application, appLogger); err != nil {
			log.Fatal().Err(err).Msg("failed to start outbox delivery")
		}
	}

	// Create server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           application.Router.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("storage", cfg.Server.Storage).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server exited properly")
}

func startLocalDelivery(ctx context.Context, cfg *config.Config, store repository.Store, application *app.App, l *logger.Logger) error {
	broker := messaging.NewLocal(0)
	go func() {
		<-ctx.Done()
		broker.Close()
	}()

	processor, err := worker.NewOutboxProcessor(store.Outbox(), broker, cfg.Outbox.ToWorkerConfig(), l, application.Metrics)
	if err != nil {
		return err
	}
	notifier := notification.NewService(email.NewSMTPService(cfg.SMTP), broker, cfg.Outbox.Channel)
	go func() {
		if err := notifier.Run(ctx); err != nil {
			log.Error().Err(err).Msg("notification consumer stopped")
		}
	}()
	go processor.Start(ctx)
	return nil
}
