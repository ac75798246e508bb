package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/internal/config"
	"github.com/jwalitptl/hospital-api/internal/email"
	"github.com/jwalitptl/hospital-api/internal/handler/health"
	promHandler "github.com/jwalitptl/hospital-api/internal/handler/prometheus"
	"github.com/jwalitptl/hospital-api/internal/repository/postgres"
	"github.com/jwalitptl/hospital-api/internal/service/notification"
	cleanup "github.com/jwalitptl/hospital-api/internal/worker"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/messaging/redis"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
	"github.com/jwalitptl/hospital-api/pkg/worker"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Server.Storage != "postgres" {
		log.Fatal().Str("storage", cfg.Server.Storage).Msg("the worker reads the outbox from postgres")
	}

	// Initialize logger
	appLogger := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
	})
	appLogger.Install()
	workerLogger := appLogger.With("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		workerLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()
	outboxRepo := postgres.NewOutboxRepository(db)

	// Initialize Redis broker
	client, err := redis.NewClient(ctx, cfg.Redis.ToBrokerConfig())
	if err != nil {
		workerLogger.Fatal(err, "failed to connect to Redis")
	}
	m := metrics.NewMetrics(prometheus.DefaultRegisterer, "hospital")
	broker := redis.NewRedisBroker(client, workerLogger.Zerolog(), m)
	defer broker.Close()

	processor, err := worker.NewOutboxProcessor(outboxRepo, broker, cfg.Outbox.ToWorkerConfig(), appLogger, m)
	if err != nil {
		workerLogger.Fatal(err, "failed to create outbox processor")
	}
	cleaner := cleanup.NewOutboxCleanupWorker(outboxRepo, cfg.Outbox.RetentionDays, cfg.Outbox.CleanupInterval)
	notifier := notification.NewService(email.NewSMTPService(cfg.SMTP), broker, cfg.Outbox.Channel)

	srv := healthServer(cfg.Server.WorkerPort, map[string]health.Checker{
		"postgres": db.PingContext,
		"redis":    func(ctx context.Context) error { return client.Ping(ctx).Err() },
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			workerLogger.Error(err, "health server failed")
		}
	}()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleaner.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := notifier.Run(ctx); err != nil {
			workerLogger.Error(err, "notification consumer stopped")
		}
	}()
	workerLogger.Info("worker started", "channel", cfg.Outbox.Channel, "port", cfg.Server.WorkerPort)

	<-ctx.Done()
	workerLogger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		workerLogger.Error(err, "health server forced to shutdown")
	}
	wg.Wait()
}

func healthServer(port int, checks map[string]health.Checker) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(checks).RegisterRoutes(&engine.RouterGroup)
	promHandler.New(prometheus.DefaultGatherer).RegisterRoutes(engine)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
