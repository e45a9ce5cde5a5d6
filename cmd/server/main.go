package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daya/backend/internal/config"
	"github.com/daya/backend/internal/database"
	"github.com/daya/backend/internal/database/migrations"
	"github.com/daya/backend/internal/handlers"
	"github.com/daya/backend/internal/jobs"
	"github.com/daya/backend/internal/logger"
	"github.com/daya/backend/internal/middleware"
	"github.com/daya/backend/internal/queue"
	"github.com/daya/backend/internal/routes"
	"github.com/daya/backend/internal/services/campaign"
	"github.com/daya/backend/internal/services/dedup"
	"github.com/daya/backend/internal/services/lifecycle"
	"github.com/daya/backend/internal/services/matching"
	"github.com/daya/backend/internal/services/notification"
	"github.com/daya/backend/internal/services/qrcode"
	"github.com/daya/backend/internal/services/scan"
	"github.com/daya/backend/internal/services/selection"
	"github.com/daya/backend/internal/services/settlement"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Initialize configuration
	cfg := config.LoadConfig()

	log, err := logger.New(cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	// Initialize database
	db, err := database.InitDB(cfg.Database, log, cfg.Environment)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	if err := migrations.RunMigrations(db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Initialize Redis-backed job queue
	ctx := context.Background()
	redisClient, err := queue.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()
	redisQueue := queue.NewRedisQueue(redisClient)

	// Initialize services
	dispatcher := notification.NewQueueDispatcher(redisQueue)

	accounts, err := settlement.ResolvePlatformAccounts(ctx, db, cfg.Settlement.CompanyEmail)
	if err != nil {
		log.Fatal("failed to resolve platform accounts", zap.Error(err))
	}

	filter := dedup.NewFilter(dedup.Windows{
		Fingerprint: cfg.Settlement.FingerprintWindow,
		IP:          cfg.Settlement.IPWindow,
		IPBurst:     cfg.Settlement.IPBurstWindow,
	})
	settlementService := settlement.NewService(db, filter, accounts, dispatcher)
	selector := selection.NewSelector(db, cfg.Settlement.Location())
	lifecycleService := lifecycle.NewService(db, dispatcher, cfg.Settlement.VentureShareRate)
	matchingService := matching.NewService(db, dispatcher)
	campaignService := campaign.NewService(db)
	generator := qrcode.NewGenerator(db, cfg.QR.BaseURL, cfg.QR.SigningSecret)
	scanService := scan.NewService(db, selector, settlementService, generator)

	// Register job handlers and recurring jobs
	jobProcessor := queue.NewJobProcessor(redisQueue, cfg.Redis.Workers)
	jobs.RegisterAllJobHandlers(
		jobProcessor,
		jobs.NewMatchingJob(matchingService, jobs.NewRedsyncLocker(redisClient, cfg.Matching.LockTTL)),
		jobs.NewArtifactJob(generator),
	)

	scheduler := queue.NewScheduler()
	if err := jobs.ScheduleRecurringJobs(scheduler, redisQueue, jobProcessor,
		jobs.NewExhaustionSweep(db, dispatcher), cfg.Scheduler.SweepInterval, cfg.Redis.StaleJobTimeout); err != nil {
		log.Fatal("failed to schedule recurring jobs", zap.Error(err))
	}

	jobProcessor.Start()
	scheduler.Start()

	// Initialize handlers and router
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.ScansPerSecond, cfg.RateLimit.Burst)
	router := routes.NewRouter(cfg, log, routes.Handlers{
		Scan:     handlers.NewScanHandler(scanService),
		Campaign: handlers.NewCampaignHandler(campaignService, lifecycleService, matchingService, settlementService),
		DCD:      handlers.NewDCDHandler(db, selector),
		Health:   handlers.NewHealthHandler(db, redisQueue),
	}, rateLimiter)

	srv := startServer(router, cfg.Server, log)

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	scheduler.Stop()
	jobProcessor.Stop()
	rateLimiter.Stop()

	log.Info("server exiting")
}

// startServer starts the HTTP server
func startServer(router *gin.Engine, cfg config.ServerConfig, log *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	log.Info("server started", zap.String("port", cfg.Port))
	return srv
}
