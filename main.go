package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"installhub/app"
	"installhub/config"
	"installhub/cron"
	"installhub/database"
	memoryRepo "installhub/database/repository/memory"
	"installhub/middleware"
	"installhub/routes"
	"installhub/services/cache"
	"installhub/services/notification"
	"installhub/services/payment"
	"installhub/services/tasks"
	"installhub/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	cfg := config.AppConfig

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Store.
	var repos *app.Repositories
	var mongoClient *mongo.Client
	if config.UseMemoryStore() {
		logger.Warn("main: using the in-memory store; data is lost on restart")
		repos = app.NewMemoryRepositories(memoryRepo.NewStore())
	} else {
		if err := database.InitDB(); err != nil {
			logger.Sugar().Fatalf("main: failed to connect to MongoDB: %v", err)
		}
		mongoClient = database.MongoClient
		repos = app.NewMongoRepositories(mongoClient, database.Database())

		ctx, cancel := context.WithTimeout(rootCtx, 30*time.Second)
		if err := repos.EnsureIndexes(ctx); err != nil {
			logger.Sugar().Fatalf("main: failed to ensure indexes: %v", err)
		}
		cancel()
	}

	// Shared cache and task queue.
	var redisClients []*redis.Client
	var settingsCache cache.SettingsCache = cache.NewLocalSettingsCache(cfg.SettingsCacheTTL)
	if err := utils.InitCache(); err != nil {
		logger.Warn("main: redis unavailable; settings cache is process-local", zap.Error(err))
	} else if utils.CacheClient != nil {
		settingsCache = cache.NewRedisSettingsCache(utils.CacheClient, cfg.SettingsCacheTTL)
		redisClients = append(redisClients, utils.CacheClient)
	}

	// Push notifications.
	var target notification.Notifier = notification.LogNotifier{Logger: logger.Named("notify")}
	if cfg.FirebaseCredentialsFile != "" {
		fcm, err := utils.NewFCMClient(rootCtx, cfg.FirebaseCredentialsFile)
		if err != nil {
			logger.Warn("main: firebase messaging disabled", zap.Error(err))
		} else if n, err := notification.NewFCMNotifier(fcm, repos.Profiles); err == nil {
			target = n
		}
	}
	notifier := notification.NewAsync(target, logger.Named("notify"))

	// Payments.
	stripe.Key = cfg.StripeKey
	var payments payment.PaymentVerifier
	if cfg.StripeKey != "" {
		payments = payment.NewStripeVerifier(cfg.StripeCurrency)
	}

	opts := app.Options{
		Cache:            settingsCache,
		Notifier:         notifier,
		Payments:         payments,
		MinRefundStars:   cfg.MinRefundStars,
		DeclineThreshold: cfg.DeclineThreshold,
		DeclineWindow:    cfg.DeclineWindow,
		VoucherValidity:  cfg.VoucherValidity,
		Logger:           logger,
	}

	var queueOpt *asynq.RedisClientOpt
	if utils.CacheClient != nil {
		queueOpt = &asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisQueueDB,
		}
	}
	var enqueuer *tasks.AsynqEnqueuer
	if queueOpt != nil {
		enqueuer = tasks.NewAsynqEnqueuer(*queueOpt, logger.Named("tasks"))
		opts.Enqueuer = enqueuer
	}

	svc := app.BuildServices(repos, opts)

	seedCtx, cancelSeed := context.WithTimeout(rootCtx, 10*time.Second)
	if _, err := svc.Refunds.SeedDefaults(seedCtx); err != nil {
		logger.Warn("main: failed to seed default refund settings", zap.Error(err))
	}
	cancelSeed()

	// Background work.
	var worker *cron.Worker
	if queueOpt != nil {
		worker = cron.NewWorker(*queueOpt, cfg.WorkerConcurrency, cfg.CleanupInterval, svc.Refunds, svc.Sweeper, logger.Named("worker"))
		if err := worker.Start(); err != nil {
			logger.Sugar().Fatalf("main: failed to start task worker: %v", err)
		}
	} else {
		go svc.Sweeper.RunEvery(rootCtx, cfg.CleanupInterval)
	}

	storeName := "mongo"
	if mongoClient == nil {
		storeName = "memory"
	}
	utils.StartHealthMonitor(rootCtx, storeName, redisClients, mongoClient)

	// Create the Gin router.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiterStore(cfg.MaxRequestsPerMin, cfg.RateLimitMaxClients, cfg.RateLimitIdleTTL)))

	routes.RegisterRoutes(router, svc.HandlerBundle(repos))

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	stop()

	if worker != nil {
		worker.Shutdown()
	}
	if enqueuer != nil {
		if err := enqueuer.Close(); err != nil {
			logger.Warn("main: failed to close task client", zap.Error(err))
		}
	}
	notifier.Wait()
	if mongoClient != nil {
		if err := database.CloseDB(ctx); err != nil {
			logger.Warn("main: failed to disconnect from MongoDB", zap.Error(err))
		}
	}
	_ = logger.Sync()
	logger.Sugar().Info("main: server stopped gracefully")
}
