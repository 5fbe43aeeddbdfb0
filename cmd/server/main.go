// Package main runs the webinar insight HTTP server with WebSocket progress
// streaming and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumenlabs/webinsight/config"
	"github.com/lumenlabs/webinsight/internal/auth"
	"github.com/lumenlabs/webinsight/internal/credentials"
	"github.com/lumenlabs/webinsight/internal/engagement"
	"github.com/lumenlabs/webinsight/internal/middleware"
	"github.com/lumenlabs/webinsight/internal/provider"
	"github.com/lumenlabs/webinsight/internal/realtime"
	"github.com/lumenlabs/webinsight/internal/sync"
	"github.com/lumenlabs/webinsight/internal/synclog"
	"github.com/lumenlabs/webinsight/internal/webinars"
	"github.com/lumenlabs/webinsight/pkg/database"
	"github.com/lumenlabs/webinsight/pkg/queue"
	"github.com/lumenlabs/webinsight/pkg/redis"
	"github.com/lumenlabs/webinsight/pkg/response"
	"github.com/lumenlabs/webinsight/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.RecordingsBucket != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			RecordingsBucket:     cfg.AWS.RecordingsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	encryptor, err := credentials.NewEncryptor(cfg.Crypto.CredentialsKey)
	if err != nil {
		logger.Fatal("credentials encryptor", zap.Error(err))
	}
	credsRepo := credentials.NewRepository(pool, encryptor)
	credsHandler := credentials.NewHandler(credsRepo)

	// Sync pipeline
	providerClient := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.Timeout, logger)
	syncCfg := sync.Config{
		APICallTimeout:         cfg.Sync.APICallTimeout,
		ProcessingTimeLimit:    cfg.Sync.ProcessingTimeLimit,
		BatchSize:              cfg.Sync.BatchSize,
		BatchDelay:             cfg.Sync.BatchDelay,
		MaxConsecutiveFailures: cfg.Sync.MaxConsecutiveFailures,
	}
	clock := sync.SystemClock{}

	webinarRepo := webinars.NewRepository(pool)
	historyRepo := synclog.NewRepository(pool)
	historyHandler := synclog.NewHandler(historyRepo)

	detector := sync.NewDetector(clock)
	fetcher := sync.NewPastDataFetcher(providerClient, cfg.Sync.APICallTimeout, logger)
	collector := sync.NewCollector(providerClient, clock, logger)
	enhancer := sync.NewEnhancer(detector, fetcher, syncCfg, clock, logger)
	upserter := sync.NewUpsertEngine(webinarRepo, nil, logger)
	instanceSyncer := sync.NewInstanceSyncer(providerClient, detector, fetcher, webinarRepo, nil, logger)
	orchestrator := sync.NewOrchestrator(providerClient, collector, enhancer, upserter, instanceSyncer,
		webinarRepo, historyRepo, hub, syncCfg, clock, logger)

	jobQueue := queue.New(rdb.Client, logger)
	webinarHandler := webinars.NewHandler(orchestrator, webinarRepo, credsRepo, jobQueue, rdb.Client,
		cfg.Sync.MinSyncInterval, logger)

	engagementRepo := engagement.NewRepository(pool)
	engagementHandler := engagement.NewHandler(engagementRepo, s3Client, logger)

	jwtValidate := func(token string) (string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", err
		}
		return claims.UserID.String(), nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Protected API (JWT required)
	api := router.Group("/api")
	api.Use(middleware.JWT(jwtService))
	{
		// Provider credentials
		api.PUT("/credentials", credsHandler.Save)
		api.GET("/credentials", credsHandler.Status)

		// Webinar sync and cache
		api.POST("/webinars/sync", webinarHandler.SyncAll)
		api.GET("/webinars", webinarHandler.List)
		api.POST("/webinars/:id/sync", webinarHandler.SyncOne)
		api.GET("/webinars/:id/instances", webinarHandler.GetInstances)

		// Engagement data per webinar
		api.GET("/webinars/:id/participants", engagementHandler.ListParticipants)
		api.GET("/webinars/:id/chat", engagementHandler.ListChat)
		api.GET("/webinars/:id/polls", engagementHandler.ListPolls)
		api.GET("/webinars/:id/questions", engagementHandler.ListQuestions)
		api.GET("/webinars/:id/registrants", engagementHandler.ListRegistrants)
		api.GET("/webinars/:id/panelists", engagementHandler.ListPanelists)
		api.GET("/webinars/:id/recordings", engagementHandler.ListRecordings)

		// Deferred engagement pulls and the audit trail
		api.POST("/sync/chunked", webinarHandler.ChunkedSync)
		api.GET("/sync/history", historyHandler.List)
	}

	// WebSocket (token in query; browsers cannot set headers on dials)
	router.GET("/ws/sync-progress", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
