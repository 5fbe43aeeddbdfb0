// Package main runs the background job worker (chunked engagement sync and
// recording mirroring to S3).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumenlabs/webinsight/config"
	"github.com/lumenlabs/webinsight/internal/credentials"
	"github.com/lumenlabs/webinsight/internal/engagement"
	"github.com/lumenlabs/webinsight/internal/provider"
	"github.com/lumenlabs/webinsight/internal/sync"
	"github.com/lumenlabs/webinsight/internal/synclog"
	"github.com/lumenlabs/webinsight/internal/worker"
	"github.com/lumenlabs/webinsight/pkg/database"
	"github.com/lumenlabs/webinsight/pkg/queue"
	"github.com/lumenlabs/webinsight/pkg/redis"
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
			logger.Warn("s3 disabled, mirror jobs will retry into the dead queue", zap.Error(err))
		}
	}

	encryptor, err := credentials.NewEncryptor(cfg.Crypto.CredentialsKey)
	if err != nil {
		logger.Fatal("credentials encryptor", zap.Error(err))
	}
	credsRepo := credentials.NewRepository(pool, encryptor)

	providerClient := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.Timeout, logger)
	engagementRepo := engagement.NewRepository(pool)
	historyRepo := synclog.NewRepository(pool)
	jobQueue := queue.New(rdb.Client, logger)

	syncer := sync.NewChunkedSyncer(providerClient, engagementRepo, jobQueue, historyRepo,
		cfg.Sync.APICallTimeout, logger)
	w := worker.New(syncer, engagementRepo, credsRepo, s3Client, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
