package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/qs3c/gigmarket_server/config"
	"github.com/qs3c/gigmarket_server/internal/database"
	"github.com/qs3c/gigmarket_server/internal/pkg/email"
	"github.com/qs3c/gigmarket_server/internal/pkg/logger"
	"github.com/qs3c/gigmarket_server/internal/pkg/queue"
	"github.com/qs3c/gigmarket_server/internal/repository"
	"github.com/qs3c/gigmarket_server/internal/worker"
)

func main() {
	log := logger.WithSource("worker")

	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	// 初始化数据库
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect database")
	}
	defer database.Close(db)

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect redis")
	}
	defer rdb.Close()

	processor := worker.NewProcessor(
		repository.NewUserRepository(db),
		email.NewService(&cfg.Email),
		queue.NewQueue(rdb, cfg.Queue.EmailQueue),
	)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal")
		cancel()
	}()

	log.WithField("max_workers", cfg.Queue.MaxWorkers).Info("Email worker started")
	processor.Run(ctx, cfg.Queue.MaxWorkers)
	log.Info("Worker shutdown complete")
}
