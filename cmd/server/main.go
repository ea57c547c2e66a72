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

	"github.com/joho/godotenv"

	"github.com/qs3c/gigmarket_server/config"
	"github.com/qs3c/gigmarket_server/internal/api"
	"github.com/qs3c/gigmarket_server/internal/api/handler"
	"github.com/qs3c/gigmarket_server/internal/api/middleware"
	"github.com/qs3c/gigmarket_server/internal/database"
	"github.com/qs3c/gigmarket_server/internal/pkg/cron"
	"github.com/qs3c/gigmarket_server/internal/pkg/logger"
	"github.com/qs3c/gigmarket_server/internal/pkg/oss"
	"github.com/qs3c/gigmarket_server/internal/pkg/payment"
	"github.com/qs3c/gigmarket_server/internal/pkg/pubsub"
	"github.com/qs3c/gigmarket_server/internal/pkg/queue"
	"github.com/qs3c/gigmarket_server/internal/pkg/ws"
	"github.com/qs3c/gigmarket_server/internal/repository"
	"github.com/qs3c/gigmarket_server/internal/service"
)

func main() {
	log := logger.WithSource("server")

	// .env 可选
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if cfg.Webhook.Secret == "" {
		log.Warn("Webhook secret not configured, payment webhooks will be rejected")
	}

	// 初始化数据库
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect database")
	}
	defer database.Close(db)
	if err := database.AutoMigrate(db); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}
	log.WithField("driver", cfg.Database.Driver).Info("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect redis")
	}
	defer rdb.Close()
	log.Info("Redis connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化 WebSocket Hub，跨实例通知经 Redis 转发
	wsHub := ws.NewHub()
	go func() {
		if err := pubsub.NewSubscriber(rdb).Subscribe(ctx, wsHub.ForwardNotification); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Notification subscriber stopped")
		}
	}()

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	gigRepo := repository.NewGigRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	// 初始化 Service
	notifier := service.NewNotificationService(notificationRepo, cfg).
		WithPublisher(pubsub.NewPublisher(rdb)).
		WithEmailQueue(queue.NewQueue(rdb, cfg.Queue.EmailQueue))
	gateway := payment.NewMock(cfg.Webhook.GatewayName())
	authService := service.NewAuthService(userRepo, cfg)
	subscriptionService := service.NewSubscriptionService(db, subRepo, txRepo, gateway, notifier, cfg)
	gigService := service.NewGigService(gigRepo, subscriptionService, cfg)
	orderService := service.NewOrderService(db, orderRepo, gigRepo, reviewRepo, notifier, cfg)
	webhookService := service.NewWebhookService(subscriptionService, webhookEventRepo, cfg)

	// 初始化 OSS（可选）
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			log.WithError(err).Warn("Failed to init OSS client, deliverable upload disabled")
		} else {
			orderService.WithStorage(ossClient)
			log.Info("OSS client initialized")
		}
	}

	rateLimiter := middleware.NewIPRateLimiter(cfg.RateLimit)

	// 定时任务
	cronService := cron.NewService(notifier, webhookService, rateLimiter)
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Handler
	router := api.NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewWebhookHandler(webhookService, cfg.Webhook),
		handler.NewSubscriptionHandler(subscriptionService),
		handler.NewGigHandler(gigService),
		handler.NewOrderHandler(orderService, cfg.OSS.MaxUploadSize),
		handler.NewNotificationHandler(notifier),
		handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins),
		handler.NewHealthHandler(db),
		subscriptionService,
		rateLimiter,
		cfg,
	)
	engine := router.Setup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// 等待退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
	cancel()
	log.Info("Server stopped")
}
