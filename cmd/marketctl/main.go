package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/config"
	"github.com/qs3c/gigmarket_server/internal/database"
	"github.com/qs3c/gigmarket_server/internal/pkg/logger"
	"github.com/qs3c/gigmarket_server/internal/pkg/payment"
	"github.com/qs3c/gigmarket_server/internal/pkg/pubsub"
	"github.com/qs3c/gigmarket_server/internal/pkg/queue"
	"github.com/qs3c/gigmarket_server/internal/repository"
	"github.com/qs3c/gigmarket_server/internal/service"
)

var configPath string

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "marketctl",
		Short:         "Gig market maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "config file path")

	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(purgeCmd())
	rootCmd.AddCommand(signCmd())
	return rootCmd
}

// app 维护命令共用的服务
type app struct {
	db            *gorm.DB
	notifier      *service.NotificationService
	webhooks      *service.WebhookService
	closeResource func()
}

func (a *app) Close() {
	a.closeResource()
}

func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	notifier := service.NewNotificationService(repository.NewNotificationRepository(db), cfg)
	closers := []func(){func() { database.Close(db) }}

	// Redis 不可用时只写站内通知
	if rdb, err := database.NewRedis(&cfg.Redis); err != nil {
		logger.WithSource("marketctl").WithError(err).Warn("Redis unavailable, notifications will not be pushed")
	} else {
		notifier.WithPublisher(pubsub.NewPublisher(rdb)).WithEmailQueue(queue.NewQueue(rdb, cfg.Queue.EmailQueue))
		closers = append(closers, func() { rdb.Close() })
	}

	subscriptions := service.NewSubscriptionService(db,
		repository.NewSubscriptionRepository(db),
		repository.NewTransactionRepository(db),
		payment.NewMock(cfg.Webhook.GatewayName()),
		notifier, cfg)

	return &app{
		db:       db,
		notifier: notifier,
		webhooks: service.NewWebhookService(subscriptions, repository.NewWebhookEventRepository(db), cfg),
		closeResource: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}
