package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/gigmarket_server/config"
	"github.com/qs3c/gigmarket_server/internal/api/handler"
	"github.com/qs3c/gigmarket_server/internal/api/middleware"
	"github.com/qs3c/gigmarket_server/internal/pkg/logger"
	"github.com/qs3c/gigmarket_server/internal/pkg/metrics"
)

type Router struct {
	authHandler         *handler.AuthHandler
	webhookHandler      *handler.WebhookHandler
	subscriptionHandler *handler.SubscriptionHandler
	gigHandler          *handler.GigHandler
	orderHandler        *handler.OrderHandler
	notificationHandler *handler.NotificationHandler
	websocketHandler    *handler.WebSocketHandler
	healthHandler       *handler.HealthHandler
	subscriptionChecker middleware.SubscriptionChecker
	rateLimiter         *middleware.IPRateLimiter
	cfg                 *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	webhookHandler *handler.WebhookHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	gigHandler *handler.GigHandler,
	orderHandler *handler.OrderHandler,
	notificationHandler *handler.NotificationHandler,
	websocketHandler *handler.WebSocketHandler,
	healthHandler *handler.HealthHandler,
	subscriptionChecker middleware.SubscriptionChecker,
	rateLimiter *middleware.IPRateLimiter,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:         authHandler,
		webhookHandler:      webhookHandler,
		subscriptionHandler: subscriptionHandler,
		gigHandler:          gigHandler,
		orderHandler:        orderHandler,
		notificationHandler: notificationHandler,
		websocketHandler:    websocketHandler,
		healthHandler:       healthHandler,
		subscriptionChecker: subscriptionChecker,
		rateLimiter:         rateLimiter,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handler.RegisterValidators(); err != nil {
		logger.Log.WithError(err).Error("Failed to register validators")
	}

	engine := gin.New()
	engine.Use(gin.LoggerWithWriter(logger.GinWriter()), gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/healthz", r.healthHandler.Healthz)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 网关回调不限流，签名即认证
	engine.POST("/api/v1/webhooks/payment", r.webhookHandler.Handle)

	api := engine.Group("/api/v1")
	api.Use(middleware.RateLimit(r.rateLimiter))
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
		}

		// 公开接口 - gig
		api.GET("/gigs", r.gigHandler.List)
		api.GET("/gigs/:id", r.gigHandler.Get)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 订阅
			subscription := authenticated.Group("/subscription")
			{
				subscription.GET("", r.subscriptionHandler.Current)
				subscription.POST("/checkout", r.subscriptionHandler.Checkout)
				subscription.POST("/cancel", r.subscriptionHandler.Cancel)
			}
			authenticated.GET("/transactions", r.subscriptionHandler.Transactions)

			// 发布 gig 需要有效订阅
			authenticated.POST("/gigs", middleware.RequireActiveSubscription(r.subscriptionChecker), r.gigHandler.Create)

			// 订单
			orders := authenticated.Group("/orders")
			{
				orders.POST("", r.orderHandler.Create)
				orders.GET("", r.orderHandler.List)
				orders.GET("/:id", r.orderHandler.Get)
				orders.POST("/:id/start", r.orderHandler.Start)
				orders.POST("/:id/progress", r.orderHandler.Progress)
				orders.POST("/:id/deliver", r.orderHandler.Deliver)
				orders.POST("/:id/revision", r.orderHandler.Revision)
				orders.POST("/:id/accept", r.orderHandler.Accept)
				orders.POST("/:id/cancel", r.orderHandler.Cancel)
				orders.POST("/:id/dispute", r.orderHandler.Dispute)
				orders.POST("/:id/refund", middleware.RequireAdmin(), r.orderHandler.Refund)
				orders.POST("/:id/review", r.orderHandler.Review)
				orders.POST("/:id/deliverables/upload", r.orderHandler.UploadDeliverable)
			}

			// 通知
			notifications := authenticated.Group("/notifications")
			{
				notifications.GET("", r.notificationHandler.List)
				notifications.GET("/unread-count", r.notificationHandler.UnreadCount)
				notifications.POST("/read-all", r.notificationHandler.MarkAllRead)
				notifications.POST("/:id/read", r.notificationHandler.MarkRead)
			}
		}
	}

	return engine
}
