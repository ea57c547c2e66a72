package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/config"
	"github.com/qs3c/gigmarket_server/internal/api/middleware"
	"github.com/qs3c/gigmarket_server/internal/model"
	"github.com/qs3c/gigmarket_server/internal/pkg/payment"
	"github.com/qs3c/gigmarket_server/internal/pkg/response"
	"github.com/qs3c/gigmarket_server/internal/repository"
	"github.com/qs3c/gigmarket_server/internal/service"
	"github.com/qs3c/gigmarket_server/internal/testutil"
)

const testWebhookSecret = "whsec_test"

func init() {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}

type handlerEnv struct {
	db            *gorm.DB
	cfg           *config.Config
	gateway       *payment.Mock
	notifier      *service.NotificationService
	subscriptions *service.SubscriptionService
	orders        *service.OrderService
	gigs          *service.GigService
	webhooks      *service.WebhookService
	auth          *service.AuthService
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:      "test-secret-key",
			ExpireHours: 24,
		},
		Webhook: config.WebhookConfig{
			Gateway:         "razorpay",
			Secret:          testWebhookSecret,
			SignatureHeader: "X-Razorpay-Signature",
			MaxBodyBytes:    4096,
		},
		Subscription: config.SubscriptionConfig{
			Plans: map[string]config.PlanConfig{
				"TIER1": {MonthlyPrice: 9.99, YearlyPrice: 99, MaxGigs: 1, MonthlyPlanID: "plan_tier1_monthly", YearlyPlanID: "plan_tier1_yearly"},
			},
		},
		Order:        config.OrderConfig{PlatformFeeRate: 0.1},
		Notification: config.NotificationConfig{RetentionDays: 90},
	}
}

func setupHandlerEnv(t *testing.T) (*handlerEnv, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testConfig()

	subRepo := repository.NewSubscriptionRepository(db)
	gigRepo := repository.NewGigRepository(db)
	gateway := payment.NewMock("razorpay")
	notifier := service.NewNotificationService(repository.NewNotificationRepository(db), cfg)
	subscriptions := service.NewSubscriptionService(db, subRepo, repository.NewTransactionRepository(db), gateway, notifier, cfg)

	env := &handlerEnv{
		db:            db,
		cfg:           cfg,
		gateway:       gateway,
		notifier:      notifier,
		subscriptions: subscriptions,
		orders: service.NewOrderService(db, repository.NewOrderRepository(db), gigRepo,
			repository.NewReviewRepository(db), notifier, cfg),
		gigs:     service.NewGigService(gigRepo, subscriptions, cfg),
		webhooks: service.NewWebhookService(subscriptions, repository.NewWebhookEventRepository(db), cfg),
		auth:     service.NewAuthService(repository.NewUserRepository(db), cfg),
	}

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return env, cleanup
}

// asUser 模拟 Auth 中间件写入的上下文
func asUser(user *model.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, user.ID)
		c.Set(middleware.RoleKey, user.Role)
		c.Next()
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// decodeData 将响应 data 解析到 out
func decodeData(t *testing.T, resp response.Response, out interface{}) {
	t.Helper()

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}
