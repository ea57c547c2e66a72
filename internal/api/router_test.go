package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/gigmarket_server/config"
	"github.com/qs3c/gigmarket_server/internal/api/handler"
	"github.com/qs3c/gigmarket_server/internal/api/middleware"
	"github.com/qs3c/gigmarket_server/internal/pkg/jwt"
	"github.com/qs3c/gigmarket_server/internal/pkg/payment"
	"github.com/qs3c/gigmarket_server/internal/pkg/response"
	"github.com/qs3c/gigmarket_server/internal/pkg/ws"
	"github.com/qs3c/gigmarket_server/internal/repository"
	"github.com/qs3c/gigmarket_server/internal/service"
	"github.com/qs3c/gigmarket_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) (*gin.Engine, *config.Config, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := &config.Config{
		JWT:       config.JWTConfig{Secret: "router-secret", ExpireHours: 1},
		Webhook:   config.WebhookConfig{Secret: "whsec_router", SignatureHeader: "X-Signature", MaxBodyBytes: 4096},
		RateLimit: config.RateLimitConfig{RPS: 100, Burst: 100},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}

	gigRepo := repository.NewGigRepository(db)
	notifier := service.NewNotificationService(repository.NewNotificationRepository(db), cfg)
	subscriptions := service.NewSubscriptionService(db, repository.NewSubscriptionRepository(db),
		repository.NewTransactionRepository(db), payment.NewMock("razorpay"), notifier, cfg)
	orders := service.NewOrderService(db, repository.NewOrderRepository(db), gigRepo,
		repository.NewReviewRepository(db), notifier, cfg)
	webhooks := service.NewWebhookService(subscriptions, repository.NewWebhookEventRepository(db), cfg)

	router := NewRouter(
		handler.NewAuthHandler(service.NewAuthService(repository.NewUserRepository(db), cfg)),
		handler.NewWebhookHandler(webhooks, cfg.Webhook),
		handler.NewSubscriptionHandler(subscriptions),
		handler.NewGigHandler(service.NewGigService(gigRepo, subscriptions, cfg)),
		handler.NewOrderHandler(orders, 0),
		handler.NewNotificationHandler(notifier),
		handler.NewWebSocketHandler(ws.NewHub(), cfg.JWT.Secret, cfg.CORS.AllowedOrigins),
		handler.NewHealthHandler(db),
		subscriptions,
		middleware.NewIPRateLimiter(cfg.RateLimit),
		cfg,
	)

	return router.Setup(), cfg, func() { testutil.CleanupTestDB(t, db) }
}

func doRequest(engine *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func responseCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func TestRouter_Healthz(t *testing.T) {
	engine, _, cleanup := setupRouter(t)
	defer cleanup()

	w := doRequest(engine, "GET", "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Metrics(t *testing.T) {
	engine, _, cleanup := setupRouter(t)
	defer cleanup()

	w := doRequest(engine, "GET", "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRouter_WebhookRequiresSignature(t *testing.T) {
	engine, _, cleanup := setupRouter(t)
	defer cleanup()

	w := doRequest(engine, "POST", "/api/v1/webhooks/payment", `{"event":"subscription.charged"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_AuthenticatedGroup(t *testing.T) {
	engine, cfg, cleanup := setupRouter(t)
	defer cleanup()

	w := doRequest(engine, "GET", "/api/v1/orders", "", "")
	assert.Equal(t, response.CodeAuthFailed, responseCode(t, w))

	token, err := jwt.GenerateToken(42, "user", cfg.JWT.Secret, 1)
	require.NoError(t, err)

	w = doRequest(engine, "GET", "/api/v1/orders", "", token)
	assert.Equal(t, response.CodeSuccess, responseCode(t, w))

	// 发布 gig 需要有效订阅
	w = doRequest(engine, "POST", "/api/v1/gigs", `{"title":"logo","price":10,"delivery_days":3}`, token)
	assert.Equal(t, response.CodeSubscriptionRequired, responseCode(t, w))

	// 退款仅管理员
	w = doRequest(engine, "POST", "/api/v1/orders/1/refund", "", token)
	assert.Equal(t, response.CodePermissionDenied, responseCode(t, w))
}
