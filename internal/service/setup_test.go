package service

import (
	"fmt"
	"strconv"
	"testing"

	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/config"
	"github.com/qs3c/gigmarket_server/internal/pkg/payment"
	"github.com/qs3c/gigmarket_server/internal/repository"
	"github.com/qs3c/gigmarket_server/internal/testutil"
)

type testEnv struct {
	db            *gorm.DB
	cfg           *config.Config
	gateway       *payment.Mock
	notifier      *NotificationService
	subscriptions *SubscriptionService
	orders        *OrderService
	gigs          *GigService
	webhooks      *WebhookService
}

func testConfig() *config.Config {
	return &config.Config{
		Webhook: config.WebhookConfig{
			Gateway: "razorpay",
			Secret:  "whsec_test",
		},
		Subscription: config.SubscriptionConfig{
			Plans: map[string]config.PlanConfig{
				"TIER1": {MonthlyPrice: 9.99, YearlyPrice: 99, MaxGigs: 2, MonthlyPlanID: "plan_tier1_monthly", YearlyPlanID: "plan_tier1_yearly"},
				"TIER2": {MonthlyPrice: 19.99, YearlyPrice: 199, MaxGigs: 0, MonthlyPlanID: "plan_tier2_monthly", YearlyPlanID: "plan_tier2_yearly"},
			},
		},
		Order:        config.OrderConfig{PlatformFeeRate: 0.1},
		Notification: config.NotificationConfig{RetentionDays: 90},
	}
}

func setupTestEnv(t *testing.T) (*testEnv, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testConfig()

	subRepo := repository.NewSubscriptionRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	gigRepo := repository.NewGigRepository(db)

	gateway := payment.NewMock("razorpay")
	notifier := NewNotificationService(repository.NewNotificationRepository(db), cfg)
	subscriptions := NewSubscriptionService(db, subRepo, txRepo, gateway, notifier, cfg)

	env := &testEnv{
		db:            db,
		cfg:           cfg,
		gateway:       gateway,
		notifier:      notifier,
		subscriptions: subscriptions,
		orders: NewOrderService(db, repository.NewOrderRepository(db), gigRepo,
			repository.NewReviewRepository(db), notifier, cfg),
		gigs:     NewGigService(gigRepo, subscriptions, cfg),
		webhooks: NewWebhookService(subscriptions, repository.NewWebhookEventRepository(db), cfg),
	}

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return env, cleanup
}

func chargePayload(subID, planID, paymentID string, amount int64, status string) []byte {
	return []byte(fmt.Sprintf(`{"event":"subscription.charged","payload":{"subscription":{"entity":{"id":%q,"plan_id":%q}},"payment":{"entity":{"id":%q,"amount":%d,"status":%q}}}}`,
		subID, planID, paymentID, amount, status))
}

func paymentPayload(event, paymentID, status string, amount int64, notes string) []byte {
	return []byte(fmt.Sprintf(`{"event":%q,"payload":{"payment":{"entity":{"id":%q,"amount":%d,"status":%q,"error_description":"card declined","notes":%s}}}}`,
		event, paymentID, amount, status, notes))
}

func subscriptionPayload(event, subID string) []byte {
	return []byte(fmt.Sprintf(`{"event":%q,"payload":{"subscription":{"entity":{"id":%q}}}}`, event, subID))
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
