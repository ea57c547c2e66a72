package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/internal/model"
)

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := nextSeq()
	email := fmt.Sprintf("test_%d@example.com", n)
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	user := &model.User{
		Username:     fmt.Sprintf("testuser_%d", n),
		Email:        &email,
		PasswordHash: &passwordHash,
		Role:         model.RoleUser,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = &email
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = &hash
	}
}

// WithRole 设置角色
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// TestSubscription 创建测试订阅，默认 ACTIVE、月付、30 天后到期
func TestSubscription(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	now := time.Now()
	end := now.Add(30 * 24 * time.Hour)
	sub := &model.Subscription{
		UserID:        userID,
		Plan:          model.PlanTier1,
		Status:        model.SubscriptionActive,
		BillingCycle:  model.BillingMonthly,
		GatewayPlanID: "plan_tier1_monthly",
		StartDate:     now,
		EndDate:       &end,
		AutoRenew:     true,
		ExternalID:    fmt.Sprintf("sub_test_%d", nextSeq()),
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithSubscriptionStatus 设置订阅状态
func WithSubscriptionStatus(status model.SubscriptionStatus) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Status = status
	}
}

// WithExternalID 设置网关订阅 ID
func WithExternalID(id string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.ExternalID = id
	}
}

// WithEndDate 设置到期时间，nil 表示尚未计费
func WithEndDate(end *time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.EndDate = end
	}
}

// WithStartDate 设置开始时间
func WithStartDate(start time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.StartDate = start
	}
}

// WithBillingCycle 设置计费周期与网关套餐 ID
func WithBillingCycle(cycle model.BillingCycle, gatewayPlanID string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.BillingCycle = cycle
		s.GatewayPlanID = gatewayPlanID
	}
}

// WithPlan 设置套餐
func WithPlan(plan model.PlanTier) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Plan = plan
	}
}

// TestGig 创建测试 gig
func TestGig(t *testing.T, db *gorm.DB, sellerID int64, opts ...func(*model.Gig)) *model.Gig {
	t.Helper()

	gig := &model.Gig{
		SellerID:         sellerID,
		Title:            fmt.Sprintf("Test Gig %d", nextSeq()),
		Description:      "test gig",
		Price:            100,
		DeliveryDays:     3,
		RevisionsAllowed: 1,
		Status:           model.GigStatusActive,
	}

	for _, opt := range opts {
		opt(gig)
	}

	if err := db.Create(gig).Error; err != nil {
		t.Fatalf("Failed to create test gig: %v", err)
	}

	return gig
}

// WithDeliveryDays 设置交付天数
func WithDeliveryDays(days int) func(*model.Gig) {
	return func(g *model.Gig) {
		g.DeliveryDays = days
	}
}

// WithRevisionsAllowed 设置可修改次数
func WithRevisionsAllowed(n int) func(*model.Gig) {
	return func(g *model.Gig) {
		g.RevisionsAllowed = n
	}
}

// WithPrice 设置价格
func WithPrice(price float64) func(*model.Gig) {
	return func(g *model.Gig) {
		g.Price = price
	}
}

// TestOrder 创建测试订单，默认 PENDING
func TestOrder(t *testing.T, db *gorm.DB, buyerID int64, gig *model.Gig, opts ...func(*model.Order)) *model.Order {
	t.Helper()

	order := &model.Order{
		BuyerID:          buyerID,
		SellerID:         gig.SellerID,
		GigID:            gig.ID,
		Price:            gig.Price,
		PlatformFee:      gig.Price * 0.1,
		Requirements:     "test requirements",
		Status:           model.OrderPending,
		DueDate:          time.Now().Add(time.Duration(gig.DeliveryDays) * 24 * time.Hour),
		Deliverables:     model.StringArray{},
		RevisionsAllowed: gig.RevisionsAllowed,
	}

	for _, opt := range opts {
		opt(order)
	}

	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Failed to create test order: %v", err)
	}

	return order
}

// WithOrderStatus 设置订单状态
func WithOrderStatus(status model.OrderStatus) func(*model.Order) {
	return func(o *model.Order) {
		o.Status = status
	}
}

// WithProgress 设置进度
func WithProgress(progress int) func(*model.Order) {
	return func(o *model.Order) {
		o.Progress = progress
	}
}

// WithDeliverables 设置已交付文件
func WithDeliverables(refs ...string) func(*model.Order) {
	return func(o *model.Order) {
		o.Deliverables = refs
	}
}

// TestTransaction 创建测试账本记录
func TestTransaction(t *testing.T, db *gorm.DB, userID int64, externalID string, status model.TransactionStatus) *model.Transaction {
	t.Helper()

	tx := &model.Transaction{
		UserID:     userID,
		ExternalID: externalID,
		Gateway:    "razorpay",
		Amount:     99,
		Type:       model.TransactionPayment,
		Status:     status,
	}

	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}

	return tx
}

// TestNotification 创建测试通知
func TestNotification(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Notification)) *model.Notification {
	t.Helper()

	n := &model.Notification{
		UserID: userID,
		Title:  fmt.Sprintf("Notice %d", nextSeq()),
		Body:   "test notification",
		Type:   model.NotificationSystem,
	}

	for _, opt := range opts {
		opt(n)
	}

	if err := db.Create(n).Error; err != nil {
		t.Fatalf("Failed to create test notification: %v", err)
	}

	return n
}

// WithRead 设置已读
func WithRead(read bool) func(*model.Notification) {
	return func(n *model.Notification) {
		n.IsRead = read
	}
}

// WithCreatedAt 设置创建时间
func WithCreatedAt(at time.Time) func(*model.Notification) {
	return func(n *model.Notification) {
		n.CreatedAt = at
	}
}

// TestWebhookEvent 创建测试回调记录
func TestWebhookEvent(t *testing.T, db *gorm.DB, eventType, payload string, opts ...func(*model.WebhookEvent)) *model.WebhookEvent {
	t.Helper()

	e := &model.WebhookEvent{
		DeliveryID: fmt.Sprintf("00000000-0000-0000-0000-%012d", nextSeq()),
		Gateway:    "razorpay",
		EventType:  eventType,
		Payload:    payload,
		Attempts:   1,
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := db.Create(e).Error; err != nil {
		t.Fatalf("Failed to create test webhook event: %v", err)
	}

	return e
}

// WithProcessingError 设置处理失败原因
func WithProcessingError(msg string, attempts int) func(*model.WebhookEvent) {
	return func(e *model.WebhookEvent) {
		e.ProcessingError = msg
		e.Attempts = attempts
	}
}
