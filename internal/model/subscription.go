package model

import (
	"strings"
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "PENDING"
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionInactive  SubscriptionStatus = "INACTIVE"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

type PlanTier string

const (
	PlanTier1 PlanTier = "TIER1"
	PlanTier2 PlanTier = "TIER2"
	PlanTier3 PlanTier = "TIER3"
)

func (t PlanTier) Valid() bool {
	switch t {
	case PlanTier1, PlanTier2, PlanTier3:
		return true
	}
	return false
}

type BillingCycle string

const (
	BillingMonthly BillingCycle = "MONTHLY"
	BillingYearly  BillingCycle = "YEARLY"
)

const (
	monthlyCycle = 30 * 24 * time.Hour
	yearlyCycle  = 365 * 24 * time.Hour
)

func (c BillingCycle) Valid() bool {
	return c == BillingMonthly || c == BillingYearly
}

// Length 计费周期长度
func (c BillingCycle) Length() time.Duration {
	if c == BillingYearly {
		return yearlyCycle
	}
	return monthlyCycle
}

// ResolveBillingCycle 优先使用存储的计费周期，缺失时才根据网关套餐 ID 推断
func ResolveBillingCycle(stored BillingCycle, gatewayPlanID string) BillingCycle {
	if stored.Valid() {
		return stored
	}
	plan := strings.ToLower(gatewayPlanID)
	if strings.Contains(plan, "year") || strings.Contains(plan, "annual") {
		return BillingYearly
	}
	return BillingMonthly
}

// Subscription 卖家订阅，决定是否允许发布 gig
type Subscription struct {
	ID            int64              `gorm:"primaryKey" json:"id"`
	UserID        int64              `gorm:"not null;index" json:"user_id"`
	Plan          PlanTier           `gorm:"size:10;not null" json:"plan"`
	Status        SubscriptionStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	BillingCycle  BillingCycle       `gorm:"size:10" json:"billing_cycle"`
	GatewayPlanID string             `gorm:"size:100" json:"gateway_plan_id,omitempty"`
	StartDate     time.Time          `gorm:"not null" json:"start_date"`
	EndDate       *time.Time         `gorm:"index" json:"end_date,omitempty"`
	AutoRenew     bool               `json:"auto_renew"`
	ExternalID    string             `gorm:"size:100;uniqueIndex;not null" json:"external_id"`
	LastPaymentID string             `gorm:"size:100" json:"last_payment_id,omitempty"`
	CheckoutURL   string             `gorm:"size:500" json:"checkout_url,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// IsActiveAt 订阅在给定时间是否有效。
// 尚无到期时间（激活后未收到扣款）的订阅只在开始后一个计费周期内有效。
func (s *Subscription) IsActiveAt(now time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	if s.EndDate == nil {
		cycle := ResolveBillingCycle(s.BillingCycle, s.GatewayPlanID)
		return now.Before(s.StartDate.Add(cycle.Length()))
	}
	return s.EndDate.After(now)
}
