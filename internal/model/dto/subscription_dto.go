package dto

// CheckoutRequest 发起订阅请求
type CheckoutRequest struct {
	Plan         string `json:"plan" binding:"required,plan_tier"`
	BillingCycle string `json:"billing_cycle" binding:"required,oneof=MONTHLY YEARLY"`
}

// CheckoutResponse 发起订阅响应
type CheckoutResponse struct {
	SubscriptionID int64   `json:"subscription_id"`
	ExternalID     string  `json:"external_id"`
	CheckoutURL    string  `json:"checkout_url"`
	Amount         float64 `json:"amount"`
}

// SubscriptionInfo 订阅信息
type SubscriptionInfo struct {
	ID           int64  `json:"id"`
	Plan         string `json:"plan"`
	Status       string `json:"status"`
	BillingCycle string `json:"billing_cycle"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date,omitempty"`
	AutoRenew    bool   `json:"auto_renew"`
	IsActive     bool   `json:"is_active"`
	MaxGigs      int    `json:"max_gigs"`
}

// TransactionItem 账本记录
type TransactionItem struct {
	ID          int64   `json:"id"`
	ExternalID  string  `json:"external_id"`
	Gateway     string  `json:"gateway"`
	Amount      float64 `json:"amount"`
	PlatformFee float64 `json:"platform_fee"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}
