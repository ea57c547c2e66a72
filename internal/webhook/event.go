package webhook

import (
	"encoding/json"
	"fmt"
)

// 网关事件名
const (
	EventSubscriptionCharged   = "subscription.charged"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventSubscriptionHalted    = "subscription.halted"
	EventSubscriptionActivated = "subscription.activated"
	EventPaymentCaptured       = "payment.captured"
	EventPaymentFailed         = "payment.failed"
)

// Event 已知回调事件的封闭集合，只能由本包构造
type Event interface {
	// Type 网关事件名
	Type() string
	// Raw 已验签的原始请求体
	Raw() []byte
	sealed()
}

type envelope struct {
	name string
	raw  []byte
}

func (e envelope) Type() string { return e.name }
func (e envelope) Raw() []byte  { return e.raw }
func (envelope) sealed()        {}

// Notes 网关透传的业务备注
type Notes struct {
	Type           string
	SubscriptionID string
	UserID         string
	OrderID        string
}

// UnmarshalJSON 网关在备注为空时发送 []，值可能为数字
func (n *Notes) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		var arr []interface{}
		if json.Unmarshal(data, &arr) == nil {
			*n = Notes{}
			return nil
		}
		return err
	}

	get := func(key string) string {
		v, ok := m[key]
		if !ok || v == nil {
			return ""
		}
		switch val := v.(type) {
		case string:
			return val
		case float64:
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprint(v)
	}

	*n = Notes{
		Type:           get("type"),
		SubscriptionID: get("subscriptionId"),
		UserID:         get("userId"),
		OrderID:        get("orderId"),
	}
	return nil
}

// Payment 支付实体，金额为最小货币单位
type Payment struct {
	ID               string
	AmountMinor      int64
	Currency         string
	Status           string
	Notes            Notes
	ErrorDescription string
}

// Amount 以主货币单位表示的金额
func (p Payment) Amount() float64 {
	return float64(p.AmountMinor) / 100
}

// Captured 网关是否已确认扣款
func (p Payment) Captured() bool {
	return p.Status == "captured"
}

// SubscriptionCharged 订阅续费扣款
type SubscriptionCharged struct {
	envelope
	SubscriptionID string
	PlanID         string
	Payment        Payment
}

type SubscriptionCancelled struct {
	envelope
	SubscriptionID string
}

// SubscriptionHalted 多次扣款失败后网关暂停订阅
type SubscriptionHalted struct {
	envelope
	SubscriptionID string
}

type SubscriptionActivated struct {
	envelope
	SubscriptionID string
	PlanID         string
}

type PaymentCaptured struct {
	envelope
	Payment Payment
}

type PaymentFailed struct {
	envelope
	Payment Payment
}

// Unknown 未建模的事件，确认接收但不处理
type Unknown struct {
	envelope
}
