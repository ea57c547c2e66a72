package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedPayload = errors.New("malformed webhook payload")

type subscriptionEntity struct {
	ID     string `json:"id"`
	PlanID string `json:"plan_id"`
	Status string `json:"status"`
}

type paymentEntity struct {
	ID               string `json:"id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Notes            Notes  `json:"notes"`
	ErrorDescription string `json:"error_description"`
}

type rawEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Subscription *struct {
			Entity subscriptionEntity `json:"entity"`
		} `json:"subscription"`
		Payment *struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Parse 将已验签的请求体解析为具体事件
func Parse(raw []byte) (Event, error) {
	var r rawEvent
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if r.Event == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedPayload)
	}

	env := envelope{name: r.Event, raw: raw}

	switch r.Event {
	case EventSubscriptionCharged:
		sub, err := r.subscription()
		if err != nil {
			return nil, err
		}
		pay, err := r.payment()
		if err != nil {
			return nil, err
		}
		return SubscriptionCharged{envelope: env, SubscriptionID: sub.ID, PlanID: sub.PlanID, Payment: pay}, nil
	case EventSubscriptionCancelled:
		sub, err := r.subscription()
		if err != nil {
			return nil, err
		}
		return SubscriptionCancelled{envelope: env, SubscriptionID: sub.ID}, nil
	case EventSubscriptionHalted:
		sub, err := r.subscription()
		if err != nil {
			return nil, err
		}
		return SubscriptionHalted{envelope: env, SubscriptionID: sub.ID}, nil
	case EventSubscriptionActivated:
		sub, err := r.subscription()
		if err != nil {
			return nil, err
		}
		return SubscriptionActivated{envelope: env, SubscriptionID: sub.ID, PlanID: sub.PlanID}, nil
	case EventPaymentCaptured:
		pay, err := r.payment()
		if err != nil {
			return nil, err
		}
		return PaymentCaptured{envelope: env, Payment: pay}, nil
	case EventPaymentFailed:
		pay, err := r.payment()
		if err != nil {
			return nil, err
		}
		return PaymentFailed{envelope: env, Payment: pay}, nil
	}

	return Unknown{envelope: env}, nil
}

func (r *rawEvent) subscription() (subscriptionEntity, error) {
	if r.Payload.Subscription == nil || r.Payload.Subscription.Entity.ID == "" {
		return subscriptionEntity{}, fmt.Errorf("%w: %s without subscription id", ErrMalformedPayload, r.Event)
	}
	return r.Payload.Subscription.Entity, nil
}

func (r *rawEvent) payment() (Payment, error) {
	if r.Payload.Payment == nil || r.Payload.Payment.Entity.ID == "" {
		return Payment{}, fmt.Errorf("%w: %s without payment id", ErrMalformedPayload, r.Event)
	}
	e := r.Payload.Payment.Entity
	if e.Amount < 0 {
		return Payment{}, fmt.Errorf("%w: negative amount", ErrMalformedPayload)
	}
	return Payment{
		ID:               e.ID,
		AmountMinor:      e.Amount,
		Currency:         e.Currency,
		Status:           e.Status,
		Notes:            e.Notes,
		ErrorDescription: e.ErrorDescription,
	}, nil
}
