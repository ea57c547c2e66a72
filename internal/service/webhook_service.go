package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/config"
	"github.com/qs3c/gigmarket_server/internal/model"
	"github.com/qs3c/gigmarket_server/internal/pkg/logger"
	"github.com/qs3c/gigmarket_server/internal/pkg/metrics"
	"github.com/qs3c/gigmarket_server/internal/repository"
	"github.com/qs3c/gigmarket_server/internal/webhook"
)

// Outcome 一次事件分发的结果
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeFailed    Outcome = "failed"
)

// MaxReplayAttempts 失败事件的最大处理次数
const MaxReplayAttempts = 5

var ErrWebhookEventNotFound = errors.New("回调记录不存在")

type WebhookService struct {
	subscriptions *SubscriptionService
	eventRepo     *repository.WebhookEventRepository
	cfg           *config.Config
	log           *logrus.Entry
}

func NewWebhookService(
	subscriptions *SubscriptionService,
	eventRepo *repository.WebhookEventRepository,
	cfg *config.Config,
) *WebhookService {
	return &WebhookService{
		subscriptions: subscriptions,
		eventRepo:     eventRepo,
		cfg:           cfg,
		log:           logger.WithSource("webhook"),
	}
}

// Dispatch 将事件交给唯一的处理函数。处理函数 panic 时转为 failed，不影响调用方。
func (s *WebhookService) Dispatch(ctx context.Context, ev webhook.Event) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailed
			err = fmt.Errorf("handler panic: %v", r)
		}
		metrics.WebhookEvents.WithLabelValues(ev.Type(), string(outcome)).Inc()
	}()

	switch e := ev.(type) {
	case webhook.SubscriptionCharged:
		return s.subscriptions.ApplyCharge(ctx, &ChargeInput{
			SubscriptionExternalID: e.SubscriptionID,
			PaymentExternalID:      e.Payment.ID,
			PlanID:                 e.PlanID,
			Amount:                 e.Payment.Amount(),
			Captured:               e.Payment.Captured(),
			Event:                  e.Type(),
			Payload:                e.Raw(),
		})
	case webhook.SubscriptionCancelled:
		return s.subscriptions.ApplyCancellation(ctx, e.SubscriptionID)
	case webhook.SubscriptionHalted:
		return s.subscriptions.ApplyHalt(ctx, e.SubscriptionID)
	case webhook.SubscriptionActivated:
		return s.subscriptions.ApplyActivation(ctx, e.SubscriptionID)
	case webhook.PaymentCaptured:
		return s.subscriptions.ApplyPaymentCaptured(ctx, paymentInput(e.Payment, e.Type(), e.Raw()))
	case webhook.PaymentFailed:
		return s.subscriptions.ApplyPaymentFailure(ctx, paymentInput(e.Payment, e.Type(), e.Raw()))
	case webhook.Unknown:
		s.log.WithField("event", e.Type()).Info("Ignoring unknown webhook event")
		return OutcomeIgnored, nil
	}

	return OutcomeIgnored, fmt.Errorf("unhandled event type %T", ev)
}

func paymentInput(p webhook.Payment, event string, raw []byte) *PaymentInput {
	return &PaymentInput{
		PaymentExternalID:      p.ID,
		SubscriptionExternalID: p.Notes.SubscriptionID,
		UserID:                 p.Notes.UserID,
		OrderID:                p.Notes.OrderID,
		NoteType:               p.Notes.Type,
		Amount:                 p.Amount(),
		Reason:                 p.ErrorDescription,
		Event:                  event,
		Payload:                raw,
	}
}

// NewDeliveryID 生成回调投递 ID
func NewDeliveryID() string {
	return uuid.NewString()
}

// Record 保存已验签的回调原文。保存失败只记录日志。
func (s *WebhookService) Record(deliveryID string, ev webhook.Event) *model.WebhookEvent {
	if deliveryID == "" {
		deliveryID = NewDeliveryID()
	}
	e := &model.WebhookEvent{
		DeliveryID: deliveryID,
		Gateway:    s.cfg.Webhook.GatewayName(),
		EventType:  ev.Type(),
		Payload:    string(ev.Raw()),
	}
	if err := s.eventRepo.Create(e); err != nil {
		s.log.WithError(err).WithField("event", ev.Type()).Error("Failed to record webhook event")
		e.ID = 0
	}
	return e
}

// Complete 记录处理结果
func (s *WebhookService) Complete(e *model.WebhookEvent, outcome Outcome, handlerErr error) {
	if e == nil || e.ID == 0 {
		return
	}
	msg := ""
	if handlerErr != nil {
		msg = handlerErr.Error()
	}
	if err := s.eventRepo.RecordAttempt(e.ID, string(outcome), msg, time.Now()); err != nil {
		s.log.WithError(err).WithField("delivery_id", e.DeliveryID).Error("Failed to update webhook event")
	}
}

// Replay 重新分发一条已保存的回调
func (s *WebhookService) Replay(ctx context.Context, deliveryID string) (Outcome, error) {
	stored, err := s.eventRepo.GetByDeliveryID(deliveryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrWebhookEventNotFound
		}
		return "", err
	}
	return s.replay(ctx, stored)
}

func (s *WebhookService) replay(ctx context.Context, stored *model.WebhookEvent) (Outcome, error) {
	ev, err := webhook.Parse([]byte(stored.Payload))
	if err != nil {
		s.Complete(stored, OutcomeFailed, err)
		return OutcomeFailed, err
	}

	outcome, handlerErr := s.Dispatch(ctx, ev)
	s.Complete(stored, outcome, handlerErr)

	s.log.WithFields(logrus.Fields{
		"delivery_id": stored.DeliveryID,
		"event":       stored.EventType,
		"outcome":     outcome,
	}).Info("Replayed webhook event")
	return outcome, handlerErr
}

// ReplayFailed 重放处理失败且未超过重试次数的事件，返回成功数量
func (s *WebhookService) ReplayFailed(ctx context.Context, limit int) (int, error) {
	events, err := s.eventRepo.ListFailed(MaxReplayAttempts, limit)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, e := range events {
		if ctx.Err() != nil {
			return recovered, ctx.Err()
		}
		if _, err := s.replay(ctx, e); err != nil {
			s.log.WithError(err).WithField("delivery_id", e.DeliveryID).Warn("Webhook replay failed")
			continue
		}
		recovered++
	}
	return recovered, nil
}
