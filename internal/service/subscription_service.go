package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/config"
	"github.com/qs3c/gigmarket_server/internal/model"
	"github.com/qs3c/gigmarket_server/internal/model/dto"
	"github.com/qs3c/gigmarket_server/internal/pkg/logger"
	"github.com/qs3c/gigmarket_server/internal/pkg/payment"
	"github.com/qs3c/gigmarket_server/internal/repository"
)

var (
	ErrSubscriptionNotFound       = errors.New("订阅不存在")
	ErrSubscriptionExists         = errors.New("已有有效订阅")
	ErrSubscriptionNotCancellable = errors.New("订阅已取消")
	ErrInvalidPlan                = errors.New("无效的套餐")
	ErrInvalidBillingCycle        = errors.New("无效的计费周期")
)

// ChargeInput 一次订阅扣款事件
type ChargeInput struct {
	SubscriptionExternalID string
	PaymentExternalID      string
	PlanID                 string
	Amount                 float64
	Captured               bool
	Event                  string
	Payload                []byte
}

// PaymentInput 一次独立支付事件（captured / failed）
type PaymentInput struct {
	PaymentExternalID      string
	SubscriptionExternalID string
	UserID                 string
	OrderID                string
	NoteType               string
	Amount                 float64
	Reason                 string
	Event                  string
	Payload                []byte
}

type SubscriptionService struct {
	db       *gorm.DB
	subRepo  *repository.SubscriptionRepository
	txRepo   *repository.TransactionRepository
	gateway  payment.Gateway
	notifier *NotificationService
	cfg      *config.Config
	log      *logrus.Entry
	now      func() time.Time
}

func NewSubscriptionService(
	db *gorm.DB,
	subRepo *repository.SubscriptionRepository,
	txRepo *repository.TransactionRepository,
	gateway payment.Gateway,
	notifier *NotificationService,
	cfg *config.Config,
) *SubscriptionService {
	return &SubscriptionService{
		db:       db,
		subRepo:  subRepo,
		txRepo:   txRepo,
		gateway:  gateway,
		notifier: notifier,
		cfg:      cfg,
		log:      logger.WithSource("subscription"),
		now:      time.Now,
	}
}

func (s *SubscriptionService) gatewayName() string {
	return s.cfg.Webhook.GatewayName()
}

// ApplyCharge 续费扣款：在一个事务内锁定订阅、写账本、顺延到期时间。
// 同一支付 ID 只会顺延一次；到期时间基于已存储的到期时间而不是当前时间。
func (s *SubscriptionService) ApplyCharge(ctx context.Context, in *ChargeInput) (Outcome, error) {
	var outcome Outcome
	var notices []Notice

	err := runAtomic(ctx, s.db, func(tx *gorm.DB) error {
		outcome, notices = "", nil
		subRepo := s.subRepo.WithTx(tx)

		sub, err := subRepo.GetByExternalIDForUpdate(in.SubscriptionExternalID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = OutcomeNotFound
				return nil
			}
			return err
		}

		status := model.TransactionPending
		if in.Captured {
			status = model.TransactionCompleted
		}
		prev, err := upsertLedger(s.txRepo.WithTx(tx), &LedgerEntry{
			UserID:         sub.UserID,
			SubscriptionID: &sub.ID,
			Gateway:        s.gatewayName(),
			ExternalID:     in.PaymentExternalID,
			Amount:         in.Amount,
			Type:           model.TransactionPayment,
			Status:         status,
			Event:          in.Event,
			Payload:        in.Payload,
		})
		if err != nil {
			return err
		}

		// 账本记录已关联订阅，说明这笔扣款已经顺延过
		if prev != nil && prev.SubscriptionID != nil {
			outcome = OutcomeDuplicate
			return nil
		}

		planID := sub.GatewayPlanID
		if planID == "" {
			planID = in.PlanID
		}
		cycle := model.ResolveBillingCycle(sub.BillingCycle, planID)

		base := sub.StartDate
		if sub.EndDate != nil {
			base = *sub.EndDate
		}
		end := base.Add(cycle.Length())

		fields := map[string]interface{}{
			"end_date":        end,
			"last_payment_id": in.PaymentExternalID,
		}
		// CANCELLED 为终态，只保留已付费的时长
		if sub.Status != model.SubscriptionCancelled {
			fields["status"] = model.SubscriptionActive
		}
		if !sub.BillingCycle.Valid() {
			fields["billing_cycle"] = cycle
		}
		if sub.GatewayPlanID == "" && in.PlanID != "" {
			fields["gateway_plan_id"] = in.PlanID
		}
		if err := subRepo.UpdateFields(sub.ID, fields); err != nil {
			return err
		}

		outcome = OutcomeApplied
		notices = append(notices, Notice{
			RecipientID: sub.UserID,
			Title:       "订阅续费成功",
			Body:        fmt.Sprintf("您的 %s 套餐已续费，有效期至 %s。", sub.Plan, end.Format("2006-01-02")),
			Type:        model.NotificationPayment,
		})
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}

	s.logOutcome("charge", in.SubscriptionExternalID, outcome)
	s.notifier.NotifyAll(ctx, notices)
	return outcome, nil
}

// statusChange 描述一次仅修改订阅状态的操作
type statusChange struct {
	name    string
	to      model.SubscriptionStatus
	from    []model.SubscriptionStatus
	fields  map[string]interface{}
	noticeF func(sub *model.Subscription) Notice
}

func (c *statusChange) allowed(status model.SubscriptionStatus) bool {
	for _, f := range c.from {
		if f == status {
			return true
		}
	}
	return false
}

func (s *SubscriptionService) applyStatus(ctx context.Context, externalID string, c *statusChange) (Outcome, error) {
	var outcome Outcome
	var notices []Notice

	err := runAtomic(ctx, s.db, func(tx *gorm.DB) error {
		outcome, notices = "", nil
		subRepo := s.subRepo.WithTx(tx)

		sub, err := subRepo.GetByExternalIDForUpdate(externalID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = OutcomeNotFound
				return nil
			}
			return err
		}

		if sub.Status == c.to {
			outcome = OutcomeDuplicate
			return nil
		}
		if !c.allowed(sub.Status) {
			outcome = OutcomeIgnored
			return nil
		}

		fields := map[string]interface{}{"status": c.to}
		for k, v := range c.fields {
			fields[k] = v
		}
		if err := subRepo.UpdateFields(sub.ID, fields); err != nil {
			return err
		}

		outcome = OutcomeApplied
		if c.noticeF != nil {
			notices = append(notices, c.noticeF(sub))
		}
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}

	s.logOutcome(c.name, externalID, outcome)
	s.notifier.NotifyAll(ctx, notices)
	return outcome, nil
}

// ApplyCancellation 取消订阅并关闭自动续费
func (s *SubscriptionService) ApplyCancellation(ctx context.Context, externalID string) (Outcome, error) {
	return s.applyStatus(ctx, externalID, &statusChange{
		name: "cancellation",
		to:   model.SubscriptionCancelled,
		from: []model.SubscriptionStatus{
			model.SubscriptionPending, model.SubscriptionActive, model.SubscriptionInactive,
		},
		fields: map[string]interface{}{"auto_renew": false},
		noticeF: func(sub *model.Subscription) Notice {
			return Notice{
				RecipientID: sub.UserID,
				Title:       "订阅已取消",
				Body:        fmt.Sprintf("您的 %s 套餐已取消，将不再自动续费。", sub.Plan),
				Type:        model.NotificationSystem,
			}
		},
	})
}

// ApplyHalt 多次扣款失败，订阅暂停
func (s *SubscriptionService) ApplyHalt(ctx context.Context, externalID string) (Outcome, error) {
	return s.applyStatus(ctx, externalID, &statusChange{
		name: "halt",
		to:   model.SubscriptionInactive,
		from: []model.SubscriptionStatus{model.SubscriptionPending, model.SubscriptionActive},
		noticeF: func(sub *model.Subscription) Notice {
			return Notice{
				RecipientID: sub.UserID,
				Title:       "订阅已暂停",
				Body:        "多次扣款失败，您的订阅已暂停。请更新支付方式以恢复发布 gig。",
				Type:        model.NotificationPayment,
			}
		},
	})
}

// ApplyActivation 网关在没有扣款的情况下激活订阅
func (s *SubscriptionService) ApplyActivation(ctx context.Context, externalID string) (Outcome, error) {
	return s.applyStatus(ctx, externalID, &statusChange{
		name: "activation",
		to:   model.SubscriptionActive,
		from: []model.SubscriptionStatus{model.SubscriptionPending, model.SubscriptionInactive},
		noticeF: func(sub *model.Subscription) Notice {
			return Notice{
				RecipientID: sub.UserID,
				Title:       "订阅已激活",
				Body:        fmt.Sprintf("您的 %s 套餐已激活。", sub.Plan),
				Type:        model.NotificationSystem,
			}
		},
	})
}

// ApplyPaymentFailure 标记账本记录失败；备注关联订阅时通知订阅所有者。不改变订阅状态。
// 没有账本记录时插入一条 FAILED 记录，重复投递由唯一键去重。
func (s *SubscriptionService) ApplyPaymentFailure(ctx context.Context, in *PaymentInput) (Outcome, error) {
	var outcome Outcome
	var notices []Notice

	err := runAtomic(ctx, s.db, func(tx *gorm.DB) error {
		outcome, notices = "", nil
		txRepo := s.txRepo.WithTx(tx)

		prev, err := markLedgerFailed(txRepo, s.gatewayName(), in.PaymentExternalID, in.Event, in.Payload)
		if err != nil {
			return err
		}
		// 已失败为重复投递，已完成则失败事件过期
		if prev != nil && prev.Status != model.TransactionPending {
			outcome = OutcomeDuplicate
			return nil
		}

		if prev == nil {
			ownerID, err := s.resolvePaymentOwner(tx, in)
			if err != nil {
				return err
			}
			if ownerID == 0 {
				outcome = OutcomeNotFound
				return nil
			}
			_, err = upsertLedger(txRepo, &LedgerEntry{
				UserID:     ownerID,
				Gateway:    s.gatewayName(),
				ExternalID: in.PaymentExternalID,
				Amount:     in.Amount,
				Type:       model.TransactionPayment,
				Status:     model.TransactionFailed,
				Event:      in.Event,
				Payload:    in.Payload,
			})
			if err != nil {
				return err
			}
		}

		if in.NoteType == "subscription" && in.SubscriptionExternalID != "" {
			sub, err := s.subRepo.WithTx(tx).GetByExternalID(in.SubscriptionExternalID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if sub != nil {
				body := "订阅扣款失败，请检查您的支付方式。"
				if in.Reason != "" {
					body = fmt.Sprintf("订阅扣款失败：%s。请检查您的支付方式。", in.Reason)
				}
				notices = append(notices, Notice{
					RecipientID: sub.UserID,
					Title:       "支付失败",
					Body:        body,
					Type:        model.NotificationPayment,
				})
			}
		}

		outcome = OutcomeApplied
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}

	s.logOutcome("payment_failure", in.PaymentExternalID, outcome)
	s.notifier.NotifyAll(ctx, notices)
	return outcome, nil
}

// ApplyPaymentCaptured 记账为 COMPLETED。所有者取自备注 userId，其次是备注订阅的所有者，
// 再次是已有账本记录；都无法确定时不写入。
func (s *SubscriptionService) ApplyPaymentCaptured(ctx context.Context, in *PaymentInput) (Outcome, error) {
	var outcome Outcome

	err := runAtomic(ctx, s.db, func(tx *gorm.DB) error {
		outcome = ""
		txRepo := s.txRepo.WithTx(tx)

		ownerID, err := s.resolvePaymentOwner(tx, in)
		if err != nil {
			return err
		}
		if ownerID == 0 {
			outcome = OutcomeNotFound
			return nil
		}

		entry := &LedgerEntry{
			UserID:     ownerID,
			Gateway:    s.gatewayName(),
			ExternalID: in.PaymentExternalID,
			Amount:     in.Amount,
			Type:       model.TransactionPayment,
			Status:     model.TransactionCompleted,
			Event:      in.Event,
			Payload:    in.Payload,
		}
		if orderID, err := strconv.ParseInt(in.OrderID, 10, 64); err == nil && orderID > 0 {
			entry.OrderID = &orderID
		}

		prev, err := upsertLedger(txRepo, entry)
		if err != nil {
			return err
		}
		if prev != nil && prev.Status == model.TransactionCompleted {
			outcome = OutcomeDuplicate
			return nil
		}
		outcome = OutcomeApplied
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}

	s.logOutcome("payment_captured", in.PaymentExternalID, outcome)
	return outcome, nil
}

func (s *SubscriptionService) resolvePaymentOwner(tx *gorm.DB, in *PaymentInput) (int64, error) {
	if id, err := strconv.ParseInt(in.UserID, 10, 64); err == nil && id > 0 {
		return id, nil
	}

	if in.SubscriptionExternalID != "" {
		sub, err := s.subRepo.WithTx(tx).GetByExternalID(in.SubscriptionExternalID)
		if err == nil {
			return sub.UserID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
	}

	existing, err := s.txRepo.WithTx(tx).GetByExternalID(s.gatewayName(), in.PaymentExternalID)
	if err == nil {
		return existing.UserID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	return 0, nil
}

func (s *SubscriptionService) logOutcome(op, externalID string, outcome Outcome) {
	entry := s.log.WithFields(logrus.Fields{
		"op":          op,
		"external_id": externalID,
		"outcome":     outcome,
	})
	if outcome == OutcomeNotFound {
		entry.Warn("Webhook references unknown entity")
		return
	}
	entry.Info("Subscription event processed")
}

// CreateCheckout 卖家发起订阅，创建 PENDING 订阅等待网关扣款回调
func (s *SubscriptionService) CreateCheckout(ctx context.Context, sellerID int64, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	tier := model.PlanTier(req.Plan)
	plan, ok := s.cfg.Subscription.Plans[string(tier)]
	if !tier.Valid() || !ok {
		return nil, ErrInvalidPlan
	}
	cycle := model.BillingCycle(req.BillingCycle)
	if !cycle.Valid() {
		return nil, ErrInvalidBillingCycle
	}

	if _, err := s.subRepo.GetActiveByUser(sellerID, s.now()); err == nil {
		return nil, ErrSubscriptionExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	planID, amount := plan.MonthlyPlanID, plan.MonthlyPrice
	if cycle == model.BillingYearly {
		planID, amount = plan.YearlyPlanID, plan.YearlyPrice
	}

	created, err := s.gateway.CreateSubscription(ctx, &payment.CreateSubscriptionRequest{
		PlanID: planID,
		UserID: sellerID,
		Notes: map[string]string{
			"type":   "subscription",
			"userId": strconv.FormatInt(sellerID, 10),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway subscription: %w", err)
	}

	sub := &model.Subscription{
		UserID:        sellerID,
		Plan:          tier,
		Status:        model.SubscriptionPending,
		BillingCycle:  cycle,
		GatewayPlanID: planID,
		StartDate:     s.now(),
		AutoRenew:     true,
		ExternalID:    created.ID,
		CheckoutURL:   created.CheckoutURL,
	}
	if err := s.subRepo.Create(sub); err != nil {
		return nil, err
	}

	return &dto.CheckoutResponse{
		SubscriptionID: sub.ID,
		ExternalID:     sub.ExternalID,
		CheckoutURL:    sub.CheckoutURL,
		Amount:         amount,
	}, nil
}

// Cancel 卖家主动取消：先通知网关，再在本地应用取消
func (s *SubscriptionService) Cancel(ctx context.Context, sellerID int64) error {
	sub, err := s.subRepo.GetLatestByUser(sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubscriptionNotFound
		}
		return err
	}
	if sub.Status == model.SubscriptionCancelled {
		return ErrSubscriptionNotCancellable
	}

	if err := s.gateway.CancelSubscription(ctx, sub.ExternalID); err != nil {
		return fmt.Errorf("cancel gateway subscription: %w", err)
	}

	_, err = s.ApplyCancellation(ctx, sub.ExternalID)
	return err
}

// IsSubscriptionActive 卖家当前是否有有效订阅，查询出错时按无效处理
func (s *SubscriptionService) IsSubscriptionActive(sellerID int64) bool {
	_, err := s.subRepo.GetActiveByUser(sellerID, s.now())
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.WithError(err).WithField("user_id", sellerID).Error("Failed to check subscription")
		}
		return false
	}
	return true
}

// ActivePlan 当前有效订阅的套餐配置
func (s *SubscriptionService) ActivePlan(sellerID int64) (*model.Subscription, config.PlanConfig, error) {
	sub, err := s.subRepo.GetActiveByUser(sellerID, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, config.PlanConfig{}, ErrSubscriptionNotFound
		}
		return nil, config.PlanConfig{}, err
	}
	return sub, s.cfg.Subscription.Plans[string(sub.Plan)], nil
}

// Current 最近一次订阅信息
func (s *SubscriptionService) Current(sellerID int64) (*dto.SubscriptionInfo, error) {
	sub, err := s.subRepo.GetLatestByUser(sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	info := &dto.SubscriptionInfo{
		ID:           sub.ID,
		Plan:         string(sub.Plan),
		Status:       string(sub.Status),
		BillingCycle: string(sub.BillingCycle),
		StartDate:    sub.StartDate.Format(time.RFC3339),
		AutoRenew:    sub.AutoRenew,
		IsActive:     sub.IsActiveAt(s.now()),
		MaxGigs:      s.cfg.Subscription.Plans[string(sub.Plan)].MaxGigs,
	}
	if sub.EndDate != nil {
		info.EndDate = sub.EndDate.Format(time.RFC3339)
	}
	return info, nil
}

// ListTransactions 用户账本记录
func (s *SubscriptionService) ListTransactions(userID int64, page, pageSize int) ([]*dto.TransactionItem, int64, error) {
	rows, total, err := s.txRepo.ListByUser(userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.TransactionItem, len(rows))
	for i, t := range rows {
		items[i] = &dto.TransactionItem{
			ID:          t.ID,
			ExternalID:  t.ExternalID,
			Gateway:     t.Gateway,
			Amount:      t.Amount,
			PlatformFee: t.PlatformFee,
			Type:        string(t.Type),
			Status:      string(t.Status),
			CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		}
	}
	return items, total, nil
}
