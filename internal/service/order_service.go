package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/config"
	"github.com/qs3c/gigmarket_server/internal/model"
	"github.com/qs3c/gigmarket_server/internal/model/dto"
	"github.com/qs3c/gigmarket_server/internal/pkg/metrics"
	"github.com/qs3c/gigmarket_server/internal/repository"
)

var (
	ErrOrderNotFound       = errors.New("订单不存在")
	ErrNotOrderSeller      = errors.New("只有卖家可以执行该操作")
	ErrNotOrderBuyer       = errors.New("只有买家可以执行该操作")
	ErrNotOrderParty       = errors.New("无权操作此订单")
	ErrAdminOnly           = errors.New("仅管理员可以执行该操作")
	ErrInvalidTransition   = errors.New("当前状态不允许该操作")
	ErrInvalidProgress     = errors.New("进度必须在 0-100 之间且不能回退")
	ErrRevisionLimit       = errors.New("修改次数已用完")
	ErrReviewExists        = errors.New("该订单已评价")
	ErrInvalidRating       = errors.New("评分必须在 1-5 之间")
	ErrSelfOrder           = errors.New("不能购买自己的 gig")
	ErrGigNotFound         = errors.New("gig 不存在")
	ErrGigUnavailable      = errors.New("gig 已下架")
	ErrStorageUnavailable  = errors.New("文件存储未配置")
	ErrDeliverableTooLarge = errors.New("文件大小超出限制")
)

// DeliverableStorage 交付文件存储
type DeliverableStorage interface {
	UploadDeliverable(orderID int64, filename string, data []byte) (string, error)
}

type actor int

const (
	actorSeller actor = iota
	actorBuyer
	actorParty
	actorAdmin
)

// orderTransition 一条订单状态边
type orderTransition struct {
	to    model.OrderStatus
	from  []model.OrderStatus
	actor actor
	// apply 在锁定的订单上做额外校验并补充要更新的字段
	apply  func(o *model.Order, fields map[string]interface{}) error
	notice func(o *model.Order, userID int64) []Notice
}

type OrderService struct {
	db         *gorm.DB
	orderRepo  *repository.OrderRepository
	gigRepo    *repository.GigRepository
	reviewRepo *repository.ReviewRepository
	notifier   *NotificationService
	storage    DeliverableStorage
	cfg        *config.Config
	now        func() time.Time
}

func NewOrderService(
	db *gorm.DB,
	orderRepo *repository.OrderRepository,
	gigRepo *repository.GigRepository,
	reviewRepo *repository.ReviewRepository,
	notifier *NotificationService,
	cfg *config.Config,
) *OrderService {
	return &OrderService{
		db:         db,
		orderRepo:  orderRepo,
		gigRepo:    gigRepo,
		reviewRepo: reviewRepo,
		notifier:   notifier,
		cfg:        cfg,
		now:        time.Now,
	}
}

// WithStorage 启用交付文件上传
func (s *OrderService) WithStorage(storage DeliverableStorage) *OrderService {
	s.storage = storage
	return s
}

// Create 买家下单，到期时间在创建时确定
func (s *OrderService) Create(ctx context.Context, buyerID int64, req *dto.CreateOrderRequest) (*dto.OrderItem, error) {
	gig, err := s.gigRepo.GetByID(req.GigID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGigNotFound
		}
		return nil, err
	}
	if gig.Status != model.GigStatusActive {
		return nil, ErrGigUnavailable
	}
	if gig.SellerID == buyerID {
		return nil, ErrSelfOrder
	}

	now := s.now()
	order := &model.Order{
		BuyerID:          buyerID,
		SellerID:         gig.SellerID,
		GigID:            gig.ID,
		Price:            gig.Price,
		PlatformFee:      roundCents(gig.Price * s.cfg.Order.PlatformFeeRate),
		Requirements:     req.Requirements,
		Status:           model.OrderPending,
		DueDate:          now.AddDate(0, 0, gig.DeliveryDays),
		Deliverables:     model.StringArray{},
		RevisionsAllowed: gig.RevisionsAllowed,
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}

	metrics.OrderTransitions.WithLabelValues(string(model.OrderPending)).Inc()
	s.notifier.NotifyAll(ctx, []Notice{{
		RecipientID: order.SellerID,
		Title:       "收到新订单",
		Body:        fmt.Sprintf("您的 gig「%s」收到新订单 #%d。", gig.Title, order.ID),
		Type:        model.NotificationOrder,
	}})

	return s.buildOrderItem(order), nil
}

// Start 卖家开始工作
func (s *OrderService) Start(ctx context.Context, orderID, sellerID int64) (*dto.OrderItem, error) {
	return s.transition(ctx, orderID, sellerID, false, &orderTransition{
		to:     model.OrderInProgress,
		from:   []model.OrderStatus{model.OrderPending},
		actor:  actorSeller,
		notice: noticeTo(buyerOf, "订单已开始", "卖家已开始处理订单 #%d。"),
	})
}

// UpdateProgress 卖家更新进度，只能前进
func (s *OrderService) UpdateProgress(ctx context.Context, orderID, sellerID int64, progress int) (*dto.OrderItem, error) {
	return s.transition(ctx, orderID, sellerID, false, &orderTransition{
		to:    model.OrderInProgress,
		from:  []model.OrderStatus{model.OrderInProgress},
		actor: actorSeller,
		apply: func(o *model.Order, fields map[string]interface{}) error {
			if err := checkProgress(o.Progress, progress); err != nil {
				return err
			}
			fields["progress"] = progress
			return nil
		},
	})
}

// Deliver 卖家交付，交付文件追加到已有列表
func (s *OrderService) Deliver(ctx context.Context, orderID, sellerID int64, req *dto.DeliverRequest) (*dto.OrderItem, error) {
	return s.transition(ctx, orderID, sellerID, false, &orderTransition{
		to:    model.OrderDelivered,
		from:  []model.OrderStatus{model.OrderInProgress},
		actor: actorSeller,
		apply: func(o *model.Order, fields map[string]interface{}) error {
			if req.Progress != nil {
				if err := checkProgress(o.Progress, *req.Progress); err != nil {
					return err
				}
				fields["progress"] = *req.Progress
			}
			deliverables := make(model.StringArray, 0, len(o.Deliverables)+len(req.Deliverables))
			deliverables = append(deliverables, o.Deliverables...)
			deliverables = append(deliverables, req.Deliverables...)
			fields["deliverables"] = deliverables
			fields["delivered_at"] = s.now()
			return nil
		},
		notice: noticeTo(buyerOf, "订单已交付", "订单 #%d 已交付，请确认验收。"),
	})
}

// RequestRevision 买家要求修改，退回 IN_PROGRESS
func (s *OrderService) RequestRevision(ctx context.Context, orderID, buyerID int64) (*dto.OrderItem, error) {
	return s.transition(ctx, orderID, buyerID, false, &orderTransition{
		to:    model.OrderInProgress,
		from:  []model.OrderStatus{model.OrderDelivered},
		actor: actorBuyer,
		apply: func(o *model.Order, fields map[string]interface{}) error {
			if o.RevisionsUsed >= o.RevisionsAllowed {
				return ErrRevisionLimit
			}
			fields["revisions_used"] = o.RevisionsUsed + 1
			return nil
		},
		notice: noticeTo(sellerOf, "买家要求修改", "订单 #%d 的买家要求修改交付内容。"),
	})
}

// Accept 买家验收
func (s *OrderService) Accept(ctx context.Context, orderID, buyerID int64) (*dto.OrderItem, error) {
	return s.transition(ctx, orderID, buyerID, false, &orderTransition{
		to:    model.OrderCompleted,
		from:  []model.OrderStatus{model.OrderDelivered},
		actor: actorBuyer,
		apply: func(o *model.Order, fields map[string]interface{}) error {
			fields["completed_at"] = s.now()
			return nil
		},
		notice: noticeTo(sellerOf, "订单已完成", "买家已验收订单 #%d。"),
	})
}

// Cancel 买卖双方在交付前取消
func (s *OrderService) Cancel(ctx context.Context, orderID, userID int64) (*dto.OrderItem, error) {
	return s.transition(ctx, orderID, userID, false, &orderTransition{
		to:     model.OrderCancelled,
		from:   []model.OrderStatus{model.OrderPending, model.OrderInProgress},
		actor:  actorParty,
		notice: noticeTo(counterpartOf, "订单已取消", "订单 #%d 已被取消。"),
	})
}

// Dispute 买卖双方对未结束的订单发起争议
func (s *OrderService) Dispute(ctx context.Context, orderID, userID int64) (*dto.OrderItem, error) {
	return s.transition(ctx, orderID, userID, false, &orderTransition{
		to:     model.OrderDisputed,
		from:   []model.OrderStatus{model.OrderPending, model.OrderInProgress, model.OrderDelivered},
		actor:  actorParty,
		notice: noticeTo(counterpartOf, "订单争议", "订单 #%d 已进入争议处理。"),
	})
}

// Refund 管理员对已完成订单退款
func (s *OrderService) Refund(ctx context.Context, orderID, adminID int64, isAdmin bool) (*dto.OrderItem, error) {
	return s.transition(ctx, orderID, adminID, isAdmin, &orderTransition{
		to:    model.OrderRefunded,
		from:  []model.OrderStatus{model.OrderCompleted},
		actor: actorAdmin,
		notice: func(o *model.Order, _ int64) []Notice {
			body := fmt.Sprintf("订单 #%d 已退款。", o.ID)
			return []Notice{
				{RecipientID: o.BuyerID, Title: "订单已退款", Body: body, Type: model.NotificationOrder},
				{RecipientID: o.SellerID, Title: "订单已退款", Body: body, Type: model.NotificationOrder},
			}
		},
	})
}

// transition 在一个事务内：锁定订单、校验操作者与当前状态、按 WHERE status = from 条件更新。
// 通知在事务提交后发送。
func (s *OrderService) transition(ctx context.Context, orderID, userID int64, isAdmin bool, t *orderTransition) (*dto.OrderItem, error) {
	var updated *model.Order
	var from model.OrderStatus

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)

		order, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if err := checkActor(order, userID, isAdmin, t.actor); err != nil {
			return err
		}
		if !statusIn(order.Status, t.from) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, t.to)
		}

		fields := map[string]interface{}{"status": t.to}
		if t.apply != nil {
			if err := t.apply(order, fields); err != nil {
				return err
			}
		}

		ok, err := repo.UpdateFromStatus(order.ID, order.Status, fields)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, order.Status)
		}

		from = order.Status
		updated, err = repo.GetByID(order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if from != t.to {
		metrics.OrderTransitions.WithLabelValues(string(t.to)).Inc()
	}
	if t.notice != nil {
		s.notifier.NotifyAll(ctx, t.notice(updated, userID))
	}
	return s.buildOrderItem(updated), nil
}

func checkActor(o *model.Order, userID int64, isAdmin bool, a actor) error {
	switch a {
	case actorSeller:
		if o.SellerID != userID {
			return ErrNotOrderSeller
		}
	case actorBuyer:
		if o.BuyerID != userID {
			return ErrNotOrderBuyer
		}
	case actorParty:
		if !o.IsParty(userID) {
			return ErrNotOrderParty
		}
	case actorAdmin:
		if !isAdmin {
			return ErrAdminOnly
		}
	}
	return nil
}

func statusIn(status model.OrderStatus, set []model.OrderStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func checkProgress(current, next int) error {
	if next < 0 || next > 100 || next < current {
		return ErrInvalidProgress
	}
	return nil
}

func buyerOf(o *model.Order, _ int64) int64  { return o.BuyerID }
func sellerOf(o *model.Order, _ int64) int64 { return o.SellerID }

// counterpartOf 操作者之外的另一方
func counterpartOf(o *model.Order, userID int64) int64 {
	if userID == o.BuyerID {
		return o.SellerID
	}
	return o.BuyerID
}

func noticeTo(recipient func(*model.Order, int64) int64, title, bodyFormat string) func(*model.Order, int64) []Notice {
	return func(o *model.Order, userID int64) []Notice {
		return []Notice{{
			RecipientID: recipient(o, userID),
			Title:       title,
			Body:        fmt.Sprintf(bodyFormat, o.ID),
			Type:        model.NotificationOrder,
		}}
	}
}

// Review 买家对已完成订单评价一次
func (s *OrderService) Review(ctx context.Context, orderID, buyerID int64, req *dto.ReviewRequest) (*dto.ReviewItem, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, ErrNotOrderBuyer
	}
	if order.Status != model.OrderCompleted {
		return nil, fmt.Errorf("%w: review requires %s, got %s", ErrInvalidTransition, model.OrderCompleted, order.Status)
	}

	review := &model.Review{
		OrderID:  order.ID,
		GigID:    order.GigID,
		BuyerID:  order.BuyerID,
		SellerID: order.SellerID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	}
	if err := s.reviewRepo.Create(review); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrReviewExists
		}
		return nil, err
	}

	s.notifier.NotifyAll(ctx, []Notice{{
		RecipientID: order.SellerID,
		Title:       "收到新评价",
		Body:        fmt.Sprintf("订单 #%d 收到 %d 星评价。", order.ID, review.Rating),
		Type:        model.NotificationOrder,
	}})

	return &dto.ReviewItem{
		ID:        review.ID,
		OrderID:   review.OrderID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt.Format(time.RFC3339),
	}, nil
}

// Get 订单详情，仅买卖双方与管理员可见
func (s *OrderService) Get(orderID, userID int64, isAdmin bool) (*dto.OrderItem, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !isAdmin && !order.IsParty(userID) {
		return nil, ErrNotOrderParty
	}
	return s.buildOrderItem(order), nil
}

// List 用户订单列表
func (s *OrderService) List(userID int64, role, status string, page, pageSize int) ([]*dto.OrderItem, int64, error) {
	orders, total, err := s.orderRepo.ListByUser(userID, role, status, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.OrderItem, len(orders))
	for i, o := range orders {
		items[i] = s.buildOrderItem(o)
	}
	return items, total, nil
}

// UploadDeliverable 卖家上传交付文件，返回文件引用，之后通过 Deliver 附加到订单
func (s *OrderService) UploadDeliverable(orderID, sellerID int64, filename string, data []byte) (string, error) {
	if s.storage == nil {
		return "", ErrStorageUnavailable
	}
	if limit := s.cfg.OSS.MaxUploadSize; limit > 0 && int64(len(data)) > limit {
		return "", ErrDeliverableTooLarge
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrOrderNotFound
		}
		return "", err
	}
	if order.SellerID != sellerID {
		return "", ErrNotOrderSeller
	}
	if order.Status != model.OrderInProgress {
		return "", fmt.Errorf("%w: upload requires %s, got %s", ErrInvalidTransition, model.OrderInProgress, order.Status)
	}

	return s.storage.UploadDeliverable(order.ID, filename, data)
}

func (s *OrderService) buildOrderItem(o *model.Order) *dto.OrderItem {
	item := &dto.OrderItem{
		ID:               o.ID,
		BuyerID:          o.BuyerID,
		SellerID:         o.SellerID,
		GigID:            o.GigID,
		Price:            o.Price,
		PlatformFee:      o.PlatformFee,
		Requirements:     o.Requirements,
		Status:           string(o.Status),
		Progress:         o.Progress,
		DueDate:          o.DueDate.Format(time.RFC3339),
		Deliverables:     []string(o.Deliverables),
		RevisionsUsed:    o.RevisionsUsed,
		RevisionsAllowed: o.RevisionsAllowed,
		CreatedAt:        o.CreatedAt.Format(time.RFC3339),
	}
	if item.Deliverables == nil {
		item.Deliverables = []string{}
	}
	if o.DeliveredAt != nil {
		item.DeliveredAt = o.DeliveredAt.Format(time.RFC3339)
	}
	if o.CompletedAt != nil {
		item.CompletedAt = o.CompletedAt.Format(time.RFC3339)
	}
	return item
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
