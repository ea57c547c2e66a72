package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/config"
	"github.com/qs3c/gigmarket_server/internal/model"
	"github.com/qs3c/gigmarket_server/internal/model/dto"
	"github.com/qs3c/gigmarket_server/internal/repository"
)

var ErrGigLimitReached = errors.New("已达到套餐 gig 数量上限")

type GigService struct {
	gigRepo       *repository.GigRepository
	subscriptions *SubscriptionService
	cfg           *config.Config
}

func NewGigService(gigRepo *repository.GigRepository, subscriptions *SubscriptionService, cfg *config.Config) *GigService {
	return &GigService{
		gigRepo:       gigRepo,
		subscriptions: subscriptions,
		cfg:           cfg,
	}
}

// Create 发布 gig，需要有效订阅且未超过套餐上限
func (s *GigService) Create(sellerID int64, req *dto.CreateGigRequest) (*dto.GigItem, error) {
	_, plan, err := s.subscriptions.ActivePlan(sellerID)
	if err != nil {
		return nil, err
	}

	if plan.MaxGigs > 0 {
		count, err := s.gigRepo.CountActiveBySeller(sellerID)
		if err != nil {
			return nil, err
		}
		if count >= int64(plan.MaxGigs) {
			return nil, ErrGigLimitReached
		}
	}

	gig := &model.Gig{
		SellerID:         sellerID,
		Title:            req.Title,
		Description:      req.Description,
		Price:            req.Price,
		DeliveryDays:     req.DeliveryDays,
		RevisionsAllowed: req.RevisionsAllowed,
		Status:           model.GigStatusActive,
	}
	if err := s.gigRepo.Create(gig); err != nil {
		return nil, err
	}

	return buildGigItem(gig), nil
}

// Get gig 详情
func (s *GigService) Get(id int64) (*dto.GigItem, error) {
	gig, err := s.gigRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGigNotFound
		}
		return nil, err
	}
	return buildGigItem(gig), nil
}

// List 在售 gig 列表
func (s *GigService) List(sellerID int64, page, pageSize int) ([]*dto.GigItem, int64, error) {
	gigs, total, err := s.gigRepo.List(sellerID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.GigItem, len(gigs))
	for i, g := range gigs {
		items[i] = buildGigItem(g)
	}
	return items, total, nil
}

func buildGigItem(g *model.Gig) *dto.GigItem {
	return &dto.GigItem{
		ID:               g.ID,
		SellerID:         g.SellerID,
		Title:            g.Title,
		Description:      g.Description,
		Price:            g.Price,
		DeliveryDays:     g.DeliveryDays,
		RevisionsAllowed: g.RevisionsAllowed,
		Status:           g.Status,
		CreatedAt:        g.CreatedAt.Format(time.RFC3339),
	}
}
