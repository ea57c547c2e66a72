package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/internal/model"
)

type GigRepository struct {
	db *gorm.DB
}

func NewGigRepository(db *gorm.DB) *GigRepository {
	return &GigRepository{db: db}
}

// Create 创建 gig
func (r *GigRepository) Create(gig *model.Gig) error {
	return r.db.Create(gig).Error
}

// GetByID 根据 ID 获取 gig
func (r *GigRepository) GetByID(id int64) (*model.Gig, error) {
	var gig model.Gig
	err := r.db.Where("id = ?", id).First(&gig).Error
	if err != nil {
		return nil, err
	}
	return &gig, nil
}

// CountActiveBySeller 卖家在售 gig 数量
func (r *GigRepository) CountActiveBySeller(sellerID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Gig{}).
		Where("seller_id = ? AND status = ?", sellerID, model.GigStatusActive).
		Count(&count).Error
	return count, err
}

// List 在售 gig 列表，sellerID 为 0 时不过滤
func (r *GigRepository) List(sellerID int64, page, pageSize int) ([]*model.Gig, int64, error) {
	var gigs []*model.Gig
	var total int64

	query := r.db.Model(&model.Gig{}).Where("status = ?", model.GigStatusActive)
	if sellerID > 0 {
		query = query.Where("seller_id = ?", sellerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&gigs).Error
	if err != nil {
		return nil, 0, err
	}

	return gigs, total, nil
}
