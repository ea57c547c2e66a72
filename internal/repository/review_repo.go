package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/internal/model"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *ReviewRepository) WithTx(tx *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: tx}
}

// Create 创建评价，同一订单重复评价返回 gorm.ErrDuplicatedKey
func (r *ReviewRepository) Create(review *model.Review) error {
	return r.db.Create(review).Error
}

func (r *ReviewRepository) GetByOrderID(orderID int64) (*model.Review, error) {
	var review model.Review
	err := r.db.Where("order_id = ?", orderID).First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}
