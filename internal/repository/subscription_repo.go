package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/gigmarket_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *SubscriptionRepository) GetByID(id int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByExternalID 根据网关订阅 ID 查询
func (r *SubscriptionRepository) GetByExternalID(externalID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("external_id = ?", externalID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByExternalIDForUpdate 行锁读取，须在事务内调用（sqlite 忽略锁子句）
func (r *SubscriptionRepository) GetByExternalIDForUpdate(externalID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_id = ?", externalID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetLatestByUser 用户最近创建的订阅
func (r *SubscriptionRepository) GetLatestByUser(userID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetActiveByUser 当前生效的订阅：ACTIVE 且未到期，多条时取到期最晚的。
// 没有到期时间的记录按 Subscription.IsActiveAt 判断。
func (r *SubscriptionRepository) GetActiveByUser(userID int64, now time.Time) (*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Where("user_id = ? AND status = ? AND (end_date IS NULL OR end_date > ?)",
		userID, model.SubscriptionActive, now).
		Order("end_date DESC, id DESC").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if sub.IsActiveAt(now) {
			return sub, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// UpdateFields 按 ID 更新字段
func (r *SubscriptionRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Subscription{}).Where("id = ?", id).Updates(fields).Error
}
