package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/internal/model"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Create(e *model.WebhookEvent) error {
	return r.db.Create(e).Error
}

func (r *WebhookEventRepository) GetByID(id int64) (*model.WebhookEvent, error) {
	var e model.WebhookEvent
	err := r.db.Where("id = ?", id).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *WebhookEventRepository) GetByDeliveryID(deliveryID string) (*model.WebhookEvent, error) {
	var e model.WebhookEvent
	err := r.db.Where("delivery_id = ?", deliveryID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// RecordAttempt 记录一次处理结果，processingErr 为空表示成功
func (r *WebhookEventRepository) RecordAttempt(id int64, outcome, processingErr string, at time.Time) error {
	fields := map[string]interface{}{
		"outcome":          outcome,
		"processing_error": processingErr,
		"attempts":         gorm.Expr("attempts + 1"),
	}
	if processingErr == "" {
		fields["processed_at"] = at
	}
	return r.db.Model(&model.WebhookEvent{}).Where("id = ?", id).Updates(fields).Error
}

// ListFailed 处理失败且尝试次数未超限的事件，按创建顺序
func (r *WebhookEventRepository) ListFailed(maxAttempts, limit int) ([]*model.WebhookEvent, error) {
	var events []*model.WebhookEvent
	err := r.db.Where("processing_error <> ? AND attempts < ?", "", maxAttempts).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
