package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/internal/model"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create 创建通知
func (r *NotificationRepository) Create(n *model.Notification) error {
	return r.db.Create(n).Error
}

// ListByUser 用户通知列表，最新在前
func (r *NotificationRepository) ListByUser(userID int64, unreadOnly bool, page, pageSize int) ([]*model.Notification, int64, error) {
	var items []*model.Notification
	var total int64

	query := r.db.Model(&model.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&items).Error
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// CountUnread 未读数量
func (r *NotificationRepository) CountUnread(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead 标记单条已读，返回是否命中
func (r *NotificationRepository) MarkRead(id, userID int64) (bool, error) {
	result := r.db.Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	return result.RowsAffected > 0, result.Error
}

// MarkAllRead 全部标记已读
func (r *NotificationRepository) MarkAllRead(userID int64) (int64, error) {
	result := r.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// CountReadBefore 早于指定时间的已读通知数量
func (r *NotificationRepository) CountReadBefore(before time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Notification{}).
		Where("is_read = ? AND created_at < ?", true, before).
		Count(&count).Error
	return count, err
}

// DeleteReadBefore 删除早于指定时间的已读通知
func (r *NotificationRepository) DeleteReadBefore(before time.Time) (int64, error) {
	result := r.db.Where("is_read = ? AND created_at < ?", true, before).Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}
