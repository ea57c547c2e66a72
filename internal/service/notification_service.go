package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/gigmarket_server/config"
	"github.com/qs3c/gigmarket_server/internal/model"
	"github.com/qs3c/gigmarket_server/internal/model/dto"
	"github.com/qs3c/gigmarket_server/internal/pkg/logger"
	"github.com/qs3c/gigmarket_server/internal/pkg/metrics"
	"github.com/qs3c/gigmarket_server/internal/pkg/pubsub"
	"github.com/qs3c/gigmarket_server/internal/pkg/queue"
	"github.com/qs3c/gigmarket_server/internal/repository"
)

var ErrNotificationNotFound = errors.New("通知不存在")

// Notice 状态变更产生的待发送通知，事务提交后才投递
type Notice struct {
	RecipientID int64
	Title       string
	Body        string
	Type        string
}

// NotificationPublisher 实时推送通道
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, msg *pubsub.NotificationMessage) error
}

// EmailEnqueuer 邮件任务队列
type EmailEnqueuer interface {
	Push(ctx context.Context, job *queue.EmailJob) error
}

type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	publisher        NotificationPublisher
	emailQueue       EmailEnqueuer
	cfg              *config.Config
	log              *logrus.Entry
}

func NewNotificationService(notificationRepo *repository.NotificationRepository, cfg *config.Config) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		cfg:              cfg,
		log:              logger.WithSource("notifier"),
	}
}

// WithPublisher 启用 redis 实时推送
func (s *NotificationService) WithPublisher(p NotificationPublisher) *NotificationService {
	s.publisher = p
	return s
}

// WithEmailQueue 启用邮件投递
func (s *NotificationService) WithEmailQueue(q EmailEnqueuer) *NotificationService {
	s.emailQueue = q
	return s
}

// NotifyAll 依次投递，任何失败只记录日志
func (s *NotificationService) NotifyAll(ctx context.Context, notices []Notice) {
	for _, n := range notices {
		s.Notify(ctx, n)
	}
}

// Notify 写入通知记录，再尽力推送与入队邮件
func (s *NotificationService) Notify(ctx context.Context, n Notice) {
	if n.Type == "" {
		n.Type = model.NotificationSystem
	}

	row := &model.Notification{
		UserID: n.RecipientID,
		Title:  n.Title,
		Body:   n.Body,
		Type:   n.Type,
	}
	if err := s.notificationRepo.Create(row); err != nil {
		metrics.NotificationFailures.WithLabelValues("store").Inc()
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id": n.RecipientID,
			"title":   n.Title,
		}).Error("Failed to create notification")
		return
	}

	if s.publisher != nil {
		msg := &pubsub.NotificationMessage{
			UserID:         row.UserID,
			NotificationID: row.ID,
			Kind:           row.Type,
			Title:          row.Title,
			Body:           row.Body,
			CreatedAt:      row.CreatedAt.Format(time.RFC3339),
		}
		if err := s.publisher.PublishNotification(ctx, msg); err != nil {
			metrics.NotificationFailures.WithLabelValues("publish").Inc()
			s.log.WithError(err).WithField("notification_id", row.ID).Warn("Failed to publish notification")
		}
	}

	if s.emailQueue != nil {
		job := &queue.EmailJob{
			NotificationID: row.ID,
			UserID:         row.UserID,
			Subject:        row.Title,
			Body:           row.Body,
		}
		if err := s.emailQueue.Push(ctx, job); err != nil {
			metrics.NotificationFailures.WithLabelValues("email").Inc()
			s.log.WithError(err).WithField("notification_id", row.ID).Warn("Failed to enqueue notification email")
		}
	}
}

// List 通知列表
func (s *NotificationService) List(userID int64, unreadOnly bool, page, pageSize int) ([]*dto.NotificationItem, int64, error) {
	rows, total, err := s.notificationRepo.ListByUser(userID, unreadOnly, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.NotificationItem, len(rows))
	for i, n := range rows {
		items[i] = &dto.NotificationItem{
			ID:        n.ID,
			Title:     n.Title,
			Body:      n.Body,
			Type:      n.Type,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		}
	}
	return items, total, nil
}

// UnreadCount 未读数量
func (s *NotificationService) UnreadCount(userID int64) (int64, error) {
	return s.notificationRepo.CountUnread(userID)
}

// MarkRead 标记单条已读
func (s *NotificationService) MarkRead(userID, notificationID int64) error {
	ok, err := s.notificationRepo.MarkRead(notificationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead 全部标记已读
func (s *NotificationService) MarkAllRead(userID int64) (int64, error) {
	return s.notificationRepo.MarkAllRead(userID)
}

// PurgeRead 清理超过保留期的已读通知，olderThanDays <= 0 时使用配置值
func (s *NotificationService) PurgeRead(olderThanDays int, dryRun bool) (int64, error) {
	if olderThanDays <= 0 {
		olderThanDays = s.retentionDays()
	}
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	if dryRun {
		return s.notificationRepo.CountReadBefore(cutoff)
	}

	deleted, err := s.notificationRepo.DeleteReadBefore(cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Purged read notifications")
	}
	return deleted, nil
}

func (s *NotificationService) retentionDays() int {
	if s.cfg != nil && s.cfg.Notification.RetentionDays > 0 {
		return s.cfg.Notification.RetentionDays
	}
	return 90
}
