package cron

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/gigmarket_server/internal/pkg/logger"
)

// ReplayBatchSize 每轮重放失败回调的最大条数
const ReplayBatchSize = 100

// NotificationPurger 清理已读通知
type NotificationPurger interface {
	PurgeRead(olderThanDays int, dryRun bool) (int64, error)
}

// WebhookReplayer 重放处理失败的回调
type WebhookReplayer interface {
	ReplayFailed(ctx context.Context, limit int) (int, error)
}

// VisitorSweeper 回收限流器中空闲的访客
type VisitorSweeper interface {
	Cleanup(now time.Time) int
}

type Service struct {
	purger   NotificationPurger
	replayer WebhookReplayer
	sweeper  VisitorSweeper
	log      *logrus.Entry

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewService 任一依赖为 nil 时跳过对应任务
func NewService(purger NotificationPurger, replayer WebhookReplayer, sweeper VisitorSweeper) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		purger:   purger,
		replayer: replayer,
		sweeper:  sweeper,
		log:      logger.WithSource("cron"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	s.wg.Add(2)
	go s.runDaily()
	go s.runHourly()
	s.log.Info("Cron service started (notification purge + webhook replay)")
}

// Stop 停止定时任务并等待正在执行的任务结束
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.log.Info("Cron service stopped")
	})
}

// runDaily 每日 UTC 零点清理已读通知
func (s *Service) runDaily() {
	defer s.wg.Done()

	now := time.Now().UTC()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	timer := time.NewTimer(nextMidnight.Sub(now))
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
			s.purgeNotifications()
			timer.Reset(24 * time.Hour)
		}
	}
}

// runHourly 每小时重放失败回调并回收限流访客
func (s *Service) runHourly() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.replayWebhooks(s.ctx)
			s.sweepVisitors()
		}
	}
}

func (s *Service) purgeNotifications() error {
	if s.purger == nil {
		return nil
	}
	n, err := s.purger.PurgeRead(0, false)
	if err != nil {
		s.log.WithError(err).Error("Failed to purge read notifications")
		return err
	}
	s.log.WithField("deleted", n).Info("Read notifications purged")
	return nil
}

func (s *Service) replayWebhooks(ctx context.Context) error {
	if s.replayer == nil {
		return nil
	}
	recovered, err := s.replayer.ReplayFailed(ctx, ReplayBatchSize)
	if err != nil {
		s.log.WithError(err).WithField("recovered", recovered).Error("Failed to replay webhook events")
		return err
	}
	if recovered > 0 {
		s.log.WithField("recovered", recovered).Info("Failed webhook events replayed")
	}
	return nil
}

func (s *Service) sweepVisitors() {
	if s.sweeper == nil {
		return
	}
	if n := s.sweeper.Cleanup(time.Now()); n > 0 {
		s.log.WithField("visitors", n).Debug("Idle rate limit visitors removed")
	}
}

// RunNow 立即执行全部任务（用于测试或手动触发）
func (s *Service) RunNow(ctx context.Context) error {
	s.log.Info("Manual cron run triggered")
	purgeErr := s.purgeNotifications()
	replayErr := s.replayWebhooks(ctx)
	s.sweepVisitors()
	return errors.Join(purgeErr, replayErr)
}
