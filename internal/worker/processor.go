package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/internal/pkg/email"
	"github.com/qs3c/gigmarket_server/internal/pkg/logger"
	"github.com/qs3c/gigmarket_server/internal/pkg/metrics"
	"github.com/qs3c/gigmarket_server/internal/pkg/queue"
	"github.com/qs3c/gigmarket_server/internal/repository"
)

// MaxEmailAttempts 单封邮件最多投递次数
const MaxEmailAttempts = 3

const popTimeout = 5 * time.Second

// Processor 邮件任务处理器
type Processor struct {
	userRepo *repository.UserRepository
	mailer   *email.Service
	queue    *queue.Queue
	log      *logrus.Entry
}

// NewProcessor 创建邮件任务处理器
func NewProcessor(userRepo *repository.UserRepository, mailer *email.Service, q *queue.Queue) *Processor {
	return &Processor{
		userRepo: userRepo,
		mailer:   mailer,
		queue:    q,
		log:      logger.WithSource("worker"),
	}
}

// Process 投递一封通知邮件，失败时重新入队直到达到次数上限
func (p *Processor) Process(ctx context.Context, job *queue.EmailJob) error {
	fields := logrus.Fields{
		"notification_id": job.NotificationID,
		"user_id":         job.UserID,
		"attempts":        job.Attempts,
	}

	user, err := p.userRepo.GetByID(job.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.log.WithFields(fields).Warn("Dropping email job for missing user")
			return nil
		}
		return p.retry(ctx, job, fmt.Errorf("failed to load user: %w", err))
	}
	if user.Email == nil || *user.Email == "" {
		p.log.WithFields(fields).Debug("User has no email, skipping")
		return nil
	}

	if err := p.mailer.SendNotification(*user.Email, user.Username, job.Subject, job.Body); err != nil {
		return p.retry(ctx, job, fmt.Errorf("failed to send email: %w", err))
	}

	p.log.WithFields(fields).Info("Notification email sent")
	return nil
}

func (p *Processor) retry(ctx context.Context, job *queue.EmailJob, cause error) error {
	metrics.NotificationFailures.WithLabelValues("email_send").Inc()

	job.Attempts++
	entry := p.log.WithError(cause).WithFields(logrus.Fields{
		"notification_id": job.NotificationID,
		"attempts":        job.Attempts,
	})
	if job.Attempts >= MaxEmailAttempts {
		entry.Error("Email job exhausted retries, dropping")
		return cause
	}

	if err := p.queue.Push(ctx, job); err != nil {
		entry.WithField("requeue_error", err.Error()).Error("Failed to requeue email job")
		return cause
	}
	entry.Warn("Email job requeued")
	return cause
}

// Run 启动 workers 个消费协程，ctx 取消后等待全部退出
func (p *Processor) Run(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (p *Processor) loop(ctx context.Context, workerID int) {
	log := p.log.WithField("worker_id", workerID)
	for {
		if ctx.Err() != nil {
			log.Debug("Worker shutting down")
			return
		}

		job, err := p.queue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("Failed to pop email job")
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue // 超时，继续等待
		}

		// 错误已在 Process 内记录
		_ = p.Process(ctx, job)
	}
}
