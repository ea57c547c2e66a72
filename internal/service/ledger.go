package service

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/internal/model"
	"github.com/qs3c/gigmarket_server/internal/repository"
)

// LedgerEntry 一次资金事件
type LedgerEntry struct {
	UserID         int64
	SubscriptionID *int64
	OrderID        *int64
	Gateway        string
	ExternalID     string
	Amount         float64
	PlatformFee    float64
	Type           model.TransactionType
	Status         model.TransactionStatus
	Event          string
	Payload        []byte
}

type ledgerMetadata struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (e *LedgerEntry) metadata() string {
	meta := ledgerMetadata{Event: e.Event}
	if json.Valid(e.Payload) {
		meta.Payload = e.Payload
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return ""
	}
	return string(data)
}

// upsertLedger 按 (gateway, external_id) 插入或更新账本记录。
// 返回更新前的记录，新插入时为 nil。唯一键冲突原样返回，由调用方重试整个事务。
func upsertLedger(repo *repository.TransactionRepository, e *LedgerEntry) (*model.Transaction, error) {
	prev, err := repo.GetByExternalID(e.Gateway, e.ExternalID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if prev == nil {
		row := &model.Transaction{
			UserID:         e.UserID,
			SubscriptionID: e.SubscriptionID,
			OrderID:        e.OrderID,
			ExternalID:     e.ExternalID,
			Gateway:        e.Gateway,
			Amount:         e.Amount,
			PlatformFee:    e.PlatformFee,
			Type:           e.Type,
			Status:         e.Status,
			Metadata:       e.metadata(),
		}
		if err := repo.Create(row); err != nil {
			return nil, err
		}
		return nil, nil
	}

	fields := map[string]interface{}{
		"metadata": e.metadata(),
	}
	if nextLedgerStatus(prev.Status, e.Status) != prev.Status {
		fields["status"] = e.Status
	}
	if prev.SubscriptionID == nil && e.SubscriptionID != nil {
		fields["subscription_id"] = *e.SubscriptionID
	}
	if prev.OrderID == nil && e.OrderID != nil {
		fields["order_id"] = *e.OrderID
	}
	if prev.Amount == 0 && e.Amount > 0 {
		fields["amount"] = e.Amount
	}
	if err := repo.UpdateFields(prev.ID, fields); err != nil {
		return nil, err
	}
	return prev, nil
}

// nextLedgerStatus COMPLETED 为终态，不会被后到的 PENDING/FAILED 覆盖
func nextLedgerStatus(current, incoming model.TransactionStatus) model.TransactionStatus {
	if current == model.TransactionCompleted {
		return current
	}
	if incoming == "" {
		return current
	}
	return incoming
}

// markLedgerFailed 将 PENDING 记录标记为 FAILED，返回更新前的记录，不存在时为 nil。
// 已是 FAILED 或 COMPLETED 的记录保持原样。
func markLedgerFailed(repo *repository.TransactionRepository, gateway, externalID, event string, payload []byte) (*model.Transaction, error) {
	prev, err := repo.GetByExternalID(gateway, externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if nextLedgerStatus(prev.Status, model.TransactionFailed) == prev.Status {
		return prev, nil
	}

	e := &LedgerEntry{Event: event, Payload: payload}
	fields := map[string]interface{}{
		"status":   model.TransactionFailed,
		"metadata": e.metadata(),
	}
	if err := repo.UpdateFields(prev.ID, fields); err != nil {
		return nil, err
	}
	return prev, nil
}

// runAtomic 在一个事务内执行 fn；并发插入同一账本记录导致唯一键冲突时整体重试一次，
// 第二次执行会读到对方已提交的记录。fn 需要在开头重置自己的输出。
func runAtomic(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	err := db.WithContext(ctx).Transaction(fn)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = db.WithContext(ctx).Transaction(fn)
	}
	return err
}
