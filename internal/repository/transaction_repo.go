package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/gigmarket_server/internal/model"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

// Create 插入账本记录，(gateway, external_id) 冲突时返回 gorm.ErrDuplicatedKey
func (r *TransactionRepository) Create(tx *model.Transaction) error {
	return r.db.Create(tx).Error
}

// GetByExternalID 根据网关与支付 ID 查询
func (r *TransactionRepository) GetByExternalID(gateway, externalID string) (*model.Transaction, error) {
	var tx model.Transaction
	err := r.db.Where("gateway = ? AND external_id = ?", gateway, externalID).First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// UpdateFields 按 ID 更新字段
func (r *TransactionRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Transaction{}).Where("id = ?", id).Updates(fields).Error
}

// ListByUser 用户的账本记录
func (r *TransactionRepository) ListByUser(userID int64, page, pageSize int) ([]*model.Transaction, int64, error) {
	var txs []*model.Transaction
	var total int64

	query := r.db.Model(&model.Transaction{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&txs).Error
	if err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}
