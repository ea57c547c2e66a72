package model

import (
	"time"
)

type TransactionType string

const (
	TransactionPayment TransactionType = "PAYMENT"
	TransactionRefund  TransactionType = "REFUND"
	TransactionPayout  TransactionType = "PAYOUT"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
)

// Transaction 账本记录，(gateway, external_id) 唯一
type Transaction struct {
	ID             int64             `gorm:"primaryKey" json:"id"`
	UserID         int64             `gorm:"not null;index" json:"user_id"`
	SubscriptionID *int64            `gorm:"index" json:"subscription_id,omitempty"`
	OrderID        *int64            `gorm:"index" json:"order_id,omitempty"`
	ExternalID     string            `gorm:"size:100;not null;uniqueIndex:idx_gateway_external" json:"external_id"`
	Gateway        string            `gorm:"size:30;not null;uniqueIndex:idx_gateway_external" json:"gateway"`
	Amount         float64           `gorm:"type:decimal(10,2);not null" json:"amount"`
	PlatformFee    float64           `gorm:"type:decimal(10,2);default:0" json:"platform_fee"`
	Type           TransactionType   `gorm:"size:20;not null" json:"type"`
	Status         TransactionStatus `gorm:"size:20;not null;index" json:"status"`
	Metadata       string            `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
