package model

import (
	"time"
)

// WebhookEvent 已验签的网关回调原文，用于重放与排查
type WebhookEvent struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	DeliveryID      string     `gorm:"size:36;uniqueIndex;not null" json:"delivery_id"`
	Gateway         string     `gorm:"size:30;not null" json:"gateway"`
	EventType       string     `gorm:"size:100;not null;index" json:"event_type"`
	Payload         string     `gorm:"type:text;not null" json:"payload"`
	Outcome         string     `gorm:"size:20" json:"outcome"`
	ProcessingError string     `gorm:"type:text" json:"processing_error,omitempty"`
	Attempts        int        `gorm:"default:0" json:"attempts"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// Failed 处理失败且未成功重放
func (e *WebhookEvent) Failed() bool {
	return e.ProcessingError != ""
}
