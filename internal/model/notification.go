package model

import (
	"time"
)

const (
	NotificationSystem  = "SYSTEM"
	NotificationPayment = "PAYMENT"
	NotificationOrder   = "ORDER"
)

type Notification struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	Type      string    `gorm:"size:20;not null;default:SYSTEM" json:"type"`
	IsRead    bool      `gorm:"index" json:"is_read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
