package model

import (
	"time"
)

const (
	GigStatusActive = "active"
	GigStatusPaused = "paused"
)

// Gig 卖家发布的服务
type Gig struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	SellerID         int64     `gorm:"not null;index" json:"seller_id"`
	Title            string    `gorm:"size:200;not null" json:"title"`
	Description      string    `gorm:"type:text" json:"description"`
	Price            float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	DeliveryDays     int       `gorm:"not null" json:"delivery_days"`
	RevisionsAllowed int       `gorm:"default:0" json:"revisions_allowed"`
	Status           string    `gorm:"size:20;default:active;index" json:"status"` // active, paused
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Seller *User `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
}

func (Gig) TableName() string {
	return "gigs"
}
