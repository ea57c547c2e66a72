package model

import (
	"time"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderDisputed   OrderStatus = "DISPUTED"
	OrderRefunded   OrderStatus = "REFUNDED"
)

type Order struct {
	ID               int64       `gorm:"primaryKey" json:"id"`
	BuyerID          int64       `gorm:"not null;index" json:"buyer_id"`
	SellerID         int64       `gorm:"not null;index" json:"seller_id"`
	GigID            int64       `gorm:"not null;index" json:"gig_id"`
	Price            float64     `gorm:"type:decimal(10,2);not null" json:"price"`
	PlatformFee      float64     `gorm:"type:decimal(10,2);default:0" json:"platform_fee"`
	Requirements     string      `gorm:"type:text" json:"requirements"`
	Status           OrderStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	Progress         int         `gorm:"default:0" json:"progress"`
	DueDate          time.Time   `gorm:"not null" json:"due_date"`
	DeliveredAt      *time.Time  `json:"delivered_at,omitempty"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
	Deliverables     StringArray `gorm:"type:text" json:"deliverables"`
	RevisionsUsed    int         `gorm:"default:0" json:"revisions_used"`
	RevisionsAllowed int         `gorm:"default:0" json:"revisions_allowed"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// IsParty 是否为订单买家或卖家
func (o *Order) IsParty(userID int64) bool {
	return o.BuyerID == userID || o.SellerID == userID
}

// Review 买家对已完成订单的评价，每个订单唯一
type Review struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	OrderID   int64     `gorm:"not null;uniqueIndex" json:"order_id"`
	GigID     int64     `gorm:"not null;index" json:"gig_id"`
	BuyerID   int64     `gorm:"not null;index" json:"buyer_id"`
	SellerID  int64     `gorm:"not null;index" json:"seller_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}
