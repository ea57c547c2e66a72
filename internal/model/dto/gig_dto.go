package dto

// CreateGigRequest 发布 gig 请求
type CreateGigRequest struct {
	Title            string  `json:"title" binding:"required,max=200"`
	Description      string  `json:"description,omitempty" binding:"omitempty,max=5000"`
	Price            float64 `json:"price" binding:"required,gt=0"`
	DeliveryDays     int     `json:"delivery_days" binding:"required,min=1,max=90"`
	RevisionsAllowed int     `json:"revisions_allowed" binding:"omitempty,min=0,max=10"`
}

// GigItem gig 信息
type GigItem struct {
	ID               int64   `json:"id"`
	SellerID         int64   `json:"seller_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Price            float64 `json:"price"`
	DeliveryDays     int     `json:"delivery_days"`
	RevisionsAllowed int     `json:"revisions_allowed"`
	Status           string  `json:"status"`
	CreatedAt        string  `json:"created_at"`
}
