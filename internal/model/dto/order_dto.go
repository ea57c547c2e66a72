package dto

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	GigID        int64  `json:"gig_id" binding:"required"`
	Requirements string `json:"requirements" binding:"omitempty,max=5000"`
}

// ProgressRequest 更新进度请求
type ProgressRequest struct {
	Progress int `json:"progress" binding:"min=0,max=100"`
}

// DeliverRequest 交付请求
type DeliverRequest struct {
	Deliverables []string `json:"deliverables" binding:"omitempty,max=20,dive,required,max=500"`
	Progress     *int     `json:"progress,omitempty" binding:"omitempty,min=0,max=100"`
}

// ReviewRequest 评价请求
type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment" binding:"omitempty,max=2000"`
}

// UploadDeliverableResponse 交付文件上传响应
type UploadDeliverableResponse struct {
	URL string `json:"url"`
}

// OrderItem 订单信息
type OrderItem struct {
	ID               int64    `json:"id"`
	BuyerID          int64    `json:"buyer_id"`
	SellerID         int64    `json:"seller_id"`
	GigID            int64    `json:"gig_id"`
	Price            float64  `json:"price"`
	PlatformFee      float64  `json:"platform_fee"`
	Requirements     string   `json:"requirements"`
	Status           string   `json:"status"`
	Progress         int      `json:"progress"`
	DueDate          string   `json:"due_date"`
	DeliveredAt      string   `json:"delivered_at,omitempty"`
	CompletedAt      string   `json:"completed_at,omitempty"`
	Deliverables     []string `json:"deliverables"`
	RevisionsUsed    int      `json:"revisions_used"`
	RevisionsAllowed int      `json:"revisions_allowed"`
	CreatedAt        string   `json:"created_at"`
}

// ReviewItem 评价信息
type ReviewItem struct {
	ID        int64  `json:"id"`
	OrderID   int64  `json:"order_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	CreatedAt string `json:"created_at"`
}
