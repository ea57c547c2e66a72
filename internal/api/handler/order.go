package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/gigmarket_server/internal/api/middleware"
	"github.com/qs3c/gigmarket_server/internal/model/dto"
	"github.com/qs3c/gigmarket_server/internal/pkg/logger"
	"github.com/qs3c/gigmarket_server/internal/pkg/response"
	"github.com/qs3c/gigmarket_server/internal/service"
)

const defaultMaxDeliverableSize = 20 << 20

type OrderHandler struct {
	orderService  *service.OrderService
	maxUploadSize int64
}

func NewOrderHandler(orderService *service.OrderService, maxUploadSize int64) *OrderHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxDeliverableSize
	}
	return &OrderHandler{
		orderService:  orderService,
		maxUploadSize: maxUploadSize,
	}
}

// Create 下单
// POST /api/v1/orders
func (h *OrderHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.orderService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		orderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "下单成功", item)
}

// List 我的订单
// GET /api/v1/orders?role=buyer|seller&status=
func (h *OrderHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	role := c.DefaultQuery("role", "buyer")
	if role != "buyer" && role != "seller" {
		response.ParamError(c, "role 只能是 buyer 或 seller")
		return
	}
	page, pageSize := pagination(c)

	items, total, err := h.orderService.List(userID, role, c.Query("status"), page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Get 订单详情
// GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.orderService.Get(orderID, userID, middleware.IsAdmin(c))
	if err != nil {
		orderError(c, err)
		return
	}

	response.Success(c, item)
}

// Start 卖家开始
// POST /api/v1/orders/:id/start
func (h *OrderHandler) Start(c *gin.Context) {
	h.simpleTransition(c, h.orderService.Start)
}

// Progress 更新进度
// POST /api/v1/orders/:id/progress
func (h *OrderHandler) Progress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.orderService.UpdateProgress(c.Request.Context(), orderID, userID, req.Progress)
	if err != nil {
		orderError(c, err)
		return
	}

	response.Success(c, item)
}

// Deliver 交付
// POST /api/v1/orders/:id/deliver
func (h *OrderHandler) Deliver(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.DeliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.orderService.Deliver(c.Request.Context(), orderID, userID, &req)
	if err != nil {
		orderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已交付", item)
}

// Revision 买家要求修改
// POST /api/v1/orders/:id/revision
func (h *OrderHandler) Revision(c *gin.Context) {
	h.simpleTransition(c, h.orderService.RequestRevision)
}

// Accept 买家验收
// POST /api/v1/orders/:id/accept
func (h *OrderHandler) Accept(c *gin.Context) {
	h.simpleTransition(c, h.orderService.Accept)
}

// Cancel 取消订单
// POST /api/v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.simpleTransition(c, h.orderService.Cancel)
}

// Dispute 发起争议
// POST /api/v1/orders/:id/dispute
func (h *OrderHandler) Dispute(c *gin.Context) {
	h.simpleTransition(c, h.orderService.Dispute)
}

// Refund 管理员退款
// POST /api/v1/orders/:id/refund
func (h *OrderHandler) Refund(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.orderService.Refund(c.Request.Context(), orderID, userID, middleware.IsAdmin(c))
	if err != nil {
		orderError(c, err)
		return
	}

	response.Success(c, item)
}

// Review 评价
// POST /api/v1/orders/:id/review
func (h *OrderHandler) Review(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.orderService.Review(c.Request.Context(), orderID, userID, &req)
	if err != nil {
		orderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "评价成功", item)
}

// UploadDeliverable 上传交付文件，返回的地址再通过 deliver 附加到订单
// POST /api/v1/orders/:id/deliverables/upload
func (h *OrderHandler) UploadDeliverable(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.ParamError(c, "请选择要上传的文件")
		return
	}
	if fileHeader.Size > h.maxUploadSize {
		orderError(c, service.ErrDeliverableTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return
	}

	url, err := h.orderService.UploadDeliverable(orderID, userID, fileHeader.Filename, data)
	if err != nil {
		orderError(c, err)
		return
	}

	response.Success(c, &dto.UploadDeliverableResponse{URL: url})
}

type transitionFunc func(ctx context.Context, orderID, userID int64) (*dto.OrderItem, error)

func (h *OrderHandler) simpleTransition(c *gin.Context, fn transitionFunc) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	item, err := fn(c.Request.Context(), orderID, userID)
	if err != nil {
		orderError(c, err)
		return
	}

	response.Success(c, item)
}

func orderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrGigNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrNotOrderSeller),
		errors.Is(err, service.ErrNotOrderBuyer),
		errors.Is(err, service.ErrNotOrderParty),
		errors.Is(err, service.ErrAdminOnly):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrRevisionLimit):
		response.TransitionError(c, err.Error())
	case errors.Is(err, service.ErrReviewExists):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrInvalidProgress),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrSelfOrder),
		errors.Is(err, service.ErrGigUnavailable),
		errors.Is(err, service.ErrDeliverableTooLarge):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		response.ServerError(c, err.Error())
	default:
		logger.WithSource("api").WithError(err).Error("Order request failed")
		response.ServerError(c, "")
	}
}
