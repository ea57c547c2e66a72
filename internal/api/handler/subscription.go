package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/gigmarket_server/internal/model/dto"
	"github.com/qs3c/gigmarket_server/internal/pkg/logger"
	"github.com/qs3c/gigmarket_server/internal/pkg/payment"
	"github.com/qs3c/gigmarket_server/internal/pkg/response"
	"github.com/qs3c/gigmarket_server/internal/service"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
	}
}

// Current 当前订阅
// GET /api/v1/subscription
func (h *SubscriptionHandler) Current(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	info, err := h.subscriptionService.Current(userID)
	if err != nil {
		subscriptionError(c, err)
		return
	}

	response.Success(c, info)
}

// Checkout 发起订阅
// POST /api/v1/subscription/checkout
func (h *SubscriptionHandler) Checkout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.subscriptionService.CreateCheckout(c.Request.Context(), userID, &req)
	if err != nil {
		subscriptionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "订阅已创建，请完成支付", resp)
}

// Cancel 取消订阅
// POST /api/v1/subscription/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.subscriptionService.Cancel(c.Request.Context(), userID); err != nil {
		subscriptionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "订阅已取消", nil)
}

// Transactions 账本记录
// GET /api/v1/transactions
func (h *SubscriptionHandler) Transactions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	page, pageSize := pagination(c)
	items, total, err := h.subscriptionService.ListTransactions(userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

func subscriptionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubscriptionNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrSubscriptionExists):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrInvalidPlan), errors.Is(err, service.ErrInvalidBillingCycle):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrSubscriptionNotCancellable):
		response.TransitionError(c, err.Error())
	case errors.Is(err, payment.ErrGatewayUnavailable):
		response.ServerError(c, "支付网关暂不可用，请稍后再试")
	default:
		logger.WithSource("api").WithError(err).Error("Subscription request failed")
		response.ServerError(c, "")
	}
}
