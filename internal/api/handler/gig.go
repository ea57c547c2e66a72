package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/gigmarket_server/internal/model/dto"
	"github.com/qs3c/gigmarket_server/internal/pkg/response"
	"github.com/qs3c/gigmarket_server/internal/service"
)

type GigHandler struct {
	gigService *service.GigService
}

func NewGigHandler(gigService *service.GigService) *GigHandler {
	return &GigHandler{
		gigService: gigService,
	}
}

// Create 发布 gig
// POST /api/v1/gigs
func (h *GigHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateGigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.gigService.Create(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubscriptionNotFound):
			response.SubscriptionRequired(c, "")
		case errors.Is(err, service.ErrGigLimitReached):
			response.QuotaError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "发布成功", item)
}

// Get gig 详情
// GET /api/v1/gigs/:id
func (h *GigHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.gigService.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrGigNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, item)
}

// List gig 列表
// GET /api/v1/gigs?seller_id=
func (h *GigHandler) List(c *gin.Context) {
	sellerID, _ := strconv.ParseInt(c.Query("seller_id"), 10, 64)
	page, pageSize := pagination(c)

	items, total, err := h.gigService.List(sellerID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}
