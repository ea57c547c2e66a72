package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/gigmarket_server/internal/api/middleware"
	"github.com/qs3c/gigmarket_server/internal/pkg/response"
)

// currentUser 取当前登录用户，未登录时已写入响应
func currentUser(c *gin.Context) (int64, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
	}
	return userID, ok
}

// pathID 解析路径中的 :id
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "无效的 ID")
		return 0, false
	}
	return id, true
}

// pagination 分页参数，超出范围时回退到默认值
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
