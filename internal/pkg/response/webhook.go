package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WebhookResult 支付网关回调响应体，回调接口使用真实 HTTP 状态码
type WebhookResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// WebhookAck 确认收到回调
func WebhookAck(c *gin.Context) {
	c.JSON(http.StatusOK, WebhookResult{Status: "success"})
}

// WebhookReject 拒绝回调
func WebhookReject(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, WebhookResult{Status: "error", Error: message})
}
