package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/gigmarket_server/internal/pkg/response"
)

// SubscriptionChecker 查询卖家订阅是否有效
type SubscriptionChecker interface {
	IsSubscriptionActive(sellerID int64) bool
}

// RequireActiveSubscription 卖家订阅检查中间件
func RequireActiveSubscription(checker SubscriptionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		if !checker.IsSubscriptionActive(userID) {
			response.SubscriptionRequired(c, "发布 gig 需要有效的卖家订阅")
			c.Abort()
			return
		}

		c.Next()
	}
}
