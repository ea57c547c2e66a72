package handler

import (
	"fmt"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/gigmarket_server/internal/model"
	"github.com/qs3c/gigmarket_server/internal/model/dto"
	"github.com/qs3c/gigmarket_server/internal/pkg/response"
	"github.com/qs3c/gigmarket_server/internal/testutil"
)

func notificationRouter(env *handlerEnv, user *model.User) *gin.Engine {
	h := NewNotificationHandler(env.notifier)

	router := gin.New()
	router.Use(asUser(user))
	router.GET("/notifications", h.List)
	router.GET("/notifications/unread-count", h.UnreadCount)
	router.POST("/notifications/read-all", h.MarkAllRead)
	router.POST("/notifications/:id/read", h.MarkRead)
	return router
}

func TestNotificationHandler_Flow(t *testing.T) {
	env, cleanup := setupHandlerEnv(t)
	defer cleanup()

	user := testutil.TestUser(t, env.db)
	other := testutil.TestUser(t, env.db)
	first := testutil.TestNotification(t, env.db, user.ID)
	testutil.TestNotification(t, env.db, user.ID)
	foreign := testutil.TestNotification(t, env.db, other.ID)

	router := notificationRouter(env, user)

	resp := parseResponse(t, performRequest(router, "GET", "/notifications/unread-count", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	var count dto.UnreadCountResponse
	decodeData(t, resp, &count)
	assert.Equal(t, int64(2), count.Count)

	resp = parseResponse(t, performRequest(router, "POST", fmt.Sprintf("/notifications/%d/read", first.ID), nil))
	require.Equal(t, response.CodeSuccess, resp.Code)

	resp = parseResponse(t, performRequest(router, "POST", fmt.Sprintf("/notifications/%d/read", foreign.ID), nil))
	assert.Equal(t, response.CodeResourceNotFound, resp.Code)

	resp = parseResponse(t, performRequest(router, "GET", "/notifications?unread_only=true", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	var page response.PageData
	decodeData(t, resp, &page)
	assert.Equal(t, int64(1), page.Total)

	resp = parseResponse(t, performRequest(router, "POST", "/notifications/read-all", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	decodeData(t, resp, &count)
	assert.Equal(t, int64(1), count.Count)
}
