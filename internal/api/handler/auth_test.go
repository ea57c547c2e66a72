package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/gigmarket_server/internal/model/dto"
	"github.com/qs3c/gigmarket_server/internal/pkg/response"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, func()) {
	t.Helper()

	env, cleanup := setupHandlerEnv(t)
	handler := NewAuthHandler(env.auth)

	router := gin.New()
	router.POST("/register", handler.Register)
	router.POST("/login", handler.Login)
	return router, cleanup
}

func TestAuthHandler_Register_Success(t *testing.T) {
	router, cleanup := setupAuthRouter(t)
	defer cleanup()

	req := dto.RegisterRequest{
		Email:    "test@example.com",
		Username: "testuser",
		Password: "password123",
	}

	w := performRequest(router, "POST", "/register", req)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	router, cleanup := setupAuthRouter(t)
	defer cleanup()

	req := dto.RegisterRequest{
		Email:    "test@example.com",
		Username: "testuser1",
		Password: "password123",
	}

	w := performRequest(router, "POST", "/register", req)
	assert.Equal(t, http.StatusOK, w.Code)

	req.Username = "testuser2"
	w = performRequest(router, "POST", "/register", req)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestAuthHandler_Register_InvalidRequest(t *testing.T) {
	router, cleanup := setupAuthRouter(t)
	defer cleanup()

	w := performRequest(router, "POST", "/register", map[string]string{
		"email": "invalid-email",
	})
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	router, cleanup := setupAuthRouter(t)
	defer cleanup()

	w := performRequest(router, "POST", "/register", dto.RegisterRequest{
		Email:    "login@example.com",
		Username: "loginuser",
		Password: "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, "POST", "/login", dto.LoginRequest{
		Email:    "login@example.com",
		Password: "password123",
	})
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var login dto.LoginResponse
	decodeData(t, resp, &login)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "loginuser", login.User.Username)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	router, cleanup := setupAuthRouter(t)
	defer cleanup()

	w := performRequest(router, "POST", "/login", dto.LoginRequest{
		Email:    "nonexistent@example.com",
		Password: "wrongpassword",
	})
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeAuthFailed, resp.Code)
}

func TestAuthHandler_Login_InvalidRequest(t *testing.T) {
	router, cleanup := setupAuthRouter(t)
	defer cleanup()

	w := performRequest(router, "POST", "/login", map[string]string{})
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeParamError, resp.Code)
}
