package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-marketplace/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-marketplace/internal/http/middleware"
	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/freelance-marketplace/internal/service"
)

// AuthHandler предоставляет HTTP слой для регистрации и логина.
type AuthHandler struct {
	auth         *service.AuthService
	secureCookie bool
}

// NewAuthHandler создаёт хэндлер. secureCookie включает флаг Secure для cookie с токеном.
func NewAuthHandler(auth *service.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookie: secureCookie}
}

type authResponse struct {
	User   any                `json:"user"`
	Tokens *service.TokenPair `json:"tokens"`
}

// Register обрабатывает POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email и пароль обязательны")
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Role:     req.Role,
	}, common.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setAccessCookie(c, result.TokenPair)
	response.Created(c, authResponse{User: result.User, Tokens: result.TokenPair})
}

// Login обрабатывает POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email и пароль обязательны")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, common.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setAccessCookie(c, result.TokenPair)
	response.Success(c, authResponse{User: result.User, Tokens: result.TokenPair})
}

// Refresh обрабатывает POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "refresh_token обязателен")
		return
	}

	tokenPair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, common.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setAccessCookie(c, tokenPair)
	response.Success(c, gin.H{"tokens": tokenPair})
}

// Logout обрабатывает POST /auth/logout. Повторный выход не считается ошибкой.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.ShouldBindJSON(&req)

	if req.RefreshToken != "" {
		if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
			response.Error(c, err)
			return
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", h.secureCookie, true)
	response.SuccessWithMessage(c, "сессия завершена", nil)
}

// Me обрабатывает GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	user, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

func (h *AuthHandler) setAccessCookie(c *gin.Context, pair *service.TokenPair) {
	if pair == nil {
		return
	}
	maxAge := int(pair.ExpiresIn)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, pair.AccessToken, maxAge, "/", "", h.secureCookie, true)
}
