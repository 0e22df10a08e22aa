package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/freelance-marketplace/internal/service"
)

// ProfileHandler отвечает за работу с профилем.
type ProfileHandler struct {
	profiles *service.ProfileService
	realtime repository.RealtimePublisher
}

// NewProfileHandler создаёт экземпляр. realtime может быть nil.
func NewProfileHandler(profiles *service.ProfileService, realtime repository.RealtimePublisher) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, realtime: realtime}
}

// GetMe возвращает профиль текущего пользователя.
func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	user, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// UpdateMe обновляет био, навыки и роль текущего пользователя.
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var req struct {
		Bio    *string  `json:"bio"`
		Skills []string `json:"skills"`
		Role   *string  `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	user, err := h.profiles.Update(c.Request.Context(), userID, service.UpdateProfileInput{
		Bio:    req.Bio,
		Skills: req.Skills,
		Role:   req.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	// Другие вкладки пользователя подхватят новую роль без перезагрузки.
	if h.realtime != nil {
		h.realtime.PublishToUser(c.Request.Context(), userID, "profile:updated", user.Public())
	}

	response.Success(c, user)
}

// GetPublic обрабатывает GET /users/:id.
func (h *ProfileHandler) GetPublic(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "неверный идентификатор пользователя")
		return
	}

	profile, err := h.profiles.Public(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, profile)
}

// TopFreelancers обрабатывает GET /users/top-freelancers.
func (h *ProfileHandler) TopFreelancers(c *gin.Context) {
	limit := common.ParseIntQuery(c, "limit", 10)

	profiles, err := h.profiles.TopFreelancers(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, profiles)
}
