package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-marketplace/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/freelance-marketplace/internal/service"
)

// PostHandler обслуживает ленту публикаций.
type PostHandler struct {
	posts *service.PostService
}

func NewPostHandler(posts *service.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// Create POST /posts
func (h *PostHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var req struct {
		Content  string   `json:"content" binding:"required"`
		PostType string   `json:"post_type"`
		Tags     []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "текст публикации обязателен")
		return
	}

	post, err := h.posts.Create(c.Request.Context(), userID, service.CreatePostInput{
		Content:  req.Content,
		PostType: req.PostType,
		Tags:     req.Tags,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// List GET /posts?type=&limit=&offset=
func (h *PostHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	posts, total, err := h.posts.List(c.Request.Context(), c.Query("type"), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, posts, total, limit, offset)
}

// Get GET /posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "неверный идентификатор публикации")
		return
	}

	post, err := h.posts.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}

// Delete DELETE /posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "неверный идентификатор публикации")
		return
	}

	if err := h.posts.Delete(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "публикация удалена", nil)
}

// ToggleLike POST /posts/:id/like
func (h *PostHandler) ToggleLike(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "неверный идентификатор публикации")
		return
	}

	result, err := h.posts.ToggleLike(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Comment POST /posts/:id/comments
func (h *PostHandler) Comment(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "неверный идентификатор публикации")
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	comment, err := h.posts.Comment(c.Request.Context(), id, userID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// Comments GET /posts/:id/comments
func (h *PostHandler) Comments(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "неверный идентификатор публикации")
		return
	}

	comments, err := h.posts.Comments(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, comments)
}

// React POST /posts/:id/reactions
func (h *PostHandler) React(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "неверный идентификатор публикации")
		return
	}

	var req struct {
		Kind string `json:"kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	reaction, err := h.posts.React(c.Request.Context(), id, userID, req.Kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, reaction)
}

// Reactions GET /posts/:id/reactions
func (h *PostHandler) Reactions(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "неверный идентификатор публикации")
		return
	}

	reactions, err := h.posts.Reactions(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, reactions)
}
