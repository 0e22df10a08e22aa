package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-marketplace/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/freelance-marketplace/internal/service"
)

type BookmarkHandler struct {
	svc *service.BookmarkService
}

func NewBookmarkHandler(s *service.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{svc: s}
}

// Add POST /bookmarks/:jobId
func (h *BookmarkHandler) Add(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "jobId")
	if err != nil {
		response.BadRequest(c, "invalid job_id")
		return
	}

	bookmark, err := h.svc.Add(c.Request.Context(), userID, jobID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bookmark)
}

// Remove DELETE /bookmarks/:jobId
func (h *BookmarkHandler) Remove(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "jobId")
	if err != nil {
		response.BadRequest(c, "invalid job_id")
		return
	}

	if err := h.svc.Remove(c.Request.Context(), userID, jobID); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "removed", nil)
}

// List GET /bookmarks
func (h *BookmarkHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	bookmarks, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, bookmarks)
}

// Check GET /bookmarks/:jobId
func (h *BookmarkHandler) Check(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "jobId")
	if err != nil {
		response.BadRequest(c, "invalid job_id")
		return
	}

	ok, err := h.svc.IsBookmarked(c.Request.Context(), userID, jobID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"is_bookmarked": ok})
}
