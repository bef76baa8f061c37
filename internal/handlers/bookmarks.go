package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goout-id/goout/internal/services"
	"github.com/goout-id/goout/pkg/response"
)

// BookmarkHandler saves and removes todos for a user.
type BookmarkHandler struct {
	svc *services.BookmarkService
}

func NewBookmarkHandler(svc *services.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{svc: svc}
}

type bookmarkRequest struct {
	UserID string `json:"userId" validate:"required,notblank"`
}

// POST /api/v1/todos/:id/bookmarks
func (h *BookmarkHandler) Add(c *gin.Context) {
	var req bookmarkRequest
	if !bindAndValidate(c, &req) {
		return
	}

	bookmark, err := h.svc.Add(requestContext(c), req.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, bookmark)
}

// DELETE /api/v1/todos/:id/bookmarks
func (h *BookmarkHandler) Remove(c *gin.Context) {
	var req bookmarkRequest
	if !bindAndValidate(c, &req) {
		return
	}

	bookmark, err := h.svc.Remove(requestContext(c), req.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, bookmark)
}

// GET /api/v1/users/:id/bookmarks
func (h *BookmarkHandler) List(c *gin.Context) {
	opts := listOptions(c)
	bookmarks, total, err := h.svc.List(requestContext(c), c.Param("id"), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeList(c, bookmarks, total, opts)
}
