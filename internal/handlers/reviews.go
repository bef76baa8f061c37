package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goout-id/goout/internal/services"
	"github.com/goout-id/goout/pkg/response"
)

// ReviewHandler accepts and lists todo reviews.
type ReviewHandler struct {
	svc *services.ReviewService
}

func NewReviewHandler(svc *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

type reviewRequest struct {
	Content string   `json:"content" validate:"required,min=12"`
	Rating  int      `json:"rating" validate:"required,min=1,max=5"`
	UserID  string   `json:"userId" validate:"required,notblank"`
	Images  []string `json:"images" validate:"dive,url"`
}

// POST /api/v1/reviews/:todoId
func (h *ReviewHandler) Create(c *gin.Context) {
	var req reviewRequest
	if !bindAndValidate(c, &req) {
		return
	}

	review, err := h.svc.Create(requestContext(c), services.ReviewInput{
		TodoID:  c.Param("todoId"),
		UserID:  req.UserID,
		Content: req.Content,
		Rating:  req.Rating,
		Images:  req.Images,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, review)
}

// GET /api/v1/reviews/:todoId
func (h *ReviewHandler) List(c *gin.Context) {
	opts := listOptions(c)
	reviews, total, err := h.svc.List(requestContext(c), c.Param("todoId"), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeList(c, reviews, total, opts)
}
