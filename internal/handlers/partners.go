package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goout-id/goout/internal/services"
	"github.com/goout-id/goout/pkg/response"
)

// PartnerHandler exposes partner CRUD.
type PartnerHandler struct {
	svc *services.PartnerService
}

func NewPartnerHandler(svc *services.PartnerService) *PartnerHandler {
	return &PartnerHandler{svc: svc}
}

type partnerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name" validate:"required,notblank,max=36"`
	Description string `json:"description" validate:"max=191"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
}

func (r partnerRequest) input() services.PartnerInput {
	return services.PartnerInput{
		Email:       r.Email,
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.ImageURL,
	}
}

// POST /api/v1/partners
func (h *PartnerHandler) Create(c *gin.Context) {
	var req partnerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	partner, err := h.svc.Create(requestContext(c), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, partner)
}

// GET /api/v1/partners
func (h *PartnerHandler) List(c *gin.Context) {
	opts := listOptions(c)
	partners, total, err := h.svc.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeList(c, partners, total, opts)
}

// GET /api/v1/partners/:id
func (h *PartnerHandler) Get(c *gin.Context) {
	partner, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, partner)
}

// PUT /api/v1/partners/:id
func (h *PartnerHandler) Update(c *gin.Context) {
	var req partnerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	partner, err := h.svc.Update(requestContext(c), c.Param("id"), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, partner)
}

// DELETE /api/v1/partners/:id
func (h *PartnerHandler) Delete(c *gin.Context) {
	partner, err := h.svc.Delete(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, partner)
}
