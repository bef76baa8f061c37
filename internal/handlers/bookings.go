package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goout-id/goout/internal/services"
	"github.com/goout-id/goout/pkg/response"
)

// BookingHandler exposes booking creation and lookup.
type BookingHandler struct {
	svc *services.BookingService
}

func NewBookingHandler(svc *services.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

type bookingRequest struct {
	Quantity   int       `json:"quantity" validate:"required,min=1"`
	TotalPrice int64     `json:"totalPrice" validate:"gte=0"`
	StartDate  time.Time `json:"startDate" validate:"required"`
	EndDate    time.Time `json:"endDate" validate:"required"`
	TodoID     string    `json:"todoId" validate:"required,notblank"`
	UserID     string    `json:"userId" validate:"required,notblank"`
}

// POST /api/v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var req bookingRequest
	if !bindAndValidate(c, &req) {
		return
	}

	booking, err := h.svc.Create(requestContext(c), services.BookingInput{
		TodoID:     req.TodoID,
		UserID:     req.UserID,
		Quantity:   req.Quantity,
		TotalPrice: req.TotalPrice,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, booking)
}

// GET /api/v1/bookings
func (h *BookingHandler) List(c *gin.Context) {
	opts := listOptions(c)
	bookings, total, err := h.svc.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeList(c, bookings, total, opts)
}

// GET /api/v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, booking)
}

// DELETE /api/v1/bookings/:id
func (h *BookingHandler) Delete(c *gin.Context) {
	booking, err := h.svc.Delete(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, booking)
}
