package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goout-id/goout/internal/models"
	"github.com/goout-id/goout/internal/services"
	"github.com/goout-id/goout/pkg/errors"
	"github.com/goout-id/goout/pkg/response"
)

// TodoHandler exposes todo listing CRUD.
type TodoHandler struct {
	svc *services.TodoService
}

func NewTodoHandler(svc *services.TodoService) *TodoHandler {
	return &TodoHandler{svc: svc}
}

type todoPackageRequest struct {
	Pax         int      `json:"pax" validate:"gte=1"`
	Price       int64    `json:"price" validate:"gte=0"`
	Description string   `json:"description"`
	Includes    []string `json:"includes"`
}

type todoScheduleRequest struct {
	Activity string `json:"activity" validate:"required"`
	Time     string `json:"time"`
	DayCount int    `json:"dayCount" validate:"gte=0"`
}

type todoItineraryRequest struct {
	TotalDay  int                   `json:"totalDay" validate:"gte=0"`
	Schedules []todoScheduleRequest `json:"schedules" validate:"dive"`
}

type todoRequest struct {
	Title                 string               `json:"title" validate:"required,notblank,min=5,max=100"`
	Description           string               `json:"description"`
	PartnerID             string               `json:"partnerId" validate:"required,uuid"`
	Images                []string             `json:"images" validate:"dive,url"`
	Includes              []string             `json:"includes"`
	Highlights            []string             `json:"highlights"`
	MinReservationDay     int                  `json:"minReservationDay" validate:"gte=0"`
	IsInstantConfirmation bool                 `json:"isInstantConfirmation"`
	IsActive              *bool                `json:"isActive"`
	IsRefundable          bool                 `json:"isRefundable"`
	AvailableFrom         *time.Time           `json:"availableFrom"`
	AvailableTo           *time.Time           `json:"availableTo"`
	LongLat               []float64            `json:"longLat" validate:"longlat"`
	Category              string               `json:"category" validate:"max=64"`
	Packages              []todoPackageRequest `json:"packages" validate:"required,min=1,dive"`
	Itinerary             todoItineraryRequest `json:"itinerary"`
	Location              models.Location      `json:"location"`
}

func (r todoRequest) input() services.TodoInput {
	packages := make([]models.TodoPackage, 0, len(r.Packages))
	for _, pkg := range r.Packages {
		packages = append(packages, models.TodoPackage{
			Pax:         pkg.Pax,
			Price:       pkg.Price,
			Description: pkg.Description,
			Includes:    pkg.Includes,
		})
	}

	schedules := make([]models.ItinerarySchedule, 0, len(r.Itinerary.Schedules))
	for _, item := range r.Itinerary.Schedules {
		schedules = append(schedules, models.ItinerarySchedule{
			Activity: item.Activity,
			Time:     item.Time,
			DayCount: item.DayCount,
		})
	}

	return services.TodoInput{
		Title:                 r.Title,
		Description:           r.Description,
		PartnerID:             r.PartnerID,
		Images:                r.Images,
		Includes:              r.Includes,
		Highlights:            r.Highlights,
		MinReservationDay:     r.MinReservationDay,
		IsInstantConfirmation: r.IsInstantConfirmation,
		IsActive:              r.IsActive,
		IsRefundable:          r.IsRefundable,
		AvailableFrom:         r.AvailableFrom,
		AvailableTo:           r.AvailableTo,
		LongLat:               r.LongLat,
		Category:              r.Category,
		Packages:              packages,
		Itinerary:             models.Itinerary{TotalDay: r.Itinerary.TotalDay, Schedules: schedules},
		Location:              r.Location,
	}
}

func bindTodo(c *gin.Context) (todoRequest, bool) {
	var req todoRequest
	if !bindAndValidate(c, &req) {
		return req, false
	}
	if req.AvailableFrom != nil && req.AvailableTo != nil && req.AvailableTo.Before(*req.AvailableFrom) {
		response.Error(c, errors.NewBadRequest("availableTo must not be before availableFrom"))
		return req, false
	}
	return req, true
}

// POST /api/v1/todos
func (h *TodoHandler) Create(c *gin.Context) {
	req, ok := bindTodo(c)
	if !ok {
		return
	}

	todo, err := h.svc.Create(requestContext(c), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, todo)
}

// GET /api/v1/todos
func (h *TodoHandler) List(c *gin.Context) {
	opts := listOptions(c)
	todos, total, err := h.svc.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeList(c, todos, total, opts)
}

// GET /api/v1/todos/:id
func (h *TodoHandler) Get(c *gin.Context) {
	todo, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, todo)
}

// PUT /api/v1/todos/:id
func (h *TodoHandler) Update(c *gin.Context) {
	req, ok := bindTodo(c)
	if !ok {
		return
	}

	todo, err := h.svc.Update(requestContext(c), c.Param("id"), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, todo)
}

// DELETE /api/v1/todos/:id
func (h *TodoHandler) Delete(c *gin.Context) {
	todo, err := h.svc.Delete(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, todo)
}
