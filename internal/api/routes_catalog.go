package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/handlers"
	"github.com/goout-id/goout/internal/services"
	"github.com/goout-id/goout/internal/storage"
)

type catalogRouteDeps struct {
	Partners  *handlers.PartnerHandler
	Todos     *handlers.TodoHandler
	Bookmarks *handlers.BookmarkHandler
	Reviews   *handlers.ReviewHandler
	Bookings  *handlers.BookingHandler
	Upload    *handlers.UploadHandler
}

func newCatalogRouteDeps(db *gorm.DB, uploader storage.Uploader) (catalogRouteDeps, error) {
	partners, err := services.NewPartnerService(db)
	if err != nil {
		return catalogRouteDeps{}, err
	}
	todos, err := services.NewTodoService(db)
	if err != nil {
		return catalogRouteDeps{}, err
	}
	bookmarks, err := services.NewBookmarkService(db)
	if err != nil {
		return catalogRouteDeps{}, err
	}
	reviews, err := services.NewReviewService(db)
	if err != nil {
		return catalogRouteDeps{}, err
	}
	bookings, err := services.NewBookingService(db)
	if err != nil {
		return catalogRouteDeps{}, err
	}

	return catalogRouteDeps{
		Partners:  handlers.NewPartnerHandler(partners),
		Todos:     handlers.NewTodoHandler(todos),
		Bookmarks: handlers.NewBookmarkHandler(bookmarks),
		Reviews:   handlers.NewReviewHandler(reviews),
		Bookings:  handlers.NewBookingHandler(bookings),
		Upload:    handlers.NewUploadHandler(uploader),
	}, nil
}

func registerCatalogRoutes(v1 *gin.RouterGroup, deps catalogRouteDeps) {
	partners := v1.Group("/partners")
	{
		partners.POST("", deps.Partners.Create)
		partners.GET("", deps.Partners.List)
		partners.GET("/:id", deps.Partners.Get)
		partners.PUT("/:id", deps.Partners.Update)
		partners.DELETE("/:id", deps.Partners.Delete)
	}

	todos := v1.Group("/todos")
	{
		todos.POST("", deps.Todos.Create)
		todos.GET("", deps.Todos.List)
		todos.GET("/:id", deps.Todos.Get)
		todos.PUT("/:id", deps.Todos.Update)
		todos.DELETE("/:id", deps.Todos.Delete)
		todos.POST("/:id/bookmarks", deps.Bookmarks.Add)
		todos.DELETE("/:id/bookmarks", deps.Bookmarks.Remove)
	}
	v1.GET("/users/:id/bookmarks", deps.Bookmarks.List)

	reviews := v1.Group("/reviews")
	{
		reviews.POST("/:todoId", deps.Reviews.Create)
		reviews.GET("/:todoId", deps.Reviews.List)
	}

	bookings := v1.Group("/bookings")
	{
		bookings.POST("", deps.Bookings.Create)
		bookings.GET("", deps.Bookings.List)
		bookings.GET("/:id", deps.Bookings.Get)
		bookings.DELETE("/:id", deps.Bookings.Delete)
	}

	v1.POST("/upload", deps.Upload.Upload)
}
