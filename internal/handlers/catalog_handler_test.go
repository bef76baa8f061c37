package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goout-id/goout/internal/handlers/testutil"
)

type partnerPayload struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Rating      float64       `json:"rating"`
	ReviewCount int           `json:"reviewCount"`
	Todos       []todoPayload `json:"todos"`
}

type todoPayload struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	PartnerID    string  `json:"partnerId"`
	Price        int64   `json:"price"`
	Rating       float64 `json:"rating"`
	ReviewCount  int     `json:"reviewCount"`
	BookingCount int     `json:"bookingCount"`
	IsActive     bool    `json:"isActive"`
	Category     *struct {
		Name string `json:"name"`
	} `json:"category"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Location struct {
		City string `json:"city"`
	} `json:"location"`
}

func createPartner(t *testing.T, env *testutil.Env, name string) partnerPayload {
	t.Helper()
	resp := env.Request(http.MethodPost, "/api/v1/partners", map[string]any{
		"email":       "hello@" + name + ".test",
		"name":        name,
		"description": "Tours around Bali",
		"imageUrl":    "https://cdn.test/" + name + ".png",
	}, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var partner partnerPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &partner)
	require.NotEmpty(t, partner.ID)
	return partner
}

func todoBody(partnerID, title string, prices ...int64) map[string]any {
	packages := make([]map[string]any, 0, len(prices))
	for i, price := range prices {
		packages = append(packages, map[string]any{"pax": i + 1, "price": price})
	}
	return map[string]any{
		"title":       title,
		"description": "Sunrise trek and breakfast",
		"partnerId":   partnerID,
		"images":      []string{"https://cdn.test/1.jpg"},
		"includes":    []string{"Guide"},
		"highlights":  []string{"Sunrise"},
		"longLat":     []float64{115.37, -8.24},
		"category":    "Hiking",
		"packages":    packages,
		"itinerary": map[string]any{
			"totalDay":  1,
			"schedules": []map[string]any{{"activity": "Pickup", "time": "02:00", "dayCount": 1}},
		},
		"location": map[string]any{"area": "Kintamani", "city": "Bangli", "region": "Bali", "country": "Indonesia"},
	}
}

func createTodo(t *testing.T, env *testutil.Env, partnerID, title string, prices ...int64) todoPayload {
	t.Helper()
	resp := env.Request(http.MethodPost, "/api/v1/todos", todoBody(partnerID, title, prices...), "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var todo todoPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &todo)
	return todo
}

func TestPartnerHandler_CRUD(t *testing.T) {
	env := testutil.NewEnv(t)

	bali := createPartner(t, env, "bali-trails")
	createPartner(t, env, "alpha-tours")

	resp := env.Request(http.MethodPost, "/api/v1/partners", map[string]any{
		"email": "other@bali.test",
		"name":  "bali-trails",
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	require.Equal(t, "PARTNER_EXISTS", testutil.DecodeResponse(t, resp).Error.Code)

	resp = env.Request(http.MethodPost, "/api/v1/partners", map[string]any{
		"email": "other@bali.test",
		"name":  "a-partner-name-that-is-far-too-long-to-fit",
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	require.Contains(t, testutil.DecodeResponse(t, resp).Error.Message, "name must be at most 36")

	resp = env.Request(http.MethodGet, "/api/v1/partners", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	listed := testutil.DecodeResponse(t, resp)
	var partners []partnerPayload
	testutil.DecodeInto(t, listed.Data, &partners)
	require.Len(t, partners, 2)
	require.Equal(t, "alpha-tours", partners[0].Name)
	require.Equal(t, 2, listed.Meta.Total)
	require.Equal(t, 1, listed.Meta.Page)

	resp = env.Request(http.MethodGet, "/api/v1/partners?q=BALI", nil, "")
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &partners)
	require.Len(t, partners, 1)

	resp = env.Request(http.MethodPut, "/api/v1/partners/"+bali.ID, map[string]any{
		"email":       "ops@bali.test",
		"name":        "bali-trails",
		"description": "Updated",
	}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	createTodo(t, env, bali.ID, "Mount Batur Sunrise", 350000)

	resp = env.Request(http.MethodGet, "/api/v1/partners/"+bali.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var detail partnerPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &detail)
	require.Equal(t, "ops@bali.test", detail.Email)
	require.Len(t, detail.Todos, 1)

	resp = env.Request(http.MethodDelete, "/api/v1/partners/"+bali.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, "/api/v1/partners/"+bali.ID, nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, "/api/v1/todos", nil, "")
	require.Zero(t, testutil.DecodeResponse(t, resp).Meta.Total)
}

func TestTodoHandler_CreateListUpdate(t *testing.T) {
	env := testutil.NewEnv(t)
	partner := createPartner(t, env, "kintamani")

	todo := createTodo(t, env, partner.ID, "Mount Batur Sunrise", 450000, 350000)
	require.Equal(t, int64(350000), todo.Price)
	require.True(t, todo.IsActive)
	require.NotNil(t, todo.Category)
	require.Equal(t, "Hiking", todo.Category.Name)
	require.Equal(t, "Bangli", todo.Location.City)

	resp := env.Request(http.MethodPost, "/api/v1/todos", todoBody(partner.ID, "Mount Batur Sunrise", 100000), "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	require.Equal(t, "TODO_EXISTS", testutil.DecodeResponse(t, resp).Error.Code)

	body := todoBody(partner.ID, "Tiny", 100000)
	resp = env.Request(http.MethodPost, "/api/v1/todos", body, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	require.Contains(t, testutil.DecodeResponse(t, resp).Error.Message, "title must be at least 5")

	body = todoBody(partner.ID, "Lost Coordinates", 100000)
	body["longLat"] = []float64{300, 0}
	resp = env.Request(http.MethodPost, "/api/v1/todos", body, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	require.Contains(t, testutil.DecodeResponse(t, resp).Error.Message, "longLat")

	body = todoBody(partner.ID, "Backwards Availability", 100000)
	body["availableFrom"] = time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)
	body["availableTo"] = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	resp = env.Request(http.MethodPost, "/api/v1/todos", body, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/v1/todos", todoBody("3f1c7a55-1f0e-4d8e-9a55-6a1d2c3b4e5f", "Orphan Listing", 100000), "")
	require.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())

	createTodo(t, env, partner.ID, "Ubud Rice Terraces", 150000)
	createTodo(t, env, partner.ID, "Nusa Penida Snorkel", 900000)

	prices := func(orderBy string) []int64 {
		resp := env.Request(http.MethodGet, "/api/v1/todos?orderBy="+orderBy, nil, "")
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		var todos []todoPayload
		testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &todos)
		out := make([]int64, 0, len(todos))
		for _, item := range todos {
			out = append(out, item.Price)
		}
		return out
	}
	require.Equal(t, []int64{150000, 350000, 900000}, prices("lowest_price"))
	require.Equal(t, []int64{900000, 350000, 150000}, prices("highest_price"))

	resp = env.Request(http.MethodGet, "/api/v1/todos?q=snorkel", nil, "")
	require.Equal(t, 1, testutil.DecodeResponse(t, resp).Meta.Total)

	update := todoBody(partner.ID, "Mount Batur Sunrise Trek", 200000)
	update["images"] = []string{"https://cdn.test/new-1.jpg", "https://cdn.test/new-2.jpg"}
	update["isActive"] = false
	resp = env.Request(http.MethodPut, "/api/v1/todos/"+todo.ID, update, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, "/api/v1/todos/"+todo.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var updated todoPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &updated)
	require.Equal(t, "Mount Batur Sunrise Trek", updated.Title)
	require.Equal(t, int64(200000), updated.Price)
	require.False(t, updated.IsActive)
	require.Len(t, updated.Images, 2)

	resp = env.Request(http.MethodDelete, "/api/v1/todos/"+todo.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	resp = env.Request(http.MethodGet, "/api/v1/todos/"+todo.ID, nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())
}

func TestTodoHandler_Pagination(t *testing.T) {
	env := testutil.NewEnv(t)
	partner := createPartner(t, env, "many-tours")

	for i := 0; i < 12; i++ {
		createTodo(t, env, partner.ID, fmt.Sprintf("Island Hop %02d", i), int64(100000+i))
	}

	resp := env.Request(http.MethodGet, "/api/v1/todos?page=2&orderBy=lowest_price", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page := testutil.DecodeResponse(t, resp)
	var todos []todoPayload
	testutil.DecodeInto(t, page.Data, &todos)
	require.Len(t, todos, 2)
	require.Equal(t, 2, page.Meta.Page)
	require.Equal(t, 12, page.Meta.Total)
	require.Equal(t, 2, page.Meta.TotalPages)
}

func TestBookmarkHandler(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.RegisterVerified("dewi@example.com", "Secret123!", "Dewi")
	partner := createPartner(t, env, "lovina")
	todo := createTodo(t, env, partner.ID, "Lovina Dolphins", 250000)

	path := "/api/v1/todos/" + todo.ID + "/bookmarks"
	resp := env.Request(http.MethodPost, path, map[string]string{"userId": user.ID}, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, path, map[string]string{"userId": user.ID}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	require.Equal(t, "BOOKMARK_EXISTS", testutil.DecodeResponse(t, resp).Error.Code)

	resp = env.Request(http.MethodGet, "/api/v1/users/"+user.ID+"/bookmarks", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, 1, testutil.DecodeResponse(t, resp).Meta.Total)

	resp = env.Request(http.MethodDelete, path, map[string]string{"userId": user.ID}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodDelete, path, map[string]string{"userId": user.ID}, "")
	require.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, path, map[string]string{}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
}

func TestReviewHandler_UpdatesRatings(t *testing.T) {
	env := testutil.NewEnv(t)
	first := env.RegisterVerified("eka@example.com", "Secret123!", "Eka")
	second := env.RegisterVerified("fajar@example.com", "Secret123!", "Fajar")
	partner := createPartner(t, env, "sidemen")
	todo := createTodo(t, env, partner.ID, "Sidemen Valley Walk", 200000)

	path := "/api/v1/reviews/" + todo.ID
	resp := env.Request(http.MethodPost, path, map[string]any{
		"content": "Beautiful valley and a kind guide",
		"rating":  5,
		"userId":  first.ID,
	}, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, path, map[string]any{
		"content": "Nice but the road was long",
		"rating":  2,
		"userId":  second.ID,
		"images":  []string{"https://cdn.test/road.jpg"},
	}, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, path, map[string]any{
		"content": "Trying to review a second time",
		"rating":  4,
		"userId":  first.ID,
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	require.Equal(t, "REVIEW_EXISTS", testutil.DecodeResponse(t, resp).Error.Code)

	resp = env.Request(http.MethodPost, path, map[string]any{
		"content": "too short",
		"rating":  6,
		"userId":  first.ID,
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/v1/reviews/3f1c7a55-1f0e-4d8e-9a55-6a1d2c3b4e5f", map[string]any{
		"content": "This listing does not exist",
		"rating":  3,
		"userId":  first.ID,
	}, "")
	require.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, "/api/v1/todos/"+todo.ID, nil, "")
	var rated todoPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &rated)
	require.InDelta(t, 3.5, rated.Rating, 0.001)
	require.Equal(t, 2, rated.ReviewCount)

	resp = env.Request(http.MethodGet, "/api/v1/partners/"+partner.ID, nil, "")
	var ratedPartner partnerPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &ratedPartner)
	require.InDelta(t, 3.5, ratedPartner.Rating, 0.001)
	require.Equal(t, 2, ratedPartner.ReviewCount)

	resp = env.Request(http.MethodGet, path+"?orderBy=asc", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var reviews []struct {
		Rating int `json:"rating"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &reviews)
	require.Len(t, reviews, 2)
	require.Equal(t, 2, reviews[0].Rating)
}

func TestBookingHandler(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.RegisterVerified("gita@example.com", "Secret123!", "Gita Kecak")
	partner := createPartner(t, env, "uluwatu")
	todo := createTodo(t, env, partner.ID, "Uluwatu Kecak Dance", 150000)

	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	body := map[string]any{
		"quantity":   2,
		"totalPrice": 300000,
		"startDate":  start,
		"endDate":    start.Add(24 * time.Hour),
		"todoId":     todo.ID,
		"userId":     user.ID,
	}

	resp := env.Request(http.MethodPost, "/api/v1/bookings", body, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var booking struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &booking)
	require.Equal(t, "pending", booking.Status)

	body["totalPrice"] = 250000
	resp = env.Request(http.MethodPost, "/api/v1/bookings", body, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	require.Equal(t, "Price not valid", testutil.DecodeResponse(t, resp).Error.Message)

	body["totalPrice"] = 300000
	body["endDate"] = start.Add(-24 * time.Hour)
	resp = env.Request(http.MethodPost, "/api/v1/bookings", body, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, "/api/v1/todos/"+todo.ID, nil, "")
	var booked todoPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &booked)
	require.Equal(t, 1, booked.BookingCount)

	resp = env.Request(http.MethodGet, "/api/v1/bookings?q=kecak", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, 1, testutil.DecodeResponse(t, resp).Meta.Total)

	resp = env.Request(http.MethodGet, "/api/v1/bookings/"+booking.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodDelete, "/api/v1/bookings/"+booking.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, "/api/v1/bookings/"+booking.ID, nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())
}
