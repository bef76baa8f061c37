package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/goout-id/goout/internal/services"
	appErrors "github.com/goout-id/goout/pkg/errors"
	"github.com/goout-id/goout/pkg/response"
	appValidator "github.com/goout-id/goout/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request payload"
	}

	if ve, ok := err.(appValidator.ValidationErrors); ok {
		if len(ve) == 0 {
			return "invalid request payload"
		}

		messages := make([]string, 0, len(ve))
		for _, failure := range ve {
			field := prettifyFieldName(failure.Field)
			switch failure.Tag {
			case "required", "notblank":
				messages = append(messages, fmt.Sprintf("%s is required", field))
			case "email":
				messages = append(messages, fmt.Sprintf("%s must be a valid email address", field))
			case "url":
				messages = append(messages, fmt.Sprintf("%s must be a valid URL", field))
			case "min":
				messages = append(messages, fmt.Sprintf("%s must be at least %s", field, failure.Param))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s", field, failure.Param))
			case "gte":
				messages = append(messages, fmt.Sprintf("%s must be %s or more", field, failure.Param))
			case "longlat":
				messages = append(messages, fmt.Sprintf("%s must be a [longitude, latitude] pair", field))
			case "gtefield":
				messages = append(messages, fmt.Sprintf("%s must not be before %s", field, prettifyFieldName(failure.Param)))
			default:
				if failure.Param != "" {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param))
				} else {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, failure.Tag))
				}
			}
		}
		return strings.Join(messages, "; ")
	}

	return "invalid request payload"
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	return strings.ReplaceAll(name, "_", " ")
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// listOptions reads the page, q and orderBy query parameters shared by list endpoints.
func listOptions(c *gin.Context) services.ListOptions {
	page := parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	return services.ListOptions{
		Page:    page,
		Query:   c.Query("q"),
		OrderBy: strings.TrimSpace(c.Query("orderBy")),
	}
}

func writeList(c *gin.Context, items any, total int64, opts services.ListOptions) {
	response.SuccessWithMeta(c, http.StatusOK, items, response.NewMeta(opts.Page, services.PageSize, total))
}
