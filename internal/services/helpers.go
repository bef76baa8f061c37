package services

import (
	"context"
	"strings"
)

// PageSize is the fixed number of rows returned by list endpoints.
const PageSize = 10

// ListOptions carries the paging, search and sort parameters shared by list endpoints.
type ListOptions struct {
	Page    int
	Query   string
	OrderBy string
}

func (o ListOptions) page() int {
	if o.Page <= 0 {
		return 1
	}
	return o.Page
}

func (o ListOptions) offset() int {
	return (o.page() - 1) * PageSize
}

func (o ListOptions) search() string {
	return strings.TrimSpace(o.Query)
}

// likePattern wraps q for a case-insensitive contains match against LOWER(column).
func likePattern(q string) string {
	return "%" + strings.ToLower(q) + "%"
}

func normaliseStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
