package shared

import (
	"fmt"
	"net/http"
	"strconv"
)

// Pagination bounds shared by all list endpoints.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Pagination carries the limit/offset pair parsed from a request.
type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads the limit and offset query parameters, applying
// defaults and bounds. Malformed values are an error rather than being
// silently clamped.
func ParsePagination(r *http.Request) (Pagination, error) {
	p := Pagination{Limit: DefaultPageLimit}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return p, fmt.Errorf("invalid limit parameter: %q", raw)
		}
		if limit > MaxPageLimit {
			limit = MaxPageLimit
		}
		p.Limit = limit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return p, fmt.Errorf("invalid offset parameter: %q", raw)
		}
		p.Offset = offset
	}

	return p, nil
}
