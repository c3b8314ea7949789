// Package pagination reads list paging parameters from requests and wraps
// list results. Clients page with ?limit= and ?offset=, or with ?page=
// (1-based), which the mobile app uses for its "load more" lists.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit=, ?offset= and ?page=. A valid page wins over
// offset. Out-of-range values are clamped rather than rejected.
func FromContext(c echo.Context) Params {
	limit := atoi(c.QueryParam("limit"), DefaultLimit)
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset := atoi(c.QueryParam("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	if page := atoi(c.QueryParam("page"), 0); page >= 1 {
		offset = (page - 1) * limit
	}
	return Params{Limit: limit, Offset: offset}
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Response is the envelope every list endpoint returns. NextOffset is nil
// on the last page.
type Response struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
	Page       int         `json:"page"`
	HasMore    bool        `json:"has_more"`
	NextOffset *int        `json:"next_offset"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	r := &Response{
		Data:   data,
		Total:  total,
		Limit:  limit,
		Offset: offset,
		Page:   1,
	}
	if limit > 0 {
		r.Page = offset/limit + 1
	}
	if offset+limit < total {
		next := offset + limit
		r.HasMore = true
		r.NextOffset = &next
	}
	return r
}
