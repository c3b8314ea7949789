package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", DefaultLimit, 0},
		{"custom", "?limit=50&offset=10", 50, 10},
		{"garbage", "?limit=abc&offset=xyz", DefaultLimit, 0},
		{"zero limit", "?limit=0", DefaultLimit, 0},
		{"negative limit", "?limit=-5", DefaultLimit, 0},
		{"capped limit", "?limit=500", MaxLimit, 0},
		{"negative offset", "?offset=-3", DefaultLimit, 0},
		{"page", "?limit=10&page=3", 10, 20},
		{"page beats offset", "?limit=10&offset=5&page=2", 10, 10},
		{"page zero ignored", "?limit=10&offset=5&page=0", 10, 5},
		{"page with default limit", "?page=2", DefaultLimit, DefaultLimit},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/appointments"+tt.query, nil), httptest.NewRecorder())
			p := FromContext(c)
			if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
				t.Errorf("got limit=%d offset=%d, want limit=%d offset=%d", p.Limit, p.Offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	items := []string{"a", "b"}

	r := NewResponse(items, 45, 20, 20)
	if r.Total != 45 || r.Limit != 20 || r.Offset != 20 {
		t.Errorf("unexpected envelope: %+v", r)
	}
	if r.Page != 2 {
		t.Errorf("expected page 2, got %d", r.Page)
	}
	if !r.HasMore || r.NextOffset == nil || *r.NextOffset != 40 {
		t.Errorf("expected next offset 40, got has_more=%v next=%v", r.HasMore, r.NextOffset)
	}

	last := NewResponse(items, 45, 20, 40)
	if last.HasMore || last.NextOffset != nil {
		t.Error("expected no next page on the last page")
	}
	if last.Page != 3 {
		t.Errorf("expected page 3, got %d", last.Page)
	}

	empty := NewResponse([]string{}, 0, 0, 0)
	if empty.Page != 1 || empty.HasMore {
		t.Errorf("unexpected empty envelope: %+v", empty)
	}
}
