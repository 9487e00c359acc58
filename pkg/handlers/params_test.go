package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParseID(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/projects/"+id.String(), nil)
	req.SetPathValue("id", id.String())

	got, ok := ParseID(httptest.NewRecorder(), req, zap.NewNop())
	assert.True(t, ok)
	assert.Equal(t, id, got)

	req.SetPathValue("id", "not-a-uuid")
	rec := httptest.NewRecorder()
	got, ok = ParseID(rec, req, zap.NewNop())
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, got)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id format", message(t, rec))
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantOK     bool
		wantOffset int
		wantLimit  int
	}{
		{"defaults", "", true, 0, 100},
		{"explicit", "?offset=20&limit=5", true, 20, 5},
		{"max limit", "?limit=1000", true, 0, 1000},
		{"limit too large", "?limit=1001", false, 0, 0},
		{"zero limit", "?limit=0", false, 0, 0},
		{"negative offset", "?offset=-1", false, 0, 0},
		{"not a number", "?offset=abc", false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			page, ok := ParsePagination(rec, httptest.NewRequest(http.MethodGet, "/projects"+tt.query, nil), zap.NewNop())

			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				return
			}
			assert.Equal(t, tt.wantOffset, page.Offset)
			assert.Equal(t, tt.wantLimit, page.Limit)
		})
	}
}
