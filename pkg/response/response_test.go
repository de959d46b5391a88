package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMeta(t *testing.T) {
	tests := []struct {
		limit int
		total int64
		pages int
	}{
		{limit: 10, total: 0, pages: 0},
		{limit: 10, total: 10, pages: 1},
		{limit: 10, total: 11, pages: 2},
		{limit: 0, total: 5, pages: 0},
	}

	for _, tt := range tests {
		meta := NewMeta(1, tt.limit, tt.total)
		assert.Equal(t, tt.pages, meta.TotalPages, "limit=%d total=%d", tt.limit, tt.total)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name    string
		write   func(http.ResponseWriter)
		status  int
		message string
	}{
		{name: "bad request default", write: func(w http.ResponseWriter) { BadRequest(w, "") }, status: http.StatusBadRequest, message: "Bad request"},
		{name: "conflict", write: func(w http.ResponseWriter) { Conflict(w, "Slot is full") }, status: http.StatusConflict, message: "Slot is full"},
		{name: "not found default", write: func(w http.ResponseWriter) { NotFound(w, "") }, status: http.StatusNotFound, message: "Resource not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}
