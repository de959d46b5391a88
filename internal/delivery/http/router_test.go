package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"hospital-booking/internal/delivery/http/middleware"

	"github.com/stretchr/testify/assert"
)

func TestRouter_AnswersPreflight(t *testing.T) {
	handler := NewRouter(nil, nil, nil, nil, nil, nil, middleware.NewCORSMiddleware("https://book.example.com"), nil).Setup()

	for _, path := range []string{"/api/v1/wizards", "/api/v1/wizards/6f1c1a2e-2b7d-4f57-9a55-0b0c3c9f2a10/submit", "/api/v1/admin/schedules"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "https://book.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code, path)
		assert.Equal(t, "https://book.example.com", rec.Header().Get("Access-Control-Allow-Origin"), path)
	}
}

func TestRouter_HealthCarriesCORSHeaders(t *testing.T) {
	handler := NewRouter(nil, nil, nil, nil, nil, nil, middleware.NewCORSMiddleware("*"), nil).Setup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://book.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
