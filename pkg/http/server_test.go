package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
}

func TestServerCORSToggle(t *testing.T) {
	tests := []struct {
		name string
		cors bool
		want string
	}{
		{"enabled", true, "https://charts.example"},
		{"disabled", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(pingHandler{}, WithCORS(tt.cors))
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set(echo.HeaderOrigin, "https://charts.example")
			rec := httptest.NewRecorder()
			s.echo.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
		})
	}
}
