package tokens

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestAdminTokenMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     string
		wantStatus int
	}{
		{name: "valid token", token: "secret", header: "Bearer secret", wantStatus: http.StatusOK},
		{name: "wrong token", token: "secret", header: "Bearer guess", wantStatus: http.StatusUnauthorized},
		{name: "missing header", token: "secret", wantStatus: http.StatusBadRequest},
		{name: "no token configured", token: "", header: "Bearer ", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.POST("/admin", func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			}, AdminTokenMiddleware(tt.token))

			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
