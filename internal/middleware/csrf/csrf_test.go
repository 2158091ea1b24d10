package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCSRFServer() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(Config{
		Skipper: func(c echo.Context) bool { return c.Request().Header.Get("X-Session-Token") != "" },
	}))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/x", ok)
	e.POST("/x", ok)
	return e
}

func TestCSRF_SafeMethodIssuesToken(t *testing.T) {
	e := newCSRFServer()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-CSRF-Token"))

	res := rec.Result()
	defer res.Body.Close()
	require.Len(t, res.Cookies(), 1)
	assert.Equal(t, rec.Header().Get("X-CSRF-Token"), res.Cookies()[0].Value)
}

func TestCSRF_UnsafeMethod(t *testing.T) {
	e := newCSRFServer()

	tests := []struct {
		name   string
		origin string
		header string
		status int
	}{
		{name: "matching token", origin: "http://example.com", header: "tok", status: http.StatusNoContent},
		{name: "missing token", origin: "http://example.com", status: http.StatusForbidden},
		{name: "wrong token", origin: "http://example.com", header: "other", status: http.StatusForbidden},
		{name: "cross origin", origin: "http://evil.test", header: "tok", status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/x", nil)
			req.Host = "example.com"
			req.Header.Set("Origin", tt.origin)
			req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "tok"})
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestCSRF_SkipperBypassesCheck(t *testing.T) {
	e := newCSRFServer()

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("X-Session-Token", "abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
