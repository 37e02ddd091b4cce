package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func applySecurityHeaders(t *testing.T, h echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, SecurityHeaders()(h)(c)
}

func TestSecurityHeaders_FullSet(t *testing.T) {
	rec, err := applySecurityHeaders(t, func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h := rec.Header()
	for _, kv := range [][2]string{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"X-XSS-Protection", "0"},
		{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
		{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
		{"Referrer-Policy", "no-referrer"},
		{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
		{"Cache-Control", "no-store"},
	} {
		if got := h.Get(kv[0]); got != kv[1] {
			t.Errorf("%s: got %q, want %q", kv[0], got, kv[1])
		}
	}
}

func TestSecurityHeaders_HandlerStillRuns(t *testing.T) {
	called := false
	_, err := applySecurityHeaders(t, func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusNoContent)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler should run after the headers are set")
	}
}

func TestSecurityHeaders_SetEvenWhenHandlerFails(t *testing.T) {
	rec, err := applySecurityHeaders(t, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	})
	if err == nil {
		t.Fatal("handler error should propagate")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("want a 404 HTTPError, got %v", err)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("headers should be present on error responses too")
	}
}
