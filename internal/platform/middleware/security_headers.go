package middleware

import (
	"github.com/labstack/echo/v4"
)

// hardeningHeaders go on every response. The service speaks JSON to
// non-browser clients and returns patient records, so responses are
// non-cacheable and anything browser-executable is denied.
var hardeningHeaders = [...][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "0"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
	{"Cache-Control", "no-store"},
}

// SecurityHeaders applies the hardening header set before the handler
// writes anything.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range hardeningHeaders {
				h.Set(kv[0], kv[1])
			}
			return next(c)
		}
	}
}
