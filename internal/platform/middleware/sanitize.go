package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// headerValueLimit caps the size of any single request header value.
const headerValueLimit = 8 << 10

var (
	// Warn-only; matching requests are not blocked.
	reSQLProbe = regexp.MustCompile(`(?i)('+\s*;\s*DROP\b|UNION\s+SELECT\b|'\s+OR\s+1\s*=\s*1|1\s*=\s*1)`)

	// Matches are rejected with a 400.
	reScriptProbe = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)
)

// Sanitize screens the path, headers and query string of every request
// for common injection probes before a handler sees them. Hostile
// requests are answered with a 400 and a short reason.
func Sanitize() echo.MiddlewareFunc {
	return SanitizeWithLogger(zerolog.Nop())
}

// SanitizeWithLogger is Sanitize with a logger for the warn-only checks.
func SanitizeWithLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if reason := screenPath(req.URL.Path, req.URL.RawPath); reason != "" {
				return reject(c, reason)
			}
			if reason := screenHeaders(req.Header); reason != "" {
				return reject(c, reason)
			}
			if reason := screenQuery(c, logger); reason != "" {
				return reject(c, reason)
			}
			return next(c)
		}
	}
}

// screenPath inspects both the decoded and the raw form of the request
// path, so single- and double-encoded probes are caught alike.
func screenPath(path, rawPath string) string {
	if rawPath == "" {
		rawPath = path
	}
	if hasTraversal(path) || hasTraversal(rawPath) {
		return "path traversal detected"
	}
	if hasNullByte(path) || hasNullByte(rawPath) {
		return "null byte in path"
	}
	return ""
}

func screenHeaders(h http.Header) string {
	for name, values := range h {
		for _, v := range values {
			if len(v) > headerValueLimit {
				return "header value too large: " + name
			}
			if strings.ContainsAny(v, "\r\n") {
				return "newline in header value: " + name
			}
		}
	}
	return ""
}

func screenQuery(c echo.Context, logger zerolog.Logger) string {
	for key, values := range c.Request().URL.Query() {
		if hasNullByte(key) {
			return "null byte in query parameter"
		}
		if reScriptProbe.MatchString(key) {
			return "script injection in query parameter"
		}
		for _, v := range values {
			if hasNullByte(v) {
				return "null byte in query parameter"
			}
			if reScriptProbe.MatchString(v) {
				return "script injection in query parameter"
			}
			if reSQLProbe.MatchString(v) {
				logger.Warn().
					Str("param", key).
					Str("path", c.Request().URL.Path).
					Str("remote_ip", c.RealIP()).
					Msg("possible SQL injection pattern in query parameter")
			}
		}
	}
	return ""
}

// hasTraversal reports whether s carries a dot-dot sequence in plain,
// percent-encoded or double-encoded form.
func hasTraversal(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(s, "..") ||
		strings.Contains(lower, "%2e%2e") ||
		strings.Contains(lower, "%252e")
}

func hasNullByte(s string) bool {
	return strings.ContainsRune(s, 0) || strings.Contains(strings.ToLower(s), "%00")
}

func reject(c echo.Context, reason string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": reason})
}

// SanitizeString strips null bytes and control characters from a field
// value, keeping newlines, tabs and carriage returns, and trims the
// surrounding whitespace. Callers run free-text input through it.
func SanitizeString(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)
	return strings.TrimSpace(cleaned)
}
