package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// defaultBodyLimit applies when the configured size string cannot be
// parsed.
const defaultBodyLimit = 1 << 20

var errBodyTooLarge = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")

// BodyLimit caps the size of request bodies. The cap is given as a size
// string such as "1M", "512K" or "64"; a bare number is bytes. Requests
// over the cap get a 413.
//
// A Content-Length above the cap is rejected before the handler runs.
// Bodies of unknown length are cut off while the handler reads them.
func BodyLimit(limit string) echo.MiddlewareFunc {
	capBytes := parseSize(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > capBytes {
				return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
					"error": fmt.Sprintf("request body exceeds %d bytes", capBytes),
				})
			}
			req.Body = &cappedReader{ReadCloser: req.Body, left: capBytes}
			return next(c)
		}
	}
}

// cappedReader fails with a 413 once more than left bytes come through.
type cappedReader struct {
	io.ReadCloser
	left    int64
	tripped bool
}

func (r *cappedReader) Read(p []byte) (int, error) {
	if r.tripped {
		return 0, errBodyTooLarge
	}
	// Reading one byte past the cap is what detects overflow.
	if limit := r.left + 1; int64(len(p)) > limit {
		p = p[:limit]
	}
	n, err := r.ReadCloser.Read(p)
	r.left -= int64(n)
	if r.left < 0 {
		r.tripped = true
		return 0, errBodyTooLarge
	}
	return n, err
}

// parseSize converts a size string into bytes, falling back to the
// default cap on anything it cannot parse.
func parseSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return defaultBodyLimit
	}

	factor := int64(1)
	for _, unit := range [...]struct {
		suffix string
		bytes  int64
	}{
		{"GB", 1 << 30}, {"G", 1 << 30},
		{"MB", 1 << 20}, {"M", 1 << 20},
		{"KB", 1 << 10}, {"K", 1 << 10},
	} {
		if strings.HasSuffix(s, unit.suffix) {
			factor = unit.bytes
			s = strings.TrimSuffix(s, unit.suffix)
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return defaultBodyLimit
	}
	return n * factor
}
