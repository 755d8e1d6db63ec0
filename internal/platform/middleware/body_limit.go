package middleware

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DefaultBodyLimit applies when no positive limit is configured.
const DefaultBodyLimit int64 = 1 << 20

// BodyLimit rejects request bodies larger than limit bytes with 413. The
// Content-Length header is checked first; the body is also wrapped so a
// missing or wrong header cannot bypass the limit.
func BodyLimit(limit int64) echo.MiddlewareFunc {
	if limit <= 0 {
		limit = DefaultBodyLimit
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			if req.ContentLength > limit {
				return errBodyTooLarge()
			}

			req.Body = &limitedReadCloser{
				ReadCloser: req.Body,
				remaining:  limit,
			}
			return next(c)
		}
	}
}

func errBodyTooLarge() error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
}

// limitedReadCloser wraps an io.ReadCloser and returns an error once the
// read limit is exceeded.
type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	exceeded  bool
}

func (r *limitedReadCloser) Read(p []byte) (n int, err error) {
	if r.exceeded {
		return 0, errBodyTooLarge()
	}

	// Read one byte past the limit to detect overflow.
	toRead := int64(len(p))
	if toRead > r.remaining+1 {
		toRead = r.remaining + 1
	}

	n, err = r.ReadCloser.Read(p[:toRead])
	r.remaining -= int64(n)

	if r.remaining < 0 {
		r.exceeded = true
		return 0, errBodyTooLarge()
	}

	return n, err
}
