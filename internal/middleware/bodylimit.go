package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DefaultBodyLimit matches the largest base64 payload clients send (course
// thumbnails and layout banners).
const DefaultBodyLimit int64 = 50 << 20

// BodyLimit rejects request bodies larger than maxBytes. The declared
// Content-Length is checked up front and the body is capped while reading
// for chunked uploads.
func BodyLimit(maxBytes int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().ContentLength > maxBytes {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
					fmt.Sprintf("request body too large; maximum is %d MB", maxBytes/(1<<20)))
			}
			c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxBytes)
			return next(c)
		}
	}
}
