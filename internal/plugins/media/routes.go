package media

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes serves a LocalStore's files under /media with long-lived
// cache headers. Asset names are random, so a URL never changes content.
func RegisterRoutes(e *echo.Echo, store *LocalStore) {
	g := e.Group("/media", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			c.Response().Header().Set("X-Content-Type-Options", "nosniff")
			return next(c)
		}
	})
	g.Static("/", store.Root())
}
