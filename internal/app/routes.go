package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/plugins/analytics"
	"github.com/keyxmakerx/elearning/internal/plugins/auth"
	"github.com/keyxmakerx/elearning/internal/plugins/courses"
	"github.com/keyxmakerx/elearning/internal/plugins/layout"
	"github.com/keyxmakerx/elearning/internal/plugins/media"
	"github.com/keyxmakerx/elearning/internal/plugins/notifications"
	"github.com/keyxmakerx/elearning/internal/plugins/orders"
)

// RegisterRoutes sets up all application routes. This is the single place
// where every plugin's routes are aggregated under /api/v1.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check for container orchestration.
	e.GET("/healthz", a.healthz)

	// Locally stored assets. S3 assets are served by the bucket.
	if local, ok := a.assets.(*media.LocalStore); ok {
		media.RegisterRoutes(e, local)
	}

	api := e.Group("/api/v1")
	requireAuth := auth.RequireAuth(a.auth)

	auth.RegisterRoutes(api, a.handlers.auth, requireAuth)
	courses.RegisterRoutes(api, a.handlers.courses, requireAuth)
	orders.RegisterRoutes(api, a.handlers.orders, requireAuth)
	notifications.RegisterRoutes(api, a.handlers.notifications, requireAuth)
	layout.RegisterRoutes(api, a.handlers.layout, requireAuth)
	analytics.RegisterRoutes(api, a.handlers.analytics, requireAuth)
}

// healthz reports 200 only when MariaDB and the cache both answer.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"database": "ok", "cache": "ok"}
	code := http.StatusOK
	if err := a.DB.PingContext(ctx); err != nil {
		status["database"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if err := a.Cache.Ping(ctx); err != nil {
		status["cache"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]any{"success": code == http.StatusOK, "status": status})
}
