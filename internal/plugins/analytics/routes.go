package analytics

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/plugins/auth"
)

// RegisterRoutes sets up the admin analytics routes on the /api/v1 group.
func RegisterRoutes(api *echo.Group, h *Handler, requireAuth echo.MiddlewareFunc) {
	admin := auth.RequireRole(auth.RoleAdmin)

	api.GET("/getUserAnalytics", h.Users, requireAuth, admin)
	api.GET("/getCoursesAnalytics", h.Courses, requireAuth, admin)
	api.GET("/getOrderAnalytics", h.Orders, requireAuth, admin)
}
