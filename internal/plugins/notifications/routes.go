package notifications

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/plugins/auth"
)

// RegisterRoutes sets up the admin notification routes on the /api/v1 group.
func RegisterRoutes(api *echo.Group, h *Handler, requireAuth echo.MiddlewareFunc) {
	admin := auth.RequireRole(auth.RoleAdmin)

	api.GET("/getAllNotification", h.List, requireAuth, admin)
	api.PUT("/updateNotificationStatus/:id", h.MarkRead, requireAuth, admin)
	api.GET("/notifications/ws", h.Feed, requireAuth, admin)
}
