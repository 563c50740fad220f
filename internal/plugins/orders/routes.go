package orders

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/plugins/auth"
)

// RegisterRoutes sets up order routes on the /api/v1 group.
func RegisterRoutes(api *echo.Group, h *Handler, requireAuth echo.MiddlewareFunc) {
	api.POST("/createOrder", h.Create, requireAuth)
	api.GET("/getAllOrders", h.List, requireAuth, auth.RequireRole(auth.RoleAdmin))
}
