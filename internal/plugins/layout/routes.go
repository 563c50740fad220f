package layout

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/middleware"
	"github.com/keyxmakerx/elearning/internal/plugins/auth"
)

// RegisterRoutes sets up the layout routes on the /api/v1 group. Reading is
// public; writing is admin only.
func RegisterRoutes(api *echo.Group, h *Handler, requireAuth echo.MiddlewareFunc) {
	admin := auth.RequireRole(auth.RoleAdmin)
	bodyLimit := middleware.BodyLimit(middleware.DefaultBodyLimit)

	api.GET("/getLayout/:type", h.Get)
	api.POST("/createLayout", h.Create, bodyLimit, requireAuth, admin)
	api.PUT("/editLayout", h.Edit, bodyLimit, requireAuth, admin)
}
