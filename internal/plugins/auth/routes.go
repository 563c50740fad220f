package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/middleware"
)

// RegisterRoutes sets up the auth and account routes on the /api/v1 group.
// requireAuth is the gate built by RequireAuth; admin routes add
// RequireRole(RoleAdmin) on top of it.
//
// Login, registration and activation are rate-limited per IP to slow down
// credential stuffing and code guessing.
func RegisterRoutes(api *echo.Group, h *Handler, requireAuth echo.MiddlewareFunc) {
	// Public routes.
	api.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))
	api.POST("/activateUser", h.Activate, middleware.RateLimit(10, time.Minute))
	api.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	api.POST("/socialAuth", h.SocialAuth, middleware.RateLimit(10, time.Minute))
	api.GET("/refreshToken", h.Refresh)
	api.GET("/auth/sso/login", h.SSOLogin)
	api.GET("/auth/sso/callback", h.SSOCallback)

	// Session routes.
	api.GET("/logout", h.Logout, requireAuth)
	api.GET("/me", h.Me, requireAuth)
	api.PUT("/updateUserInfo", h.UpdateInfo, requireAuth)
	api.PUT("/updateUserPassword", h.UpdatePassword, requireAuth)
	api.POST("/updateUserAvatar", h.UpdateAvatar, requireAuth)

	// Admin routes.
	admin := RequireRole(RoleAdmin)
	api.GET("/getAllUsers", h.GetAllUsers, requireAuth, admin)
	api.PUT("/updateUserRole", h.UpdateRole, requireAuth, admin)
	api.DELETE("/deleteUser/:id", h.DeleteUser, requireAuth, admin)
}
