package auth

import (
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/apperror"
)

// Context keys for storing the principal in Echo context. Other plugins
// use the exported getters below instead of these keys.
const (
	contextKeyUser   = "auth_user"
	contextKeyUserID = "auth_user_id"
)

// RequireAuth returns the Auth Gate: it reads the access token cookie,
// verifies it, loads the session snapshot and attaches it to the context.
// A valid token without a snapshot is rejected like a missing one.
func RequireAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := service.Authenticate(c.Request().Context(), readCookie(c, accessTokenCookie))
			if err != nil {
				return err
			}

			c.Set(contextKeyUser, user)
			c.Set(contextKeyUserID, user.ID)
			return next(c)
		}
	}
}

// Authorize reports whether user holds one of roles.
func Authorize(user *User, roles ...Role) bool {
	return user != nil && slices.Contains(roles, user.Role)
}

// RequireRole rejects principals without one of roles before the handler
// runs. Must be chained after RequireAuth.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetUser(c)
			if user == nil {
				return apperror.NewUnauthorized(msgMissingToken)
			}
			if !Authorize(user, roles...) {
				return apperror.NewForbidden("Role: " + string(user.Role) + " is not allowed to access this resource")
			}
			return next(c)
		}
	}
}

// --- Exported getters for other plugins ---

// GetUser retrieves the authenticated principal from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetUser(c echo.Context) *User {
	user, ok := c.Get(contextKeyUser).(*User)
	if !ok {
		return nil
	}
	return user
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}
