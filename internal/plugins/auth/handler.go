package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/apperror"
	"github.com/keyxmakerx/elearning/internal/middleware"
)

// Handler handles HTTP requests for authentication and account management.
// Handlers are thin: they bind the request, call a service, and write the
// JSON envelope. No business logic lives here.
type Handler struct {
	auth     AuthService
	users    UserService
	provider IdentityProvider
	cookies  CookieConfig

	// frontendURL receives the browser after the SSO callback.
	frontendURL string
}

// NewHandler creates a new auth handler. provider may be nil when no OIDC
// issuer is configured; social login then trusts the request body and the
// SSO redirect flow is unavailable.
func NewHandler(auth AuthService, users UserService, provider IdentityProvider, cookies CookieConfig, frontendURL string) *Handler {
	return &Handler{
		auth:        auth,
		users:       users,
		provider:    provider,
		cookies:     cookies,
		frontendURL: frontendURL,
	}
}

// Register starts a registration (POST /register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}

	activationToken, err := h.auth.Register(c.Request().Context(), RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"success":         true,
		"message":         "Please check your email: " + normalizeEmail(req.Email) + " to activate your account",
		"activationToken": activationToken,
	})
}

// Activate finishes a registration (POST /activateUser).
func (h *Handler) Activate(c echo.Context) error {
	var req ActivateRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := h.auth.Activate(c.Request().Context(), req.ActivationToken, req.ActivationCode); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true})
}

// Login authenticates with email and password (POST /login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("invalid request body")
	}

	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, result)
}

// SocialAuth logs in with an identity asserted by a social provider
// (POST /socialAuth). With a provider configured, only the verified ID
// token counts and the body's email is ignored.
func (h *Handler) SocialAuth(c echo.Context) error {
	var req SocialAuthRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	input := SocialInput{Email: req.Email, Name: req.Name, AvatarURL: req.Avatar}

	if h.provider != nil {
		if req.IDToken == "" {
			return apperror.NewValidation("Please provide idToken")
		}
		verified, err := h.provider.VerifyIDToken(ctx, req.IDToken)
		if err != nil {
			slog.Warn("social login rejected", slog.Any("error", err))
			return apperror.NewUnauthorized("Social login token is not valid")
		}
		if verified.Name == "" {
			verified.Name = req.Name
		}
		if verified.AvatarURL == "" {
			verified.AvatarURL = req.Avatar
		}
		input = verified
	}

	result, err := h.auth.SocialLogin(ctx, input)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, result)
}

// SSOLogin redirects the browser to the identity provider (GET /auth/sso/login).
func (h *Handler) SSOLogin(c echo.Context) error {
	if h.provider == nil {
		return apperror.NewNotFound("Single sign-on is not configured")
	}

	state, err := generateState()
	if err != nil {
		return apperror.NewInternal(err)
	}

	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((10 * time.Minute).Seconds()),
	})
	return c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// SSOCallback completes the redirect flow (GET /auth/sso/callback). The
// state cookie must match the state query parameter.
func (h *Handler) SSOCallback(c echo.Context) error {
	if h.provider == nil {
		return apperror.NewNotFound("Single sign-on is not configured")
	}

	state := readCookie(c, oauthStateCookie)
	c.SetCookie(&http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	if state == "" || state != c.QueryParam("state") {
		return apperror.NewBadRequest("Invalid login state")
	}

	code := c.QueryParam("code")
	if code == "" {
		return apperror.NewBadRequest("Missing authorization code")
	}

	ctx := c.Request().Context()
	identity, err := h.provider.Exchange(ctx, code)
	if err != nil {
		slog.Warn("sso exchange failed", slog.Any("error", err))
		return apperror.NewUnauthorized("Single sign-on failed")
	}

	result, err := h.auth.SocialLogin(ctx, identity)
	if err != nil {
		return err
	}
	h.cookies.setTokenCookies(c, result.Tokens)
	return c.Redirect(http.StatusSeeOther, h.frontendURL)
}

// Logout ends the session (GET /logout).
func (h *Handler) Logout(c echo.Context) error {
	userID := GetUserID(c)
	if err := h.auth.Logout(c.Request().Context(), userID, readCookie(c, refreshTokenCookie)); err != nil {
		return err
	}

	h.cookies.clearTokenCookies(c)
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Refresh rotates the token pair (GET /refreshToken).
func (h *Handler) Refresh(c echo.Context) error {
	result, err := h.auth.Refresh(c.Request().Context(), readCookie(c, refreshTokenCookie))
	if err != nil {
		if apperror.Is(err, apperror.TypeUnauthorized) {
			h.cookies.clearTokenCookies(c)
		}
		return err
	}

	h.cookies.setTokenCookies(c, result.Tokens)
	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"accessToken": result.Tokens.AccessToken,
	})
}

// Me returns the session snapshot of the caller (GET /me).
func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user":    GetUser(c),
	})
}

// UpdateInfo changes the caller's name or email (PUT /updateUserInfo).
func (h *Handler) UpdateInfo(c echo.Context) error {
	var req UpdateInfoRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.users.UpdateInfo(c.Request().Context(), GetUserID(c), req)
	if err != nil {
		return err
	}
	return h.sendUser(c, user)
}

// UpdatePassword changes the caller's password (PUT /updateUserPassword).
func (h *Handler) UpdatePassword(c echo.Context) error {
	var req UpdatePasswordRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.users.UpdatePassword(c.Request().Context(), GetUserID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		return err
	}
	return h.sendUser(c, user)
}

// UpdateAvatar replaces the caller's avatar (POST /updateUserAvatar).
func (h *Handler) UpdateAvatar(c echo.Context) error {
	var req UpdateAvatarRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation("invalid request body")
	}

	user, err := h.users.UpdateAvatar(c.Request().Context(), GetUserID(c), req.Avatar)
	if err != nil {
		return err
	}
	return h.sendUser(c, user)
}

// --- Admin ---

// GetAllUsers lists every account (GET /getAllUsers).
func (h *Handler) GetAllUsers(c echo.Context) error {
	users, err := h.users.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"users":   users,
	})
}

// UpdateRole changes another user's role (PUT /updateUserRole).
func (h *Handler) UpdateRole(c echo.Context) error {
	var req UpdateRoleRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}

	role, err := ParseRole(req.Role)
	if err != nil {
		return err
	}

	user, err := h.users.UpdateRole(c.Request().Context(), req.ID, role)
	if err != nil {
		return err
	}
	return h.sendUser(c, user)
}

// DeleteUser removes an account (DELETE /deleteUser/:id).
func (h *Handler) DeleteUser(c echo.Context) error {
	id := c.Param("id")
	if id == GetUserID(c) {
		return apperror.NewBadRequest("You cannot delete your own account")
	}

	if err := h.users.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "User deleted successfully",
	})
}

// --- Helpers ---

func (h *Handler) sendSession(c echo.Context, status int, result *LoginResult) error {
	h.cookies.setTokenCookies(c, result.Tokens)
	return c.JSON(status, map[string]any{
		"success":     true,
		"user":        result.User,
		"accessToken": result.Tokens.AccessToken,
	})
}

func (h *Handler) sendUser(c echo.Context, user *User) error {
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}
