package notifications

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/plugins/auth"
)

// Handler handles HTTP requests for notifications. All routes are admin
// only; the role check happens in route middleware.
type Handler struct {
	service NotificationService
	hub     *Hub
}

// NewHandler creates a new notification handler.
func NewHandler(service NotificationService, hub *Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

// List returns every notification, newest first (GET /getAllNotification).
func (h *Handler) List(c echo.Context) error {
	list, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"notification": list,
	})
}

// MarkRead marks one notification read and returns the full list so the
// dashboard can replace its state (PUT /updateNotificationStatus/:id).
func (h *Handler) MarkRead(c echo.Context) error {
	list, err := h.service.MarkRead(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"success":       true,
		"notifications": list,
	})
}

// Feed upgrades to a websocket that streams new notifications
// (GET /notifications/ws).
func (h *Handler) Feed(c echo.Context) error {
	if err := h.hub.Serve(c.Response(), c.Request(), auth.GetUserID(c)); err != nil {
		slog.Debug("notification feed upgrade failed", slog.Any("error", err))
	}
	return nil
}
