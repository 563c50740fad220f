package layout

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/middleware"
)

// Handler handles HTTP requests for layout sections.
type Handler struct {
	service LayoutService
}

// NewHandler creates a new layout handler.
func NewHandler(service LayoutService) *Handler {
	return &Handler{service: service}
}

// Create adds a section (POST /createLayout).
func (h *Handler) Create(c echo.Context) error {
	var req LayoutRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := h.service.Create(c.Request().Context(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Layout created successfully",
	})
}

// Edit replaces a section's content (PUT /editLayout).
func (h *Handler) Edit(c echo.Context) error {
	var req LayoutRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := h.service.Edit(c.Request().Context(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Layout updated successfully",
	})
}

// Get returns one section (GET /getLayout/:type).
func (h *Handler) Get(c echo.Context) error {
	t, err := ParseType(c.Param("type"))
	if err != nil {
		return err
	}
	l, err := h.service.Get(c.Request().Context(), t)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"layout":  l,
	})
}
