package orders

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/middleware"
	"github.com/keyxmakerx/elearning/internal/plugins/auth"
)

// Handler handles HTTP requests for orders.
type Handler struct {
	service OrderService
}

// NewHandler creates a new order handler.
func NewHandler(service OrderService) *Handler {
	return &Handler{service: service}
}

// Create buys a course for the caller (POST /createOrder).
func (h *Handler) Create(c echo.Context) error {
	var req CreateOrderRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}

	order, err := h.service.Create(c.Request().Context(), auth.GetUserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "order": order})
}

// List returns every order (GET /getAllOrders).
func (h *Handler) List(c echo.Context) error {
	orders, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "orders": orders})
}
