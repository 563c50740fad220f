package analytics

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/apperror"
)

// Handler serves the three dashboard charts. Each counter is the repository
// of the entity being charted.
type Handler struct {
	users   Counter
	courses Counter
	orders  Counter
	now     func() time.Time
}

// NewHandler creates a new analytics handler.
func NewHandler(users, courses, orders Counter) *Handler {
	return &Handler{users: users, courses: courses, orders: orders, now: time.Now}
}

// Users charts sign-ups (GET /getUserAnalytics).
func (h *Handler) Users(c echo.Context) error {
	return h.respond(c, "users", h.users)
}

// Courses charts course creation (GET /getCoursesAnalytics).
func (h *Handler) Courses(c echo.Context) error {
	return h.respond(c, "courses", h.courses)
}

// Orders charts purchases (GET /getOrderAnalytics).
func (h *Handler) Orders(c echo.Context) error {
	return h.respond(c, "orders", h.orders)
}

func (h *Handler) respond(c echo.Context, key string, counter Counter) error {
	report, err := Last12Months(c.Request().Context(), counter, h.now())
	if err != nil {
		return apperror.NewInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		key:       report,
	})
}
