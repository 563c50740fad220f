package courses

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/middleware"
	"github.com/keyxmakerx/elearning/internal/plugins/auth"
)

// RegisterRoutes sets up all course routes on the /api/v1 group.
func RegisterRoutes(api *echo.Group, h *Handler, requireAuth echo.MiddlewareFunc) {
	// Public catalogue.
	api.GET("/getCourses", h.List)
	api.GET("/getCourse/:id", h.Get)

	// Signed-in learners.
	api.GET("/getCourseContent/:id", h.Content, requireAuth)
	api.PUT("/addQuestion", h.AddQuestion, requireAuth)
	api.PUT("/addAnswer", h.AddAnswer, requireAuth)
	api.PUT("/addReview/:id", h.AddReview, requireAuth)

	// Admin.
	admin := auth.RequireRole(auth.RoleAdmin)
	upload := middleware.BodyLimit(middleware.DefaultBodyLimit)

	api.GET("/getAllCourses", h.ListAll, requireAuth, admin)
	api.POST("/createCourse", h.Create, upload, requireAuth, admin)
	api.PUT("/editCourse/:id", h.Edit, upload, requireAuth, admin)
	api.DELETE("/deleteCourse/:id", h.Delete, requireAuth, admin)
	api.PUT("/addReviewReply", h.AddReviewReply, requireAuth, admin)
}
