package courses

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/middleware"
	"github.com/keyxmakerx/elearning/internal/plugins/auth"
)

// Handler handles HTTP requests for courses.
type Handler struct {
	service CourseService
}

// NewHandler creates a new course handler.
func NewHandler(service CourseService) *Handler {
	return &Handler{service: service}
}

// List returns the public catalogue (GET /getCourses).
func (h *Handler) List(c echo.Context) error {
	courses, err := h.service.ListPublic(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "courses": courses})
}

// Get returns one course without its gated content (GET /getCourse/:id).
func (h *Handler) Get(c echo.Context) error {
	course, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return sendCourse(c, http.StatusOK, course)
}

// Content returns the full content to buyers (GET /getCourseContent/:id).
func (h *Handler) Content(c echo.Context) error {
	content, err := h.service.Content(c.Request().Context(), auth.GetUser(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "content": content})
}

// AddQuestion asks a question on a content section (PUT /addQuestion).
func (h *Handler) AddQuestion(c echo.Context) error {
	var req QuestionRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	course, err := h.service.AddQuestion(c.Request().Context(), auth.GetUser(c), req)
	if err != nil {
		return err
	}
	return sendCourse(c, http.StatusOK, course)
}

// AddAnswer replies to a question (PUT /addAnswer).
func (h *Handler) AddAnswer(c echo.Context) error {
	var req AnswerRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	course, err := h.service.AddAnswer(c.Request().Context(), auth.GetUser(c), req)
	if err != nil {
		return err
	}
	return sendCourse(c, http.StatusOK, course)
}

// AddReview reviews a purchased course (PUT /addReview/:id).
func (h *Handler) AddReview(c echo.Context) error {
	var req ReviewRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	course, err := h.service.AddReview(c.Request().Context(), auth.GetUser(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return sendCourse(c, http.StatusOK, course)
}

// --- Admin ---

// ListAll returns every course with its content (GET /getAllCourses).
func (h *Handler) ListAll(c echo.Context) error {
	courses, err := h.service.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "courses": courses})
}

// Create adds a course (POST /createCourse).
func (h *Handler) Create(c echo.Context) error {
	var req CourseRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	course, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return sendCourse(c, http.StatusCreated, course)
}

// Edit replaces a course (PUT /editCourse/:id).
func (h *Handler) Edit(c echo.Context) error {
	var req CourseRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	course, err := h.service.Edit(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return sendCourse(c, http.StatusOK, course)
}

// Delete removes a course (DELETE /deleteCourse/:id).
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Course deleted successfully",
	})
}

// AddReviewReply answers a review (PUT /addReviewReply).
func (h *Handler) AddReviewReply(c echo.Context) error {
	var req ReviewReplyRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	course, err := h.service.AddReviewReply(c.Request().Context(), auth.GetUser(c), req)
	if err != nil {
		return err
	}
	return sendCourse(c, http.StatusOK, course)
}

func sendCourse(c echo.Context, status int, course *Course) error {
	return c.JSON(status, map[string]any{"success": true, "course": course})
}
