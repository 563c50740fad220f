package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/elearning/internal/apperror"
	"github.com/keyxmakerx/elearning/internal/mail"
	"github.com/keyxmakerx/elearning/internal/plugins/auth"
	"github.com/keyxmakerx/elearning/internal/plugins/courses"
	"github.com/keyxmakerx/elearning/internal/plugins/notifications"
)

// Users is the part of auth.UserService orders need.
type Users interface {
	GetByID(ctx context.Context, id string) (*auth.User, error)
	AddCourse(ctx context.Context, userID, courseID string) (*auth.User, error)
}

// Courses is the part of courses.CourseService orders need.
type Courses interface {
	FindByID(ctx context.Context, id string) (*courses.Course, error)
	RecordPurchase(ctx context.Context, id string) error
}

// Notifier records admin notifications.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message string) (*notifications.Notification, error)
}

// OrderService handles business logic for orders.
type OrderService interface {
	// Create buys courseID for userID.
	Create(ctx context.Context, userID string, req CreateOrderRequest) (*Order, error)

	// List returns every order, newest first.
	List(ctx context.Context) ([]Order, error)
}

// orderService implements OrderService.
type orderService struct {
	repo     OrderRepository
	users    Users
	courses  Courses
	notifier Notifier
	mailer   mail.Sender
	payments PaymentVerifier
	now      func() time.Time
}

// NewOrderService creates a new order service. payments may be nil, in
// which case client-reported payments are trusted.
func NewOrderService(
	repo OrderRepository,
	users Users,
	courses Courses,
	notifier Notifier,
	mailer mail.Sender,
	payments PaymentVerifier,
) OrderService {
	return &orderService{
		repo:     repo,
		users:    users,
		courses:  courses,
		notifier: notifier,
		mailer:   mailer,
		payments: payments,
		now:      time.Now,
	}
}

// Create runs the purchase. Everything up to and including the
// confirmation mail can fail without side effects; after that the course
// is granted first and the bookkeeping follows.
func (s *orderService) Create(ctx context.Context, userID string, req CreateOrderRequest) (*Order, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.HasCourse(req.CourseID) {
		return nil, apperror.NewBadRequest("You have already purchased this course")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	if s.payments != nil {
		if err := s.payments.Verify(ctx, req.PaymentInfo.ID()); err != nil {
			slog.Warn("payment verification failed",
				slog.String("user_id", userID),
				slog.String("course_id", course.ID),
				slog.Any("error", err),
			)
			return nil, err
		}
	}

	now := s.now().UTC()
	order := &Order{
		ID:          uuid.NewString(),
		CourseID:    course.ID,
		UserID:      user.ID,
		PaymentInfo: req.PaymentInfo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.mailer.Send(ctx, mail.Message{
		To:       user.Email,
		Subject:  "Order confirmation",
		Template: mail.TemplateOrderConfirmation,
		Data: mail.OrderData{
			OrderID:    order.ID[:8],
			CourseName: course.Name,
			Price:      course.Price,
			Date:       now.Format("January 2, 2006"),
		},
	})
	if err != nil {
		return nil, apperror.NewUpstream("Failed to send order confirmation", err)
	}

	if _, err := s.users.AddCourse(ctx, user.ID, course.ID); err != nil {
		return nil, err
	}

	if _, err := s.notifier.Notify(ctx, user.ID, "New Order", "You have a new order from "+course.Name); err != nil {
		slog.Warn("failed to record order notification", slog.String("order_id", order.ID), slog.Any("error", err))
	}
	if err := s.courses.RecordPurchase(ctx, course.ID); err != nil {
		slog.Warn("failed to count purchase", slog.String("course_id", course.ID), slog.Any("error", err))
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("persisting order: %w", err))
	}

	slog.Info("order created",
		slog.String("order_id", order.ID),
		slog.String("user_id", user.ID),
		slog.String("course_id", course.ID),
	)
	return order, nil
}

func (s *orderService) List(ctx context.Context) ([]Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.NewInternal(err)
	}
	return orders, nil
}
