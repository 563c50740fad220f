package orders

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/keyxmakerx/elearning/internal/apperror"
	"github.com/keyxmakerx/elearning/internal/mail"
	"github.com/keyxmakerx/elearning/internal/plugins/auth"
	"github.com/keyxmakerx/elearning/internal/plugins/courses"
	"github.com/keyxmakerx/elearning/internal/plugins/notifications"
)

// --- Mocks ---

type mockRepo struct {
	orders []Order
	err    error
}

func (m *mockRepo) Create(_ context.Context, o *Order) error {
	if m.err != nil {
		return m.err
	}
	m.orders = append(m.orders, *o)
	return nil
}

func (m *mockRepo) List(context.Context) ([]Order, error) { return m.orders, m.err }

func (m *mockRepo) CountCreatedBetween(context.Context, time.Time, time.Time) (int, error) {
	return len(m.orders), nil
}

type fakeUsers struct {
	users   map[string]*auth.User
	granted []string
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*auth.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NewNotFound("User not found")
	}
	cp := *u
	cp.Courses = slices.Clone(u.Courses)
	return &cp, nil
}

func (f *fakeUsers) AddCourse(ctx context.Context, userID, courseID string) (*auth.User, error) {
	f.granted = append(f.granted, courseID)
	f.users[userID].Courses = append(f.users[userID].Courses, courseID)
	return f.GetByID(ctx, userID)
}

type fakeCourses struct {
	courses   map[string]*courses.Course
	purchases map[string]int
}

func (f *fakeCourses) FindByID(_ context.Context, id string) (*courses.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, apperror.NewNotFound("Course not found")
	}
	return c, nil
}

func (f *fakeCourses) RecordPurchase(_ context.Context, id string) error {
	f.purchases[id]++
	return nil
}

type recordingNotifier struct{ titles []string }

func (n *recordingNotifier) Notify(_ context.Context, userID, title, message string) (*notifications.Notification, error) {
	n.titles = append(n.titles, title)
	return &notifications.Notification{UserID: userID, Title: title, Message: message}, nil
}

type mockMailer struct {
	sent []mail.Message
	err  error
}

func (m *mockMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type verifierFunc func(ctx context.Context, id string) error

func (f verifierFunc) Verify(ctx context.Context, id string) error { return f(ctx, id) }

type testEnv struct {
	svc      *orderService
	repo     *mockRepo
	users    *fakeUsers
	courses  *fakeCourses
	notifier *recordingNotifier
	mailer   *mockMailer
}

func newTestEnv(payments PaymentVerifier) *testEnv {
	env := &testEnv{
		repo: &mockRepo{},
		users: &fakeUsers{users: map[string]*auth.User{
			"u1": {ID: "u1", Name: "Ada", Email: "ada@example.com", Role: auth.RoleUser, Courses: []string{"owned"}},
		}},
		courses: &fakeCourses{
			courses: map[string]*courses.Course{
				"c1":    {ID: "c1", Name: "Go in Practice", Price: decimal.RequireFromString("49.99")},
				"owned": {ID: "owned", Name: "Already mine"},
			},
			purchases: map[string]int{},
		},
		notifier: &recordingNotifier{},
		mailer:   &mockMailer{},
	}
	env.svc = NewOrderService(env.repo, env.users, env.courses, env.notifier, env.mailer, payments).(*orderService)
	env.svc.now = func() time.Time { return time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC) }
	return env
}

func assertAppError(t *testing.T, err error, errType, message string) {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, errType, appErr.Type)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}

// --- Tests ---

func TestCreate_GrantsCourseAndRecordsOrder(t *testing.T) {
	env := newTestEnv(nil)

	order, err := env.svc.Create(context.Background(), "u1", CreateOrderRequest{
		CourseID:    "c1",
		PaymentInfo: PaymentInfo{"id": "pi_123", "status": "succeeded"},
	})
	require.NoError(t, err)

	assert.Equal(t, "c1", order.CourseID)
	assert.Equal(t, "u1", order.UserID)
	assert.Equal(t, "pi_123", order.PaymentInfo.ID())
	require.Len(t, env.repo.orders, 1)
	assert.Equal(t, []string{"c1"}, env.users.granted)
	assert.Equal(t, 1, env.courses.purchases["c1"])
	assert.Equal(t, []string{"New Order"}, env.notifier.titles)

	require.Len(t, env.mailer.sent, 1)
	msg := env.mailer.sent[0]
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, mail.TemplateOrderConfirmation, msg.Template)
	data, ok := msg.Data.(mail.OrderData)
	require.True(t, ok)
	assert.Equal(t, "Go in Practice", data.CourseName)
	assert.Equal(t, "March 4, 2025", data.Date)
	assert.True(t, data.Price.Equal(decimal.RequireFromString("49.99")))
	assert.Equal(t, order.ID[:8], data.OrderID)
}

func TestCreate_Rejections(t *testing.T) {
	cases := []struct {
		name     string
		userID   string
		courseID string
		errType  string
		message  string
	}{
		{"already purchased", "u1", "owned", apperror.TypeBadRequest, "You have already purchased this course"},
		{"unknown course", "u1", "nope", apperror.TypeNotFound, "Course not found"},
		{"unknown user", "ghost", "c1", apperror.TypeNotFound, "User not found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(nil)
			_, err := env.svc.Create(context.Background(), tc.userID, CreateOrderRequest{CourseID: tc.courseID})
			assertAppError(t, err, tc.errType, tc.message)
			assert.Empty(t, env.mailer.sent)
			assert.Empty(t, env.repo.orders)
		})
	}
}

func TestCreate_MailFailureStopsBeforeMutation(t *testing.T) {
	env := newTestEnv(nil)
	env.mailer.err = errors.New("smtp down")

	_, err := env.svc.Create(context.Background(), "u1", CreateOrderRequest{CourseID: "c1"})
	assertAppError(t, err, apperror.TypeUpstream, "Failed to send order confirmation")

	assert.Empty(t, env.users.granted)
	assert.Empty(t, env.repo.orders)
	assert.Zero(t, env.courses.purchases["c1"])
	assert.Empty(t, env.notifier.titles)
}

func TestCreate_PaymentVerification(t *testing.T) {
	var checked string
	env := newTestEnv(verifierFunc(func(_ context.Context, id string) error {
		checked = id
		if id != "pi_ok" {
			return apperror.NewBadRequest("Payment not authorized")
		}
		return nil
	}))
	ctx := context.Background()

	_, err := env.svc.Create(ctx, "u1", CreateOrderRequest{CourseID: "c1", PaymentInfo: PaymentInfo{"id": "pi_bad"}})
	assertAppError(t, err, apperror.TypeBadRequest, "Payment not authorized")
	assert.Equal(t, "pi_bad", checked)
	assert.Empty(t, env.mailer.sent)

	_, err = env.svc.Create(ctx, "u1", CreateOrderRequest{CourseID: "c1", PaymentInfo: PaymentInfo{"id": "pi_ok"}})
	require.NoError(t, err)
	assert.Len(t, env.repo.orders, 1)
}

func TestCreate_PersistFailure(t *testing.T) {
	env := newTestEnv(nil)
	env.repo.err = errors.New("disk full")

	_, err := env.svc.Create(context.Background(), "u1", CreateOrderRequest{CourseID: "c1"})
	assertAppError(t, err, apperror.TypeInternal, "")
}

func TestStripeVerifier(t *testing.T) {
	intents := map[string]stripe.PaymentIntentStatus{
		"pi_ok":      stripe.PaymentIntentStatusSucceeded,
		"pi_pending": stripe.PaymentIntentStatusRequiresPaymentMethod,
	}
	v := &StripeVerifier{get: func(id string) (*stripe.PaymentIntent, error) {
		status, ok := intents[id]
		if !ok {
			return nil, errors.New("no such payment_intent")
		}
		return &stripe.PaymentIntent{ID: id, Status: status}, nil
	}}
	ctx := context.Background()

	require.NoError(t, v.Verify(ctx, "pi_ok"))
	assertAppError(t, v.Verify(ctx, "pi_pending"), apperror.TypeBadRequest, "Payment not authorized")
	assertAppError(t, v.Verify(ctx, "pi_missing"), apperror.TypeUpstream, "")
	assertAppError(t, v.Verify(ctx, ""), apperror.TypeValidation, "Please provide payment information")
}

func TestNewStripeVerifier_RequiresKey(t *testing.T) {
	_, err := NewStripeVerifier("")
	assert.Error(t, err)
}
