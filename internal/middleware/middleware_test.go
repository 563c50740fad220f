package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/elearning/internal/apperror"
)

type signupBody struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func TestValidator_ReportsJSONFieldNames(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&signupBody{Email: "a@b.co", Password: "secret1"})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.TypeValidation))
	assert.Equal(t, "Please enter name", apperror.SafeMessage(err))

	err = v.Validate(&signupBody{Name: "A", Email: "nope", Password: "secret1"})
	assert.Equal(t, "email must be a valid email address", apperror.SafeMessage(err))

	err = v.Validate(&signupBody{Name: "A", Email: "a@b.co", Password: "123"})
	assert.Equal(t, "password must be at least 6 characters", apperror.SafeMessage(err))

	assert.NoError(t, v.Validate(&signupBody{Name: "A", Email: "a@b.co", Password: "secret1"}))
}

func TestBindAndValidate(t *testing.T) {
	e := newTestEcho()

	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"Ann","email":"ann@example.com","password":"secret1"}`, false},
		{"malformed json", `{"name":`, true},
		{"missing field", `{"email":"ann@example.com","password":"secret1"}`, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			c := e.NewContext(req, httptest.NewRecorder())

			var body signupBody
			err := BindAndValidate(c, &body)
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, apperror.SafeCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Ann", body.Name)
		})
	}
}

func TestBodyLimit_RejectsDeclaredOversize(t *testing.T) {
	e := echo.New()
	called := false
	h := BodyLimit(10)(func(c echo.Context) error {
		called = true
		return nil
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 11)))
	c := e.NewContext(req, httptest.NewRecorder())

	err := h(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusRequestEntityTooLarge, he.Code)
	assert.False(t, called)
}

func TestRateLimit_BlocksAfterBudget(t *testing.T) {
	e := echo.New()
	l := newLimiter(2, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	h := rateLimit(l)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		rec := httptest.NewRecorder()
		require.NoError(t, h(e.NewContext(req, rec)))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusOK, do())

	now = now.Add(5 * time.Minute)
	l.sweep()
	assert.Empty(t, l.entries)
}

func TestCORS_AllowsConfiguredOriginWithCredentials(t *testing.T) {
	e := echo.New()
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:3000/"}, AllowCredentials: true})(
		func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/me", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery_ConvertsPanicToInternalError(t *testing.T) {
	e := echo.New()
	h := Recovery()(func(c echo.Context) error { panic("boom") })

	err := h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder()))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.TypeInternal))
}

func TestTrustedProxies_OnlyTrustsKnownPeers(t *testing.T) {
	extract := buildIPExtractor([]string{"10.0.0.0/8", "not-a-cidr"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:4000"
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.1.2.3")
	assert.Equal(t, "198.51.100.7", extract(req))

	// A client cannot prepend its own entries past the first untrusted hop.
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 198.51.100.7, 10.9.9.9")
	assert.Equal(t, "198.51.100.7", extract(req))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", extract(req))

	req.RemoteAddr = "192.0.2.50:4000"
	assert.Equal(t, "192.0.2.50", extract(req))
}

func TestErrorHandler_Envelope(t *testing.T) {
	e := echo.New()

	cases := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"app error", apperror.NewForbidden("Role: user is not allowed to access this resource"), http.StatusForbidden, "Role: user is not allowed to access this resource"},
		{"echo error", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too big"), http.StatusRequestEntityTooLarge, "too big"},
		{"echo not found", echo.ErrNotFound, http.StatusNotFound, "Not Found"},
		{"plain error", assert.AnError, http.StatusInternalServerError, "An unexpected error occurred. Please try again."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/x", nil), rec)

			ErrorHandler(tc.err, c)

			assert.Equal(t, tc.code, rec.Code)
			assert.JSONEq(t, `{"success":false,"message":"`+tc.message+`"}`, rec.Body.String())
		})
	}
}
