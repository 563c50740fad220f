// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (DB pool, cache, Echo instance) and
// wires every plugin's repository, service and handler together.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/elearning/internal/cache"
	"github.com/keyxmakerx/elearning/internal/config"
	"github.com/keyxmakerx/elearning/internal/mail"
	"github.com/keyxmakerx/elearning/internal/middleware"
	"github.com/keyxmakerx/elearning/internal/plugins/analytics"
	"github.com/keyxmakerx/elearning/internal/plugins/auth"
	"github.com/keyxmakerx/elearning/internal/plugins/courses"
	"github.com/keyxmakerx/elearning/internal/plugins/layout"
	"github.com/keyxmakerx/elearning/internal/plugins/media"
	"github.com/keyxmakerx/elearning/internal/plugins/notifications"
	"github.com/keyxmakerx/elearning/internal/plugins/orders"
	"github.com/keyxmakerx/elearning/internal/token"
)

// Infra is the set of external collaborators built in main.go.
type Infra struct {
	DB     *sql.DB
	Cache  cache.Store
	Assets media.Store
	Mailer mail.Sender

	// Identity verifies social logins and drives SSO. Leave nil when no
	// OIDC issuer is configured.
	Identity auth.IdentityProvider

	// Payments verifies orders. Leave nil to trust client payment info.
	Payments orders.PaymentVerifier
}

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go.
type App struct {
	Config *config.Config
	DB     *sql.DB
	Cache  cache.Store
	Echo   *echo.Echo

	// Hub pushes new notifications to connected admin dashboards.
	Hub *notifications.Hub

	// Sweeper deletes old read notifications once a day.
	Sweeper *notifications.Sweeper

	handlers handlers
	auth     auth.AuthService
	assets   media.Store
}

// handlers groups every plugin's HTTP handler for route registration.
type handlers struct {
	auth          *auth.Handler
	courses       *courses.Handler
	orders        *orders.Handler
	notifications *notifications.Handler
	layout        *layout.Handler
	analytics     *analytics.Handler
}

// New creates the App: it configures Echo with global middleware and the
// JSON error handler, then builds every plugin.
func New(cfg *config.Config, infra Infra) (*App, error) {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = middleware.NewValidator()

	// Configure trusted reverse proxy IPs so c.RealIP() returns the actual
	// client IP instead of the proxy's IP. Rate limiting keys on it.
	middleware.TrustedProxies(e, []string{
		"127.0.0.0/8",    // Localhost
		"10.0.0.0/8",     // Docker default bridge
		"172.16.0.0/12",  // Docker bridge (alternate range)
		"192.168.0.0/16", // Common LAN
		"fd00::/8",       // IPv6 private
	})

	a := &App{
		Config: cfg,
		DB:     infra.DB,
		Cache:  infra.Cache,
		Echo:   e,
		assets: infra.Assets,
	}
	a.setupMiddleware()

	if err := a.wire(infra); err != nil {
		return nil, err
	}
	return a, nil
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	a.Echo.Use(middleware.SecurityHeaders(a.Config.IsProduction()))

	// CORS -- the frontend runs on its own origin and sends cookies.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   splitOrigins(a.Config.Origin),
		AllowCredentials: true,
	}))
}

// wire builds repositories, services and handlers for every plugin.
func (a *App) wire(infra Infra) error {
	cfg := a.Config

	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:     cfg.Auth.AccessSecret,
		RefreshSecret:    cfg.Auth.RefreshSecret,
		ActivationSecret: cfg.Auth.ActivationSecret,
		AccessTTL:        cfg.Auth.AccessTTL,
		RefreshTTL:       cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return fmt.Errorf("creating token issuer: %w", err)
	}

	// Auth: the session cache and every user mutation.
	userRepo := auth.NewUserRepository(infra.DB)
	sessions := auth.NewSessionStore(infra.Cache, cfg.Auth.SessionTTL)
	authService := auth.NewAuthService(userRepo, sessions, issuer, infra.Mailer)
	userService := auth.NewUserService(userRepo, sessions, infra.Assets)
	a.auth = authService

	// Notifications: the hub only sees events for connected admins.
	a.Hub = notifications.NewHub(splitOrigins(cfg.Origin))
	notificationService := notifications.NewNotificationService(
		notifications.NewNotificationRepository(infra.DB), a.Hub,
	)
	a.Sweeper = notifications.NewSweeper(notificationService, cfg.Notifications.Retention)

	// Courses and orders.
	courseRepo := courses.NewCourseRepository(infra.DB)
	courseService := courses.NewCourseService(
		courseRepo, infra.Assets, infra.Cache, notificationService, infra.Mailer,
		courses.NewUserFinderAdapter(userService),
	)
	orderRepo := orders.NewOrderRepository(infra.DB)
	orderService := orders.NewOrderService(
		orderRepo, userService, courseService, notificationService, infra.Mailer, infra.Payments,
	)

	layoutService := layout.NewLayoutService(layout.NewLayoutRepository(infra.DB), infra.Assets, infra.Cache)

	a.handlers = handlers{
		auth: auth.NewHandler(authService, userService, infra.Identity, auth.CookieConfig{
			Secure:     cfg.Auth.SecureCookies,
			AccessTTL:  cfg.Auth.AccessTTL,
			RefreshTTL: cfg.Auth.RefreshTTL,
		}, frontendURL(cfg)),
		courses:       courses.NewHandler(courseService),
		orders:        orders.NewHandler(orderService),
		notifications: notifications.NewHandler(notificationService, a.Hub),
		layout:        layout.NewHandler(layoutService),
		analytics:     analytics.NewHandler(userRepo, courseRepo, orderRepo),
	}
	return nil
}

// StartBackground starts the websocket heartbeat and the notification
// sweeper. Both stop when ctx is cancelled or Shutdown is called.
func (a *App) StartBackground(ctx context.Context) error {
	go a.Hub.Run(ctx)
	return a.Sweeper.Start(ctx)
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting e-learning server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}

// Shutdown stops the sweeper and drains the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	a.Sweeper.Stop()
	return a.Echo.Shutdown(ctx)
}

// splitOrigins parses the comma-separated ORIGIN setting.
func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// frontendURL is where the browser lands after SSO: the first configured
// origin, or BASE_URL when none is set.
func frontendURL(cfg *config.Config) string {
	if origins := splitOrigins(cfg.Origin); len(origins) > 0 {
		return origins[0]
	}
	return cfg.BaseURL
}
