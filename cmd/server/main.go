// Package main is the entry point for the e-learning API server. It loads
// configuration, establishes database connections, wires together all
// plugins, and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/keyxmakerx/elearning/internal/app"
	"github.com/keyxmakerx/elearning/internal/cache"
	"github.com/keyxmakerx/elearning/internal/config"
	"github.com/keyxmakerx/elearning/internal/database"
	"github.com/keyxmakerx/elearning/internal/mail"
	"github.com/keyxmakerx/elearning/internal/plugins/auth"
	"github.com/keyxmakerx/elearning/internal/plugins/media"
	"github.com/keyxmakerx/elearning/internal/plugins/orders"
)

func main() {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// Configure structured logging based on environment.
	setupLogging(cfg)

	slog.Info("starting e-learning API",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
	)

	// Cancelled on SIGINT/SIGTERM. Startup retries and background workers
	// all stop with it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to MariaDB ---
	db, err := database.NewMariaDB(ctx, cfg.Database, cfg.ConnectRetry)
	if err != nil {
		slog.Error("failed to connect to MariaDB", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to MariaDB")

	if err := database.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Cache (sessions, refresh ids, course and layout cache) ---
	var store cache.Store
	switch cfg.Cache.Driver {
	case "memory":
		slog.Warn("using in-process cache; sessions are lost on restart")
		store = cache.NewMemoryStore()
	default:
		rdb, err := database.NewRedis(ctx, cfg.Cache, cfg.ConnectRetry)
		if err != nil {
			slog.Error("failed to connect to Redis", slog.Any("error", err))
			os.Exit(1)
		}
		store = cache.NewRedisStore(rdb)
		slog.Info("connected to Redis")
	}
	defer store.Close()

	infra := app.Infra{
		DB:     db,
		Cache:  store,
		Mailer: newMailer(cfg),
	}

	// --- Asset host ---
	switch cfg.Storage.Driver {
	case "s3":
		s3Store, err := media.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			slog.Error("failed to configure S3 storage", slog.Any("error", err))
			os.Exit(1)
		}
		infra.Assets = s3Store
	default:
		local, err := media.NewLocalStore(cfg.Storage.MediaPath, cfg.BaseURL, cfg.Storage.MaxSize)
		if err != nil {
			slog.Error("failed to configure local storage", slog.Any("error", err))
			os.Exit(1)
		}
		infra.Assets = local
	}

	// --- Optional providers ---
	if cfg.OIDC.Enabled() {
		provider, err := auth.NewOIDCProvider(ctx, cfg.OIDC)
		if err != nil {
			slog.Error("failed to configure OIDC provider", slog.Any("error", err))
			os.Exit(1)
		}
		infra.Identity = provider
		slog.Info("social login verification enabled", slog.String("issuer", cfg.OIDC.Issuer))
	}
	if cfg.Stripe.SecretKey != "" {
		verifier, err := orders.NewStripeVerifier(cfg.Stripe.SecretKey)
		if err != nil {
			slog.Error("failed to configure Stripe", slog.Any("error", err))
			os.Exit(1)
		}
		infra.Payments = verifier
	} else {
		slog.Warn("STRIPE_SECRET_KEY not set; order payments are not verified")
	}

	// --- Create Application ---
	application, err := app.New(cfg, infra)
	if err != nil {
		slog.Error("failed to create application", slog.Any("error", err))
		os.Exit(1)
	}
	application.RegisterRoutes()

	if err := application.StartBackground(ctx); err != nil {
		slog.Error("failed to start background workers", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Graceful Shutdown ---
	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")

		// Give in-flight requests 10 seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := application.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	// --- Start Server ---
	if err := application.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// newMailer picks SMTP when a host is configured and the logging mailer
// otherwise.
func newMailer(cfg *config.Config) mail.Sender {
	if cfg.Mail.Host == "" {
		slog.Warn("SMTP_HOST not set; mails are logged, not sent")
		return mail.NewLogSender()
	}
	return mail.NewSMTPSender(cfg.Mail)
}

// setupLogging configures the global slog logger based on the environment.
// Development uses text format for readability. Production uses JSON for
// structured log aggregation.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
