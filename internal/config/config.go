// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8000).
	Port int

	// BaseURL is the public-facing URL used for links and redirects.
	BaseURL string

	// Origin is the browser origin allowed by CORS (the frontend URL).
	Origin string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// ConnectRetry is the fixed backoff between startup connection attempts.
	ConnectRetry time.Duration

	Database      DatabaseConfig
	Cache         CacheConfig
	Auth          AuthConfig
	Mail          MailConfig
	Storage       StorageConfig
	OIDC          OIDCConfig
	Stripe        StripeConfig
	Notifications NotificationConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so
// container orchestrators can manage each independently.
// If DATABASE_URL is set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host     string
	User     string
	Password string
	Name     string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// fields using the driver's Config.FormatDSN() to safely handle special
// characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	// RowsAffected reports matched rows, so an UPDATE that changes nothing
	// is not mistaken for a missing row.
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// CacheConfig selects and configures the key-value store backing sessions,
// refresh token ids and the course cache.
type CacheConfig struct {
	// Driver is "redis" (default) or "memory" for single-process development.
	Driver string

	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AuthConfig holds token and session settings.
type AuthConfig struct {
	AccessSecret     string
	RefreshSecret    string
	ActivationSecret string

	// AccessTTL is the access token lifetime (ACCESS_TOKEN_EXPIRE, minutes).
	AccessTTL time.Duration

	// RefreshTTL is the refresh token lifetime (REFRESH_TOKEN_EXPIRE, days).
	RefreshTTL time.Duration

	// SessionTTL bounds how long a session snapshot lives without a refresh.
	SessionTTL time.Duration

	// SecureCookies sets the Secure flag on token cookies.
	SecureCookies bool
}

// MailConfig holds outbound SMTP settings. An empty Host selects the
// logging mailer.
type MailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	FromEmail  string
	FromName   string
	Encryption string // "starttls", "ssl", or "none"
}

// StorageConfig selects the asset host.
type StorageConfig struct {
	// Driver is "local" (default) or "s3".
	Driver string

	// MediaPath is the root directory for the local store.
	MediaPath string

	// MaxSize is the maximum decoded upload size in bytes.
	MaxSize int64

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	// S3PublicURL is the base used to build asset URLs. Defaults to
	// Endpoint/Bucket.
	S3PublicURL string
}

// OIDCConfig enables ID-token verification for social login and the SSO
// redirect flow. Empty Issuer disables both.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether an OIDC provider is configured.
func (o OIDCConfig) Enabled() bool {
	return o.Issuer != "" && o.ClientID != ""
}

// StripeConfig holds payment verification settings. Empty SecretKey skips
// verification.
type StripeConfig struct {
	SecretKey string
}

// NotificationConfig controls the read-notification sweeper.
type NotificationConfig struct {
	Retention time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// An optional .env file in the working directory is applied first; real
// environment variables always win. Returns an error if required variables
// are missing.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:          getEnv("ENV", "development"),
		Port:         getEnvInt("PORT", 8000),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8000"),
		Origin:       getEnv("ORIGIN", "http://localhost:3000"),
		LogLevel:     getEnv("LOG_LEVEL", "debug"),
		ConnectRetry: getEnvDuration("CONNECT_RETRY", 5*time.Second),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "elearning"),
			Password:        getEnv("DB_PASSWORD", "elearning"),
			Name:            getEnv("DB_NAME", "elearning"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath:  getEnv("MIGRATIONS_PATH", "db/migrations"),
		},

		Cache: CacheConfig{
			Driver: strings.ToLower(getEnv("CACHE_DRIVER", "redis")),
			URL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			AccessSecret:     getEnv("ACCESS_TOKEN_SECRET", ""),
			RefreshSecret:    getEnv("REFRESH_TOKEN_SECRET", ""),
			ActivationSecret: getEnv("ACTIVATION_SECRET", ""),
			AccessTTL:        time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE", 5)) * time.Minute,
			RefreshTTL:       time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRE", 3)) * 24 * time.Hour,
			SessionTTL:       getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		},

		Mail: MailConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvInt("SMTP_PORT", 587),
			Username:   getEnv("SMTP_USER", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			FromEmail:  getEnv("SMTP_FROM", "no-reply@localhost"),
			FromName:   getEnv("SMTP_FROM_NAME", "E-Learning"),
			Encryption: strings.ToLower(getEnv("SMTP_ENCRYPTION", "starttls")),
		},

		Storage: StorageConfig{
			Driver:      strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
			MediaPath:   getEnv("MEDIA_PATH", "./media"),
			MaxSize:     getEnvInt64("MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB
			S3Endpoint:  getEnv("S3_ENDPOINT", ""),
			S3Region:    getEnv("S3_REGION", "us-east-1"),
			S3Bucket:    getEnv("S3_BUCKET", ""),
			S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey: getEnv("S3_SECRET_KEY", ""),
			S3PublicURL: getEnv("S3_PUBLIC_URL", ""),
		},

		OIDC: OIDCConfig{
			Issuer:       getEnv("OIDC_ISSUER", ""),
			ClientID:     getEnv("OIDC_CLIENT_ID", ""),
			ClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("OIDC_REDIRECT_URL", ""),
		},

		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		},

		Notifications: NotificationConfig{
			Retention: getEnvDuration("NOTIFICATION_RETENTION", 30*24*time.Hour),
		},
	}

	if cfg.Auth.AccessTTL <= 0 || cfg.Auth.RefreshTTL <= 0 || cfg.Auth.SessionTTL <= 0 {
		return nil, fmt.Errorf("token and session lifetimes must be positive")
	}

	switch cfg.Cache.Driver {
	case "redis", "memory":
	default:
		return nil, fmt.Errorf("unknown CACHE_DRIVER %q", cfg.Cache.Driver)
	}

	switch cfg.Storage.Driver {
	case "local":
	case "s3":
		if cfg.Storage.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	if cfg.IsProduction() {
		cfg.Auth.SecureCookies = true
		secrets := map[string]string{
			"ACCESS_TOKEN_SECRET":  cfg.Auth.AccessSecret,
			"REFRESH_TOKEN_SECRET": cfg.Auth.RefreshSecret,
			"ACTIVATION_SECRET":    cfg.Auth.ActivationSecret,
		}
		for name, val := range secrets {
			if val == "" {
				return nil, fmt.Errorf("%s is required in production", name)
			}
			if len(val) < 32 {
				return nil, fmt.Errorf("%s must be at least 32 characters in production", name)
			}
		}
	}

	// Dev-only default secrets so local dev works without .env. They differ
	// per token kind so one token can never verify as another.
	if cfg.Auth.AccessSecret == "" {
		cfg.Auth.AccessSecret = "dev-access-secret-do-not-use-in-production"
	}
	if cfg.Auth.RefreshSecret == "" {
		cfg.Auth.RefreshSecret = "dev-refresh-secret-do-not-use-in-production"
	}
	if cfg.Auth.ActivationSecret == "" {
		cfg.Auth.ActivationSecret = "dev-activation-secret-do-not-use-in-production"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvInt64 reads an int64 env var or returns the default.
func getEnvInt64(key string, defaultVal int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "168h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
