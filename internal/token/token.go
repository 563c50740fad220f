// Package token signs and verifies the three bearer credentials of the auth
// layer: access, refresh and activation tokens. Each kind has its own
// secret, so a token of one kind never verifies as another. Verification is
// stateless; revocation lives in the session cache.
package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Sentinel verification failures. Callers map all of them to 401 and use
// the kind only for the message.
var (
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
	ErrMalformed        = errors.New("token is malformed")
)

// Config holds the signing secrets and lifetimes.
type Config struct {
	AccessSecret     string
	RefreshSecret    string
	ActivationSecret string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
}

// UserClaims is the payload of access and refresh tokens.
type UserClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// PendingUser is the registration data carried inside an activation token
// until the user proves ownership of the email address. The password is
// already hashed.
type PendingUser struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

// ActivationClaims is the payload of an activation token.
type ActivationClaims struct {
	User           PendingUser `json:"user"`
	ActivationCode string      `json:"activation_code"`
	jwt.RegisteredClaims
}

// ActivationToken is returned by IssueActivationToken. Code goes to the
// user's mailbox, Token goes to the client.
type ActivationToken struct {
	Token string
	Code  string
}

// RefreshToken is a signed refresh token plus the id used to make it
// single-use.
type RefreshToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// Issuer signs and verifies tokens with HMAC-SHA256.
type Issuer struct {
	cfg Config
	now func() time.Time
}

// Option customizes an Issuer.
type Option func(*Issuer)

// WithClock replaces the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer creates an Issuer. Secrets must be non-empty.
func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" || cfg.ActivationSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	i := &Issuer{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// AccessTTL returns the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.cfg.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.cfg.RefreshTTL }

// IssueActivationToken embeds pending in a token that expires with the
// access lifetime, together with a fresh 4-digit code.
func (i *Issuer) IssueActivationToken(pending PendingUser) (ActivationToken, error) {
	code, err := activationCode()
	if err != nil {
		return ActivationToken{}, err
	}
	claims := ActivationClaims{
		User:             pending,
		ActivationCode:   code,
		RegisteredClaims: i.registered(i.cfg.AccessTTL, ""),
	}
	signed, err := sign(claims, i.cfg.ActivationSecret)
	if err != nil {
		return ActivationToken{}, err
	}
	return ActivationToken{Token: signed, Code: code}, nil
}

// IssueAccessToken signs {id: userID} with the access secret.
func (i *Issuer) IssueAccessToken(userID string) (string, error) {
	return sign(UserClaims{UserID: userID, RegisteredClaims: i.registered(i.cfg.AccessTTL, "")}, i.cfg.AccessSecret)
}

// IssueRefreshToken signs {id: userID} with the refresh secret. The token
// carries a unique jti.
func (i *Issuer) IssueRefreshToken(userID string) (RefreshToken, error) {
	jti := uuid.NewString()
	rc := i.registered(i.cfg.RefreshTTL, jti)
	signed, err := sign(UserClaims{UserID: userID, RegisteredClaims: rc}, i.cfg.RefreshSecret)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Token: signed, ID: jti, ExpiresAt: rc.ExpiresAt.Time}, nil
}

// VerifyAccess checks an access token and returns its claims.
func (i *Issuer) VerifyAccess(raw string) (*UserClaims, error) {
	claims := &UserClaims{}
	if err := i.verify(raw, claims, i.cfg.AccessSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

// VerifyRefresh checks a refresh token and returns its claims. Claims.ID is
// the jti.
func (i *Issuer) VerifyRefresh(raw string) (*UserClaims, error) {
	claims := &UserClaims{}
	if err := i.verify(raw, claims, i.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.ID == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

// VerifyActivation checks an activation token and returns its claims.
func (i *Issuer) VerifyActivation(raw string) (*ActivationClaims, error) {
	claims := &ActivationClaims{}
	if err := i.verify(raw, claims, i.cfg.ActivationSecret); err != nil {
		return nil, err
	}
	if claims.User.Email == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

func (i *Issuer) registered(ttl time.Duration, jti string) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (i *Issuer) verify(raw string, claims jwt.Claims, secret string) error {
	if raw == "" {
		return ErrMalformed
	}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func sign(claims jwt.Claims, secret string) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// activationCode returns a uniformly random code in 1000..9999.
func activationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", fmt.Errorf("generating activation code: %w", err)
	}
	return fmt.Sprintf("%d", 1000+n.Int64()), nil
}
