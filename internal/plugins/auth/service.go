package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/elearning/internal/apperror"
	"github.com/keyxmakerx/elearning/internal/mail"
	"github.com/keyxmakerx/elearning/internal/token"
)

// Messages returned by the gate and the refresh flow.
const (
	msgMissingToken      = "Please login to access this resource"
	msgTokenExpired      = "Access token has expired"
	msgTokenInvalid      = "Access token is not valid"
	msgSessionNotFound   = "Your session has expired. Please login again"
	msgRefreshInvalid    = "Could not refresh token"
	msgRefreshReused     = "Refresh token has already been used. Please login again"
	msgInvalidCredential = "Invalid email or password"
)

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type AuthService interface {
	// Register checks the email is free and mails an activation code. No
	// user is created until Activate. Returns the activation token.
	Register(ctx context.Context, input RegisterInput) (string, error)

	// Activate creates the user embedded in activationToken if code matches.
	Activate(ctx context.Context, activationToken, code string) (*User, error)

	Login(ctx context.Context, email, password string) (*LoginResult, error)
	SocialLogin(ctx context.Context, input SocialInput) (*LoginResult, error)

	// Refresh rotates a refresh token. Each refresh token works once;
	// presenting a used one ends the session.
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)

	// Logout deletes the session snapshot and revokes refreshToken if it
	// belongs to userID.
	Logout(ctx context.Context, userID, refreshToken string) error

	// Authenticate verifies an access token and returns the session
	// snapshot it points at.
	Authenticate(ctx context.Context, accessToken string) (*User, error)
}

// authService implements AuthService.
type authService struct {
	repo     UserRepository
	sessions *SessionStore
	tokens   *token.Issuer
	mailer   mail.Sender
	now      func() time.Time
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(repo UserRepository, sessions *SessionStore, tokens *token.Issuer, mailer mail.Sender) AuthService {
	return &authService{
		repo:     repo,
		sessions: sessions,
		tokens:   tokens,
		mailer:   mailer,
		now:      time.Now,
	}
}

// Register validates uniqueness, hashes the password and mails the code.
// The hash rides inside the signed activation token until activation.
func (s *authService) Register(ctx context.Context, input RegisterInput) (string, error) {
	email := normalizeEmail(input.Email)

	// Check if email is already taken before doing expensive hashing.
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return "", apperror.NewConflict("Email already exists")
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	pending := token.PendingUser{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
	}
	activation, err := s.tokens.IssueActivationToken(pending)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("issuing activation token: %w", err))
	}

	err = s.mailer.Send(ctx, mail.Message{
		To:       email,
		Subject:  "Activate your account",
		Template: mail.TemplateActivation,
		Data:     mail.ActivationData{Name: pending.Name, Code: activation.Code},
	})
	if err != nil {
		return "", apperror.NewUpstream("Failed to send activation email", err)
	}

	slog.Info("registration started", slog.String("email", email))
	return activation.Token, nil
}

// Activate verifies the token and code, then creates the user. The email is
// checked again because time has passed since Register; the unique index
// settles any remaining race.
func (s *authService) Activate(ctx context.Context, activationToken, code string) (*User, error) {
	claims, err := s.tokens.VerifyActivation(activationToken)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, apperror.NewBadRequest("Activation code has expired. Please register again")
		}
		return nil, apperror.NewBadRequest("Invalid activation token")
	}

	if subtle.ConstantTimeCompare([]byte(claims.ActivationCode), []byte(strings.TrimSpace(code))) != 1 {
		return nil, apperror.NewBadRequest("Invalid activation code")
	}

	exists, err := s.repo.EmailExists(ctx, claims.User.Email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, apperror.NewConflict("Email already exists")
	}

	now := s.now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Name:         claims.User.Name,
		Email:        claims.User.Email,
		PasswordHash: claims.User.PasswordHash,
		Role:         RoleUser,
		IsVerified:   true,
		Courses:      []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if apperror.Is(err, apperror.TypeConflict) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user activated",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Login authenticates by email and password and opens a session.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.NewValidation("Please enter email and password")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		// Don't reveal whether the email exists -- use generic message.
		if apperror.IsNotFound(err) {
			return nil, apperror.NewBadRequest(msgInvalidCredential)
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	// Social accounts have no password and can only log in socially.
	if user.PasswordHash == "" || !verifyPassword(password, user.PasswordHash) {
		return nil, apperror.NewBadRequest(msgInvalidCredential)
	}

	result, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return result, nil
}

// SocialLogin finds or creates a password-less user for the asserted email
// and opens a session.
func (s *authService) SocialLogin(ctx context.Context, input SocialInput) (*LoginResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, apperror.NewValidation("Email is required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
	case apperror.IsNotFound(err):
		user, err = s.createSocialUser(ctx, email, input)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	result, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in (social)", slog.String("user_id", user.ID))
	return result, nil
}

func (s *authService) createSocialUser(ctx context.Context, email string, input SocialInput) (*User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	now := s.now().UTC()
	user := &User{
		ID:         uuid.NewString(),
		Name:       name,
		Email:      email,
		Role:       RoleUser,
		IsVerified: true,
		Courses:    []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if input.AvatarURL != "" {
		user.Avatar = &Avatar{URL: input.AvatarURL}
	}

	err := s.repo.Create(ctx, user)
	if apperror.Is(err, apperror.TypeConflict) {
		// Another request created the same account first.
		existing, findErr := s.repo.FindByEmail(ctx, email)
		if findErr != nil {
			return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", findErr))
		}
		return existing, nil
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating social user: %w", err))
	}

	slog.Info("user registered (social)",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Refresh verifies the refresh token, consumes its id and rotates the pair.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, apperror.NewUnauthorized(msgRefreshInvalid)
	}

	owner, found, err := s.sessions.ConsumeRefresh(ctx, claims.ID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if !found || owner != claims.UserID {
		// A validly signed token whose id is gone was already used or
		// revoked. Treat it as stolen and end the session.
		slog.Warn("refresh token reuse detected, revoking session",
			slog.String("user_id", claims.UserID),
			slog.String("token_id", claims.ID),
		)
		if err := s.sessions.Delete(ctx, claims.UserID); err != nil {
			return nil, apperror.NewInternal(err)
		}
		return nil, apperror.NewUnauthorized(msgRefreshReused)
	}

	user, found, err := s.sessions.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if !found {
		// The cache TTL bounds the session, not the refresh token.
		return nil, apperror.NewUnauthorized(msgSessionNotFound)
	}

	return s.openSession(ctx, user)
}

// Logout deletes the snapshot first; revoking the refresh token id is
// best-effort on top of that.
func (s *authService) Logout(ctx context.Context, userID, refreshToken string) error {
	if err := s.sessions.Delete(ctx, userID); err != nil {
		return apperror.NewInternal(err)
	}

	if refreshToken != "" {
		if claims, err := s.tokens.VerifyRefresh(refreshToken); err == nil && claims.UserID == userID {
			if err := s.sessions.RevokeRefresh(ctx, claims.ID); err != nil {
				slog.Warn("failed to revoke refresh token",
					slog.String("user_id", userID),
					slog.Any("error", err),
				)
			}
		}
	}

	slog.Info("user logged out", slog.String("user_id", userID))
	return nil
}

// Authenticate implements the gate decision: token, then snapshot.
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, apperror.NewUnauthorized(msgMissingToken)
	}

	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, apperror.NewUnauthorized(msgTokenExpired)
		}
		return nil, apperror.NewUnauthorized(msgTokenInvalid)
	}

	user, found, err := s.sessions.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if !found {
		return nil, apperror.NewUnauthorized(msgSessionNotFound)
	}
	return user, nil
}

// openSession issues a token pair, records the refresh id and stores the
// snapshot with a fresh TTL.
func (s *authService) openSession(ctx context.Context, user *User) (*LoginResult, error) {
	access, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	if err := s.sessions.RememberRefresh(ctx, refresh.ID, user.ID, s.tokens.RefreshTTL()); err != nil {
		return nil, apperror.NewInternal(err)
	}
	if err := s.sessions.Put(ctx, user); err != nil {
		return nil, apperror.NewInternal(err)
	}

	return &LoginResult{
		User:   user,
		Tokens: TokenPair{AccessToken: access, RefreshToken: refresh.Token},
	}, nil
}
