package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/keyxmakerx/elearning/internal/apperror"
	"github.com/keyxmakerx/elearning/internal/plugins/media"
)

// UserService owns every mutation of a user account. Each one goes through
// apply, which writes MariaDB and then refreshes the session snapshot, so a
// logged-in user never sees stale data on their next request.
type UserService interface {
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateInfo(ctx context.Context, id string, req UpdateInfoRequest) (*User, error)
	UpdatePassword(ctx context.Context, id, oldPassword, newPassword string) (*User, error)
	UpdateAvatar(ctx context.Context, id, image string) (*User, error)
	UpdateRole(ctx context.Context, id string, role Role) (*User, error)

	// AddCourse records a purchase. Used by the orders plugin.
	AddCourse(ctx context.Context, userID, courseID string) (*User, error)

	// Admin operations.
	List(ctx context.Context) ([]User, error)
	Delete(ctx context.Context, id string) error
}

// userService implements UserService.
type userService struct {
	repo     UserRepository
	sessions *SessionStore
	assets   media.Store
}

// NewUserService creates a new user service.
func NewUserService(repo UserRepository, sessions *SessionStore, assets media.Store) UserService {
	return &userService{repo: repo, sessions: sessions, assets: assets}
}

// apply runs mutate, reloads the user and refreshes their snapshot. The
// refresh only overwrites an existing session; it never logs anyone in.
func (s *userService) apply(ctx context.Context, id string, mutate func(ctx context.Context) error) (*User, error) {
	if err := mutate(ctx); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.NewInternal(err)
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("reloading user: %w", err))
	}

	if err := s.sessions.Refresh(ctx, user); err != nil {
		return nil, apperror.NewInternal(err)
	}
	return user, nil
}

// GetByID loads a user from MariaDB.
func (s *userService) GetByID(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	return user, nil
}

// UpdateInfo changes name and/or email. Empty fields keep their value.
func (s *userService) UpdateInfo(ctx context.Context, id string, req UpdateInfoRequest) (*User, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = current.Name
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		email = current.Email
	}

	if email != current.Email {
		exists, err := s.repo.EmailExists(ctx, email)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
		}
		if exists {
			return nil, apperror.NewConflict("Email already exists")
		}
	}

	return s.apply(ctx, id, func(ctx context.Context) error {
		return s.repo.UpdateProfile(ctx, id, name, email)
	})
}

// UpdatePassword replaces the password after checking the old one. Social
// accounts have no password to change.
func (s *userService) UpdatePassword(ctx context.Context, id, oldPassword, newPassword string) (*User, error) {
	if oldPassword == "" || newPassword == "" {
		return nil, apperror.NewValidation("Please enter old and new password")
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.PasswordHash == "" {
		return nil, apperror.NewBadRequest("Invalid user")
	}
	if !verifyPassword(oldPassword, current.PasswordHash) {
		return nil, apperror.NewBadRequest("Old password is incorrect")
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user, err := s.apply(ctx, id, func(ctx context.Context) error {
		return s.repo.UpdatePassword(ctx, id, hash)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("password changed", slog.String("user_id", id))
	return user, nil
}

// UpdateAvatar uploads a new avatar, then removes the previous one.
func (s *userService) UpdateAvatar(ctx context.Context, id, image string) (*User, error) {
	if strings.TrimSpace(image) == "" {
		return nil, apperror.NewValidation("Please provide the avatar")
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	asset, err := s.assets.Upload(ctx, media.UploadInput{
		Data:     image,
		Folder:   media.FolderAvatars,
		MaxWidth: media.AvatarWidth,
	})
	if err != nil {
		return nil, err
	}

	user, err := s.apply(ctx, id, func(ctx context.Context) error {
		return s.repo.UpdateAvatar(ctx, id, Avatar{PublicID: asset.PublicID, URL: asset.URL})
	})
	if err != nil {
		return nil, err
	}

	if current.Avatar != nil && current.Avatar.PublicID != "" {
		if err := s.assets.Delete(ctx, current.Avatar.PublicID); err != nil {
			slog.Warn("failed to delete old avatar",
				slog.String("user_id", id),
				slog.String("public_id", current.Avatar.PublicID),
				slog.Any("error", err),
			)
		}
	}
	return user, nil
}

// UpdateRole changes a user's role.
func (s *userService) UpdateRole(ctx context.Context, id string, role Role) (*User, error) {
	user, err := s.apply(ctx, id, func(ctx context.Context) error {
		return s.repo.UpdateRole(ctx, id, role)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("user role updated",
		slog.String("user_id", id),
		slog.String("role", string(role)),
	)
	return user, nil
}

// AddCourse records a purchase and refreshes the snapshot so the course is
// reachable on the buyer's next request.
func (s *userService) AddCourse(ctx context.Context, userID, courseID string) (*User, error) {
	return s.apply(ctx, userID, func(ctx context.Context) error {
		return s.repo.AddCourse(ctx, userID, courseID)
	})
}

// List returns all users, newest first.
func (s *userService) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing users: %w", err))
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

// Delete removes the account and its session.
func (s *userService) Delete(ctx context.Context, id string) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if apperror.IsNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("deleting user: %w", err))
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return apperror.NewInternal(err)
	}

	if user.Avatar != nil && user.Avatar.PublicID != "" {
		if err := s.assets.Delete(ctx, user.Avatar.PublicID); err != nil {
			slog.Warn("failed to delete avatar of deleted user",
				slog.String("user_id", id),
				slog.Any("error", err),
			)
		}
	}

	slog.Info("user deleted", slog.String("user_id", id))
	return nil
}
