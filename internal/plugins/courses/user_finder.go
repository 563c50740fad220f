package courses

import (
	"context"

	"github.com/keyxmakerx/elearning/internal/plugins/auth"
	"github.com/keyxmakerx/elearning/internal/plugins/media"
)

// Recipient is who a question-reply mail goes to.
type Recipient struct {
	ID    string
	Name  string
	Email string
}

// UserFinder resolves the author of a question to a mail recipient. Authors
// stored on questions carry no email, so the account is looked up at send
// time.
type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*Recipient, error)
}

// UserFinderAdapter wraps auth.UserService to satisfy UserFinder.
type UserFinderAdapter struct {
	users auth.UserService
}

// NewUserFinderAdapter creates a new adapter around the user service.
func NewUserFinderAdapter(users auth.UserService) UserFinder {
	return &UserFinderAdapter{users: users}
}

// FindUserByID looks up a user by ID and maps it to a Recipient.
func (a *UserFinderAdapter) FindUserByID(ctx context.Context, id string) (*Recipient, error) {
	user, err := a.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Recipient{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}

// authorOf copies the public part of a user onto a question, answer or
// review.
func authorOf(u *auth.User) Author {
	a := Author{ID: u.ID, Name: u.Name}
	if u.Avatar != nil {
		a.Avatar = &media.Asset{PublicID: u.Avatar.PublicID, URL: u.Avatar.URL}
	}
	return a
}
