package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/keyxmakerx/elearning/internal/apperror"
)

// LocalStore keeps assets on disk under root and serves them from
// baseURL + "/media/".
type LocalStore struct {
	root    string
	baseURL string
	maxSize int64
}

// NewLocalStore creates a LocalStore, creating root if needed.
func NewLocalStore(root, baseURL string, maxSize int64) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/"), maxSize: maxSize}, nil
}

// Root returns the directory served under /media.
func (s *LocalStore) Root() string { return s.root }

// Upload validates the image and writes it below root.
func (s *LocalStore) Upload(_ context.Context, input UploadInput) (Asset, error) {
	up, err := prepare(input, s.maxSize)
	if err != nil {
		return Asset{}, err
	}

	fullPath := filepath.Join(s.root, filepath.FromSlash(up.key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return Asset{}, apperror.NewUpstream("Failed to upload image", fmt.Errorf("creating media directory: %w", err))
	}
	if err := os.WriteFile(fullPath, up.body, 0o644); err != nil {
		return Asset{}, apperror.NewUpstream("Failed to upload image", fmt.Errorf("writing media file: %w", err))
	}

	slog.Info("media file uploaded",
		slog.String("public_id", up.key),
		slog.String("mime_type", up.mimeType),
		slog.Int("size", len(up.body)),
	)
	return Asset{PublicID: up.key, URL: s.baseURL + "/media/" + up.key}, nil
}

// Delete removes an asset. A missing file is not an error.
func (s *LocalStore) Delete(_ context.Context, publicID string) error {
	if !validPublicID(publicID) {
		return apperror.NewValidation("invalid asset id")
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(publicID)))
	if err != nil && !os.IsNotExist(err) {
		return apperror.NewUpstream("Failed to delete image", fmt.Errorf("removing media file: %w", err))
	}
	slog.Info("media file deleted", slog.String("public_id", publicID))
	return nil
}
