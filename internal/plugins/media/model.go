// Package media is the asset host for avatars, course thumbnails and
// banner images. Uploads arrive as base64 strings or data URLs, are checked
// against their magic bytes, optionally resized, and stored either on local
// disk or in an S3-compatible bucket.
package media

import (
	"context"
)

// Asset is a stored image. PublicID is what Delete takes later.
type Asset struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// UploadInput describes one image upload.
type UploadInput struct {
	// Data is a base64 payload, with or without a data URL prefix.
	Data string

	// Folder groups assets by usage, e.g. "avatars" or "courses".
	Folder string

	// MaxWidth, when positive, scales wider images down to this width.
	MaxWidth int
}

// Store uploads and deletes assets. Failures of the backend are returned as
// apperror upstream errors; bad input as validation errors.
type Store interface {
	Upload(ctx context.Context, input UploadInput) (Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// Common folders and sizes.
const (
	FolderAvatars = "avatars"
	FolderCourses = "courses"
	FolderLayout  = "layout"

	// AvatarWidth is the width avatars are scaled to.
	AvatarWidth = 150
)

// allowedMimeTypes defines which MIME types are accepted for upload.
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// mimeToExtension maps MIME types to file extensions.
var mimeToExtension = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}
