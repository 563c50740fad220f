package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	// Register the WebP decoder for image.Decode.
	_ "golang.org/x/image/webp"

	"github.com/keyxmakerx/elearning/internal/apperror"
)

// preparedUpload is a validated, possibly resized image ready for a backend.
type preparedUpload struct {
	key      string // folder/uuid.ext, also the public id
	body     []byte
	mimeType string
}

// prepare decodes, validates and resizes an upload.
func prepare(input UploadInput, maxSize int64) (*preparedUpload, error) {
	data, err := decodePayload(input.Data)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, apperror.NewValidation(fmt.Sprintf("image too large; maximum size is %d MB", maxSize/(1024*1024)))
	}

	mimeType := detectMIME(data)
	if !allowedMimeTypes[mimeType] {
		return nil, apperror.NewValidation("unsupported image type")
	}

	if input.MaxWidth > 0 && mimeType != "image/gif" {
		resized, outType, err := resizeToWidth(data, input.MaxWidth)
		if err != nil {
			return nil, apperror.NewValidation("image could not be decoded")
		}
		if resized != nil {
			data, mimeType = resized, outType
		}
	}

	folder := strings.Trim(path.Clean("/"+input.Folder), "/")
	if folder == "" {
		folder = "misc"
	}

	return &preparedUpload{
		key:      folder + "/" + uuid.NewString() + mimeToExtension[mimeType],
		body:     data,
		mimeType: mimeType,
	}, nil
}

// decodePayload strips an optional data URL prefix and decodes base64.
func decodePayload(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, apperror.NewValidation("image is required")
	}
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.Contains(s[:comma], ";base64") {
			return nil, apperror.NewValidation("image must be base64 encoded")
		}
		s = s[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, apperror.NewValidation("image must be base64 encoded")
	}
	return data, nil
}

// detectMIME identifies the image type from its magic bytes. Declared types
// are never trusted.
func detectMIME(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return "image/png"
	case len(data) >= 6 && string(data[:3]) == "GIF":
		return "image/gif"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	default:
		return ""
	}
}

// resizeToWidth scales an image down to width, keeping the aspect ratio.
// It returns nil when the image is already narrow enough. PNGs stay PNG;
// everything else is re-encoded as JPEG.
func resizeToWidth(data []byte, width int) ([]byte, string, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= width {
		return nil, "", nil
	}
	newH := max(h*width/w, 1)

	// Resize using Catmull-Rom interpolation.
	dst := image.NewRGBA(image.Rect(0, 0, width, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if format == "png" {
		err = png.Encode(&buf, dst)
		return buf.Bytes(), "image/png", err
	}
	err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
	return buf.Bytes(), "image/jpeg", err
}

// validPublicID rejects ids that could escape the storage root.
func validPublicID(id string) bool {
	if id == "" || strings.HasPrefix(id, "/") || strings.Contains(id, "\\") {
		return false
	}
	return path.Clean(id) == id && !strings.HasPrefix(id, "..")
}
