package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/keyxmakerx/elearning/internal/apperror"
	"github.com/keyxmakerx/elearning/internal/config"
)

// s3API is the subset of *s3.Client the store uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps assets in an S3-compatible bucket (AWS or MinIO).
type S3Store struct {
	client    s3API
	bucket    string
	publicURL string
	maxSize   int64
}

// NewS3Store builds an S3 client from static credentials. A custom endpoint
// switches to path-style addressing, which MinIO needs.
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := cfg.S3PublicURL
	if publicURL == "" {
		if cfg.S3Endpoint != "" {
			publicURL = strings.TrimRight(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
		}
	}

	return newS3Store(client, cfg.S3Bucket, publicURL, cfg.MaxSize), nil
}

func newS3Store(client s3API, bucket, publicURL string, maxSize int64) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxSize:   maxSize,
	}
}

// Upload validates the image and puts it in the bucket.
func (s *S3Store) Upload(ctx context.Context, input UploadInput) (Asset, error) {
	up, err := prepare(input, s.maxSize)
	if err != nil {
		return Asset{}, err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(up.key),
		Body:         bytes.NewReader(up.body),
		ContentType:  aws.String(up.mimeType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return Asset{}, apperror.NewUpstream("Failed to upload image", fmt.Errorf("putting s3 object %s: %w", up.key, err))
	}

	slog.Info("media object uploaded",
		slog.String("public_id", up.key),
		slog.String("bucket", s.bucket),
		slog.Int("size", len(up.body)),
	)
	return Asset{PublicID: up.key, URL: s.publicURL + "/" + up.key}, nil
}

// Delete removes an object. S3 treats missing keys as success.
func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	if !validPublicID(publicID) {
		return apperror.NewValidation("invalid asset id")
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return apperror.NewUpstream("Failed to delete image", fmt.Errorf("deleting s3 object %s: %w", publicID, err))
	}
	return nil
}
