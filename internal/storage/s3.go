package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/goout-id/goout/pkg/errors"
	"github.com/goout-id/goout/pkg/logger"
	"github.com/goout-id/goout/pkg/metrics"
)

// DefaultMaxUploadBytes caps a single image when no limit is configured.
const DefaultMaxUploadBytes int64 = 5 << 20

var (
	// ErrDisabled is returned when no bucket is configured.
	ErrDisabled = apperrors.New("UPLOAD_DISABLED", "Image upload is not configured", http.StatusServiceUnavailable)
	// ErrUnsupportedType rejects files that do not sniff as an image.
	ErrUnsupportedType = apperrors.New("UPLOAD_UNSUPPORTED_TYPE", "Only JPEG, PNG, WebP and GIF images are accepted", http.StatusBadRequest)
	// ErrTooLarge rejects files above the configured limit.
	ErrTooLarge = apperrors.New("UPLOAD_TOO_LARGE", "Image exceeds the upload size limit", http.StatusRequestEntityTooLarge)
)

var allowedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// S3Settings configures the S3-compatible bucket.
type S3Settings struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Folder          string
	PublicBaseURL   string
	UsePathStyle    bool
	MaxUploadBytes  int64
}

// Object describes an uploaded image.
type Object struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	FileSize  int64     `json:"fileSize"`
	CreatedAt time.Time `json:"createdAt"`
}

// Uploader stores images and returns their public location.
type Uploader interface {
	Upload(ctx context.Context, name string, size int64, body io.ReadSeeker) (Object, error)
}

// NewS3Client builds an S3 client from settings and checks that the bucket exists.
func NewS3Client(ctx context.Context, settings S3Settings) (*s3.Client, error) {
	if strings.TrimSpace(settings.Bucket) == "" {
		return nil, errors.New("s3: bucket is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if settings.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(settings.Region))
	}
	if settings.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
		}
		o.UsePathStyle = settings.UsePathStyle
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(settings.Bucket)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return nil, fmt.Errorf("s3: bucket %q does not exist", settings.Bucket)
		}
		return nil, fmt.Errorf("s3: check bucket: %w", err)
	}

	return client, nil
}

// S3Uploader writes images to a bucket through the multipart-aware upload manager.
type S3Uploader struct {
	uploader *manager.Uploader
	settings S3Settings
	now      func() time.Time
	newKey   func() string
	log      *zap.Logger
}

// S3Option customises the S3Uploader.
type S3Option func(*S3Uploader)

// WithUploadClock injects a custom time source.
func WithUploadClock(now func() time.Time) S3Option {
	return func(u *S3Uploader) {
		if now != nil {
			u.now = now
		}
	}
}

// WithKeyGenerator replaces the uuid object name generator.
func WithKeyGenerator(gen func() string) S3Option {
	return func(u *S3Uploader) {
		if gen != nil {
			u.newKey = gen
		}
	}
}

// NewS3Uploader wraps client. Pass the client from NewS3Client in production.
func NewS3Uploader(client manager.UploadAPIClient, settings S3Settings, opts ...S3Option) (*S3Uploader, error) {
	if client == nil {
		return nil, errors.New("s3 uploader: client is required")
	}
	if strings.TrimSpace(settings.Bucket) == "" {
		return nil, errors.New("s3 uploader: bucket is required")
	}
	if settings.MaxUploadBytes <= 0 {
		settings.MaxUploadBytes = DefaultMaxUploadBytes
	}

	u := &S3Uploader{
		uploader: manager.NewUploader(client, func(m *manager.Uploader) {
			m.Concurrency = 3
		}),
		settings: settings,
		now:      time.Now,
		newKey:   uuid.NewString,
		log:      logger.WithModule("storage"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Upload sniffs body, rejects non-images and oversize files, and stores it
// under <folder>/<uuid><ext>.
func (u *S3Uploader) Upload(ctx context.Context, name string, size int64, body io.ReadSeeker) (Object, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if size > u.settings.MaxUploadBytes {
		metrics.Uploads.WithLabelValues("too_large").Inc()
		return Object{}, ErrTooLarge
	}

	mime, err := mimetype.DetectReader(body)
	if err != nil {
		return Object{}, apperrors.ErrInternalServer.WithInternal(fmt.Errorf("sniff %s: %w", name, err))
	}
	if !mimetype.EqualsAny(mime.String(), allowedTypes...) {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return Object{}, ErrUnsupportedType
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return Object{}, apperrors.ErrInternalServer.WithInternal(fmt.Errorf("rewind %s: %w", name, err))
	}

	key := u.newKey() + mime.Extension()
	if u.settings.Folder != "" {
		key = path.Join(u.settings.Folder, key)
	}

	_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.settings.Bucket),
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(mime.String()),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		metrics.Uploads.WithLabelValues("error").Inc()
		u.log.Error("upload image", zap.String("key", key), zap.Error(err))
		return Object{}, apperrors.ErrInternalServer.WithInternal(fmt.Errorf("upload %s: %w", key, err))
	}

	metrics.Uploads.WithLabelValues("ok").Inc()
	return Object{
		Key:       key,
		URL:       u.PublicURL(key),
		FileSize:  size,
		CreatedAt: u.now(),
	}, nil
}

// PublicURL returns the address clients use to fetch key.
func (u *S3Uploader) PublicURL(key string) string {
	switch {
	case u.settings.PublicBaseURL != "":
		return u.settings.PublicBaseURL + "/" + key
	case u.settings.Endpoint != "":
		return strings.TrimRight(u.settings.Endpoint, "/") + "/" + u.settings.Bucket + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.settings.Bucket, u.settings.Region, key)
	}
}

// Disabled is the Uploader used when no bucket is configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, int64, io.ReadSeeker) (Object, error) {
	return Object{}, ErrDisabled
}
