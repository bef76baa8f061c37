package app

import (
	"strings"

	"github.com/goout-id/goout/internal/storage"
)

// S3Settings converts the storage block into the uploader settings.
func (c StorageConfig) S3Settings() storage.S3Settings {
	return storage.S3Settings{
		Region:          strings.TrimSpace(c.S3.Region),
		Bucket:          strings.TrimSpace(c.S3.Bucket),
		Endpoint:        strings.TrimSpace(c.S3.Endpoint),
		AccessKeyID:     c.S3.AccessKeyID,
		SecretAccessKey: c.S3.SecretAccessKey,
		Folder:          strings.Trim(strings.TrimSpace(c.S3.Folder), "/"),
		PublicBaseURL:   strings.TrimRight(strings.TrimSpace(c.S3.PublicBaseURL), "/"),
		UsePathStyle:    c.S3.UsePathStyle,
		MaxUploadBytes:  c.S3.MaxUploadBytes,
	}
}
