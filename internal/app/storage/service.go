/*
Package storage provides access to S3-compatible object storage, used to keep JSON archives of
chat history before it is cleared.
*/
package storage

import (
	"context"
	"io"
	"time"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// StorageService defines the public interface for the object storage service.
type StorageService interface {
	// Upload stores body under key.
	Upload(ctx context.Context, key, contentType string, body io.Reader) error

	// PresignDownload generates a pre-signed URL for downloading an object.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
}

// NewStorageService is the factory function for StorageService.
// It initializes and returns a concrete implementation based on the provided configuration.
func NewStorageService(ctx context.Context, cfg ServiceConfig) (StorageService, error) {
	// Currently, only S3 compatible implementations are supported.
	return newS3Client(ctx, cfg)
}
