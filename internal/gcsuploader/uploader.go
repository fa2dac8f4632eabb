package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

const uploadTimeout = 2 * time.Minute

// GCSStorageService is the concrete StorageService backed by Google Cloud
// Storage. It assumes Application Default Credentials are configured.
type GCSStorageService struct {
	client *storage.Client
}

// NewGCSStorageService creates a storage client shared by every call.
func NewGCSStorageService(ctx context.Context) (*GCSStorageService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStorageService: create storage client: %w", err)
	}
	return &GCSStorageService{client: client}, nil
}

// Close releases the underlying storage client.
func (s *GCSStorageService) Close() error {
	return s.client.Close()
}

// UploadBytes uploads data to bucketName under objectName.
func (s *GCSStorageService) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("UploadBytes: copy to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("UploadBytes: finalize upload: %w", err)
	}

	return FormatGCSURI(bucketName, objectName), nil
}

var _ StorageService = (*GCSStorageService)(nil)
