package gcsuploader

import (
	"context"
)

// StorageService provides the object storage operations used by ingestion.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// UploadBytes writes data to bucket/object and returns the gs:// URI.
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) (string, error)

	// FetchFromGCS downloads object bytes from the given gs:// URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}
