package gcsuploader

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockStorage struct {
	bucket, object, contentType string
	data                        []byte
	err                         error
}

func (m *mockStorage) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) (string, error) {
	m.bucket, m.object, m.data, m.contentType = bucketName, objectName, data, contentType
	if m.err != nil {
		return "", m.err
	}
	return FormatGCSURI(bucketName, objectName), nil
}

func (m *mockStorage) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://bucket/file.csv", "bucket", "file.csv", false},
		{"gs://bucket/a/b/file.csv", "bucket", "a/b/file.csv", false},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
		{"gs:///file.csv", "", "", true},
		{"s3://bucket/file.csv", "", "", true},
		{"/tmp/file.csv", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGCSURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseGCSURI() = (%q, %q), want (%q, %q)", bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	tests := map[string]string{
		"gs://bucket/folder/statement.csv": "statement.csv",
		"gs://bucket/statement.csv":        "statement.csv",
		"gs://bucket":                      "bucket",
	}
	for uri, want := range tests {
		if got := ExtractFilenameFromGCSURI(uri); got != want {
			t.Errorf("ExtractFilenameFromGCSURI(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestArchiveObjectName(t *testing.T) {
	at := time.Date(2024, 1, 15, 9, 30, 5, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name     string
		sourceID string
		fileName string
		want     string
	}{
		{"plain", "user-1", "statement.csv", "uploads/user-1/20240115T083005Z-statement.csv"},
		{"unsafe chars", "john doe/../x", "my file (1).csv", "uploads/john_doe_.._x/20240115T083005Z-my_file_1_.csv"},
		{"nested path", "u", "exports/jan.csv", "uploads/u/20240115T083005Z-jan.csv"},
		{"empty", "", "", "uploads/anonymous/20240115T083005Z-upload.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ArchiveObjectName(tt.sourceID, tt.fileName, at); got != tt.want {
				t.Errorf("ArchiveObjectName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArchiver_Archive(t *testing.T) {
	storage := &mockStorage{}
	a := NewArchiver(storage, "raw-uploads")
	a.now = func() time.Time { return time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC) }

	uri, err := a.Archive(context.Background(), "user-1", "jan.csv", []byte("Date,Description,Amount,Account\n"))
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if want := "gs://raw-uploads/uploads/user-1/20240115T000000Z-jan.csv"; uri != want {
		t.Errorf("Archive() = %q, want %q", uri, want)
	}
	if storage.contentType != "text/csv" {
		t.Errorf("content type = %q, want text/csv", storage.contentType)
	}
}

func TestArchiver_Disabled(t *testing.T) {
	if a := NewArchiver(&mockStorage{}, ""); a != nil {
		t.Fatalf("NewArchiver() with empty bucket = %v, want nil", a)
	}

	var a *Archiver
	uri, err := a.Archive(context.Background(), "user-1", "jan.csv", nil)
	if err != nil || uri != "" {
		t.Errorf("nil Archive() = (%q, %v), want (\"\", nil)", uri, err)
	}
}

func TestArchiver_UploadError(t *testing.T) {
	storage := &mockStorage{err: errors.New("permission denied")}
	a := NewArchiver(storage, "raw-uploads")

	if _, err := a.Archive(context.Background(), "user-1", "jan.csv", []byte("x")); err == nil {
		t.Fatal("Archive() error = nil, want error")
	}
}
