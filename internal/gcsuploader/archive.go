package gcsuploader

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/dvloznov/expense-ingest/internal/logger"
)

const (
	archivePrefix  = "uploads"
	csvContentType = "text/csv"
)

var unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Archiver stores raw CSV uploads under uploads/<source>/<timestamp>-<name>.
type Archiver struct {
	Storage StorageService
	Bucket  string

	now func() time.Time
}

// NewArchiver returns nil when bucket is empty, which disables archiving.
func NewArchiver(storage StorageService, bucket string) *Archiver {
	if storage == nil || bucket == "" {
		return nil
	}
	return &Archiver{Storage: storage, Bucket: bucket, now: time.Now}
}

// Archive uploads data and returns its gs:// URI. A nil Archiver is a no-op.
func (a *Archiver) Archive(ctx context.Context, sourceID, fileName string, data []byte) (string, error) {
	if a == nil {
		return "", nil
	}

	object := ArchiveObjectName(sourceID, fileName, a.clock())
	uri, err := a.Storage.UploadBytes(ctx, a.Bucket, object, data, csvContentType)
	if err != nil {
		return "", fmt.Errorf("Archive: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("source_id", sourceID).
		Str("uri", uri).
		Int("bytes", len(data)).
		Msg("Archived raw upload")
	return uri, nil
}

func (a *Archiver) clock() time.Time {
	if a.now == nil {
		return time.Now()
	}
	return a.now()
}

// ArchiveObjectName builds the object path for one upload.
func ArchiveObjectName(sourceID, fileName string, at time.Time) string {
	return path.Join(
		archivePrefix,
		safeSegment(sourceID, "anonymous"),
		at.UTC().Format("20060102T150405Z")+"-"+safeSegment(path.Base(fileName), "upload.csv"),
	)
}

func safeSegment(s, fallback string) string {
	s = strings.Trim(unsafeSegment.ReplaceAllString(strings.TrimSpace(s), "_"), "._")
	if s == "" {
		return fallback
	}
	return s
}
