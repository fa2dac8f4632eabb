package handlers

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dvloznov/expense-ingest/internal/api/middleware"
	"github.com/dvloznov/expense-ingest/internal/jobs"
	"github.com/dvloznov/expense-ingest/internal/logger"
	"github.com/dvloznov/expense-ingest/internal/pipeline"
)

const (
	// DefaultMaxUploadBytes caps a single CSV upload.
	DefaultMaxUploadBytes = 10 << 20

	fileField   = "csvFile"
	userIDField = "userId"

	// Slack for multipart boundaries and the userId field.
	formOverhead = 1 << 20

	// Records a worker is expected to handle per second.
	recordsPerSecond = 100
)

// UploadResponse is returned when a CSV batch has been queued.
type UploadResponse struct {
	Success                 bool   `json:"success"`
	Message                 string `json:"message"`
	JobID                   string `json:"jobId"`
	TransactionCount        int    `json:"transactionCount"`
	EstimatedProcessingTime int    `json:"estimatedProcessingTime"`
}

// UploadHandler handles POST /api/upload/csv.
type UploadHandler struct {
	publisher jobs.Publisher
	archiver  Archiver
	maxBytes  int64
}

// NewUploadHandler creates an upload handler. archiver may be nil.
func NewUploadHandler(publisher jobs.Publisher, archiver Archiver, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadHandler{
		publisher: publisher,
		archiver:  archiver,
		maxBytes:  maxBytes,
	}
}

// UploadCSV parses the uploaded file and queues the batch.
func (h *UploadHandler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeUploadError, uploadErrorMessage(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(fileField)
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeUploadError, err.Error())
		return
	}
	if file != nil {
		defer file.Close()
		if header.Size > h.maxBytes {
			middleware.WriteError(w, http.StatusBadRequest, middleware.CodeUploadError, "File too large")
			return
		}
		if !isCSV(header) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidFileType, "Invalid file type. Please upload a CSV file.")
			return
		}
	}

	userID := r.FormValue(userIDField)
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeMissingUserID, "User ID is required")
		return
	}
	if file == nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeNoFile, "No CSV file uploaded")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		middleware.WriteError(w, http.StatusInternalServerError, middleware.CodeProcessingError, "Failed to read uploaded file")
		return
	}

	records, err := pipeline.ParseTransactions(bytes.NewReader(data))
	if err != nil {
		var formatErr *pipeline.FormatError
		if errors.As(err, &formatErr) {
			log.Warn().Err(err).Int("line", formatErr.Line).Str("file_name", header.Filename).Msg("Rejected CSV upload")
			middleware.WriteError(w, http.StatusBadRequest, middleware.CodeInvalidCSV, formatErr.Msg)
			return
		}
		log.Error().Err(err).Msg("Failed to parse CSV upload")
		middleware.WriteError(w, http.StatusInternalServerError, middleware.CodeProcessingError, "Failed to process CSV upload")
		return
	}

	job := &jobs.ImportTransactionsJob{
		SourceID: userID,
		FileName: header.Filename,
		Records:  records,
	}

	if h.archiver != nil {
		uri, err := h.archiver.Archive(ctx, userID, header.Filename, data)
		if err != nil {
			log.Warn().Err(err).Str("file_name", header.Filename).Msg("Could not archive raw upload")
		}
		job.ArchiveURI = uri
	}

	jobID, err := h.publisher.PublishImportTransactions(ctx, job)
	if err != nil {
		log.Error().Err(err).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusInternalServerError, middleware.CodeProcessingError, "Failed to queue CSV for processing")
		return
	}

	log.Info().
		Str("job_id", jobID).
		Str("source_id", userID).
		Int("transactions", len(records)).
		Msg("CSV upload queued")

	middleware.WriteJSON(w, http.StatusOK, UploadResponse{
		Success:                 true,
		Message:                 "CSV uploaded and queued for processing",
		JobID:                   jobID,
		TransactionCount:        len(records),
		EstimatedProcessingTime: EstimatedProcessingSeconds(len(records)),
	})
}

// EstimatedProcessingSeconds rounds up to whole seconds.
func EstimatedProcessingSeconds(n int) int {
	return (n + recordsPerSecond - 1) / recordsPerSecond
}

func isCSV(h *multipart.FileHeader) bool {
	return h.Header.Get("Content-Type") == "text/csv" || strings.HasSuffix(h.Filename, ".csv")
}

func uploadErrorMessage(err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return "File too large"
	}
	return err.Error()
}
