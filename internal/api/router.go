package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-ingest/internal/api/handlers"
	"github.com/dvloznov/expense-ingest/internal/api/middleware"
	"github.com/dvloznov/expense-ingest/internal/jobs"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Publisher      jobs.Publisher
	JobStore       jobs.JobStore
	MarketData     handlers.MarketDataReader
	Archiver       handlers.Archiver
	DB             handlers.Pinger
	MaxUploadBytes int64
	Log            zerolog.Logger
}

// NewRouter builds the routed, middleware-wrapped handler.
func NewRouter(d Deps) http.Handler {
	upload := handlers.NewUploadHandler(d.Publisher, d.Archiver, d.MaxUploadBytes)
	marketData := handlers.NewMarketDataHandler(d.MarketData)
	jobsHandler := handlers.NewJobsHandler(d.JobStore)
	health := handlers.NewHealthHandler(d.DB)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/upload/csv", upload.UploadCSV)

	mux.HandleFunc("GET /api/market-data/symbols", marketData.ListSymbols)
	mux.HandleFunc("GET /api/market-data/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		marketData.GetSymbol(w, r, r.PathValue("symbol"))
	})

	mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		jobsHandler.GetJob(w, r, r.PathValue("id"))
	})

	mux.HandleFunc("GET /health", health.Health)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, middleware.CodeNotFound, "Not found")
	})

	return middleware.Chain(mux,
		middleware.Recovery(d.Log),
		middleware.RequestID,
		middleware.Logger(d.Log),
		middleware.SecureHeaders,
		middleware.CORS,
	)
}
